package events

import (
	"time"

	"github.com/spec-kit/helpdesk-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketClaimed         EventType = "ticket_claimed"
	EventTicketCommentAdded    EventType = "ticket_comment_added"
	EventTicketDeleted         EventType = "ticket_deleted"
	EventTicketsBulkCompleted  EventType = "tickets_bulk_completed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title        string  `json:"title"`
	HandlerID    *string `json:"handler_id,omitempty"`
	DepartmentID *string `json:"department_id,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketClaimedPayload payload.
type TicketClaimedPayload struct {
	HandlerID string `json:"handler_id"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	AuthorID    string `json:"author_id"`
	TextPreview string `json:"text_preview"`
}

// TicketsBulkCompletedPayload payload.
type TicketsBulkCompletedPayload struct {
	Count int64 `json:"count"`
}
