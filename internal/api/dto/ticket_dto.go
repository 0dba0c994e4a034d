package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-tracker/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	DepartmentID *string `json:"department_id"`
}

// ReviewUpdateRequest is the admin supervisory edit payload.
type ReviewUpdateRequest struct {
	Priority     *domain.TicketPriority `json:"priority"`
	DepartmentID *string                `json:"department_id"`
}

// StaffUpdateRequest is the agent/handler edit payload.
type StaffUpdateRequest struct {
	Priority *domain.TicketPriority `json:"priority"`
	Status   *domain.TicketStatus   `json:"status"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Text string `json:"text"`
}

// DeleteSelectedRequest payload.
type DeleteSelectedRequest struct {
	IDs []string `json:"ids"`
}

// CountResponse reports how many tickets a bulk operation touched.
type CountResponse struct {
	Count int64 `json:"count"`
}

// TicketSummary response.
type TicketSummary struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	CreatedBy    string                `json:"created_by"`
	AgentID      *string               `json:"agent_id,omitempty"`
	HandlerID    *string               `json:"handler_id,omitempty"`
	DepartmentID *string               `json:"department_id,omitempty"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	SLAStatus    domain.SLAStatus      `json:"sla_status"`
	CreatedAt    time.Time             `json:"created_at"`
	CompletedAt  *time.Time            `json:"completed_at,omitempty"`
	SLADue       *time.Time            `json:"sla_due,omitempty"`
}

// TicketDetailResponse provides full ticket info with its comment thread.
type TicketDetailResponse struct {
	TicketSummary
	Description string            `json:"description"`
	Comments    []CommentResponse `json:"comments"`
}

// CommentResponse represents a thread comment.
type CommentResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketHistoryResponse represents an audit trail entry.
type TicketHistoryResponse struct {
	ID         string                  `json:"id"`
	ChangeType domain.TicketChangeType `json:"change_type"`
	ChangedBy  *string                 `json:"changed_by,omitempty"`
	OldValue   map[string]any          `json:"old_value"`
	NewValue   map[string]any          `json:"new_value"`
	CreatedAt  time.Time               `json:"created_at"`
}

// DepartmentResponse payload.
type DepartmentResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateDepartmentRequest payload.
type CreateDepartmentRequest struct {
	Name string `json:"name"`
}
