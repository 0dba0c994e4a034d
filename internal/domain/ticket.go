package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusCompleted  TicketStatus = "completed"
)

// ValidStatus reports whether the value is a known ticket status.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusPending, TicketStatusInProgress, TicketStatusCompleted:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// ValidPriority reports whether the value is a known ticket priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
//
// CreatedBy is immutable after creation. HandlerID is bound by an explicit
// claim or by the first successful handler update on an unassigned ticket.
// AgentID is a reserved assignment slot exercised only by the agent flow.
// SLADue is stored but carries no enforced behavior.
type Ticket struct {
	ID           string
	Title        string
	Description  string
	CreatedBy    string
	AgentID      *string
	HandlerID    *string
	DepartmentID *string
	Status       TicketStatus
	Priority     TicketPriority
	CreatedAt    time.Time
	CompletedAt  *time.Time
	SLADue       *time.Time
}

// IsCompleted reports whether the ticket reached the completed status.
func (t *Ticket) IsCompleted() bool {
	return t.Status == TicketStatusCompleted
}

// ApplyStatus transitions the ticket to next and keeps CompletedAt in sync:
// entering completed stamps it with now, leaving completed clears it. Any
// status may follow any other; authorization is the caller's concern.
func (t *Ticket) ApplyStatus(next TicketStatus, now time.Time) {
	t.Status = next
	if next == TicketStatusCompleted {
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
}
