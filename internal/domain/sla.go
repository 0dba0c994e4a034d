package domain

import "time"

// SLAStatus classifies how a ticket tracked against its resolution window.
type SLAStatus string

const (
	SLAOpen    SLAStatus = "open"
	SLAOnTime  SLAStatus = "on_time"
	SLADelayed SLAStatus = "delayed"
)

// DefaultSLAThreshold is the resolution window tickets are measured against.
const DefaultSLAThreshold = 4 * time.Hour

// SLAStatusAt computes the SLA classification for the ticket snapshot:
// open while the ticket is not completed, on_time when it was completed
// within threshold of creation, delayed otherwise. Pure; the caller
// guarantees CompletedAt >= CreatedAt on completed tickets.
func (t *Ticket) SLAStatusAt(threshold time.Duration) SLAStatus {
	if t.Status != TicketStatusCompleted || t.CompletedAt == nil {
		return SLAOpen
	}
	if t.CompletedAt.Sub(t.CreatedAt) <= threshold {
		return SLAOnTime
	}
	return SLADelayed
}

// SLAStatusDefault applies the 4 hour window.
func (t *Ticket) SLAStatusDefault() SLAStatus {
	return t.SLAStatusAt(DefaultSLAThreshold)
}
