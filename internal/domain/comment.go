package domain

import "time"

// Comment is an append-only note on a ticket thread. Comments are owned by
// their ticket and removed with it; there are no update or delete
// operations.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Text      string
	CreatedAt time.Time
}
