package domain

import "time"

// Department is a routing label referenced, never owned, by tickets.
type Department struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
