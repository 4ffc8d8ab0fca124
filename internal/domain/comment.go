package domain

import "time"

// Comment is an append-only message on a ticket. The oldest comment of a
// ticket is its description.
type Comment struct {
	ID         int64
	TicketID   int64
	AuthorID   int64
	AuthorName string
	Text       string
	Timestamp  time.Time
}
