package domain

import "time"

// Comment is an immutable note on a ticket. Comments are never edited or
// reordered after creation; listings are always ascending by creation time.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Content   string
	CreatedAt time.Time
}
