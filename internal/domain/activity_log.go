package domain

import "time"

// ActivityAction tags what kind of mutation an activity entry records.
type ActivityAction string

const (
	ActivityStatusChanged ActivityAction = "status_changed"
	ActivityAssigned      ActivityAction = "assigned"
)

// ActivityLogEntry is an append-only audit record of a ticket mutation.
// Entries are written inside the same transaction as the mutation they
// describe and are never updated or deleted.
type ActivityLogEntry struct {
	ID        string
	TicketID  string
	ActorID   *string
	Action    ActivityAction
	Details   map[string]any
	CreatedAt time.Time
}
