package domain

import "time"

// UserRole enumerates the roles recognized by the authorization gate.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleAgent     UserRole = "AGENT"
	RoleRequester UserRole = "REQUESTER"
)

// Valid reports membership in the role enumeration.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleRequester:
		return true
	}
	return false
}

// User is the domain model for people who report, work, and comment on
// tickets. User lifecycle beyond registration is external to the tracker.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor identifies who is performing an operation, as consumed by the
// authorization gate.
type Actor struct {
	ID   string
	Role UserRole
}
