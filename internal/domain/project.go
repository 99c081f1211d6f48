package domain

import "time"

// ProjectStatus represents lifecycle states for a project.
type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "ACTIVE"
	ProjectStatusArchived ProjectStatus = "ARCHIVED"
)

// Valid reports membership in the project status enumeration.
func (s ProjectStatus) Valid() bool {
	return s == ProjectStatusActive || s == ProjectStatusArchived
}

// Project groups tickets under a short unique key.
type Project struct {
	ID          string
	Name        string
	Key         string
	Description string
	Status      ProjectStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
