package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/jiro-tracker/internal/authz"
	"github.com/spec-kit/jiro-tracker/internal/domain"
	"github.com/spec-kit/jiro-tracker/internal/events"
	"github.com/spec-kit/jiro-tracker/internal/repository"
	apperrors "github.com/spec-kit/jiro-tracker/pkg/util"
)

// ProjectService owns project lifecycle: creation, edits, archiving.
type ProjectService struct {
	projects   repository.ProjectRepository
	gate       authz.Gate
	dispatcher events.Dispatcher
}

// ProjectCreateInput describes creation payload.
type ProjectCreateInput struct {
	Name        string
	Key         string
	Description string
}

// NewProjectService constructs the service.
func NewProjectService(projects repository.ProjectRepository, gate authz.Gate, dispatcher events.Dispatcher) *ProjectService {
	return &ProjectService{projects: projects, gate: gate, dispatcher: dispatcher}
}

// CreateProject registers a new active project with a unique key.
func (s *ProjectService) CreateProject(ctx context.Context, actor domain.Actor, input ProjectCreateInput) (*domain.Project, error) {
	if !authz.Allowed(s.gate, actor, authz.ActionProjectManage, authz.Resource{Kind: "project"}) {
		return nil, apperrors.NewForbidden("project management not permitted")
	}
	name := strings.TrimSpace(input.Name)
	key := strings.ToUpper(strings.TrimSpace(input.Key))
	if name == "" || key == "" {
		return nil, apperrors.NewValidationError("name and key required", nil)
	}
	if existing, err := s.projects.GetByKey(ctx, key); err == nil && existing != nil {
		return nil, apperrors.NewConflict("project key already taken", map[string]any{"key": key})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	project := &domain.Project{
		Name:        name,
		Key:         key,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.ProjectStatusActive,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, apperrors.MapError(err)
	}
	return project, nil
}

// GetProject fetches a project by id.
func (s *ProjectService) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("project", map[string]any{"project_id": projectID})
		}
		return nil, apperrors.MapError(err)
	}
	return project, nil
}

// ListProjects returns projects, optionally narrowed to one lifecycle status.
func (s *ProjectService) ListProjects(ctx context.Context, status *domain.ProjectStatus) ([]domain.Project, error) {
	if status != nil && !status.Valid() {
		return nil, apperrors.NewValidationError("unknown project status", map[string]any{"status": *status})
	}
	projects, err := s.projects.List(ctx, status)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return projects, nil
}

// ArchiveProject flips a project to ARCHIVED. Existing tickets stay put;
// archiving only stops new ticket creation.
func (s *ProjectService) ArchiveProject(ctx context.Context, actor domain.Actor, projectID string) (*domain.Project, error) {
	if !authz.Allowed(s.gate, actor, authz.ActionProjectManage, authz.ProjectResource(projectID)) {
		return nil, apperrors.NewForbidden("project management not permitted")
	}
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status == domain.ProjectStatusArchived {
		return project, nil
	}
	project.Status = domain.ProjectStatusArchived
	if err := s.projects.Update(ctx, project); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventProjectArchived,
			Actor:     actor,
			Timestamp: time.Now(),
			Payload:   events.ProjectArchivedPayload{ProjectID: project.ID, Key: project.Key},
		})
	}
	return project, nil
}
