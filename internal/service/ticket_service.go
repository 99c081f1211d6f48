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

// TicketService is the registry for ticket records: creation, free-form field
// edits, queries, comments, and activity reads. Status and assignee never
// change through here; those mutations belong to WorkflowService so they
// cannot bypass audit logging.
type TicketService struct {
	tickets    repository.TicketRepository
	projects   repository.ProjectRepository
	comments   repository.CommentRepository
	activity   repository.ActivityLogRepository
	gate       authz.Gate
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	ProjectRepo  repository.ProjectRepository
	CommentRepo  repository.CommentRepository
	ActivityRepo repository.ActivityLogRepository
	Gate         authz.Gate
	Dispatcher   events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	ProjectID   string
	Title       string
	Description string
	ReporterID  string
	Priority    domain.TicketPriority
}

// TicketUpdateInput holds the fields reachable through the registry's edit
// path. Nil fields are left untouched.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
}

// TicketQuery mirrors the query facade filter options.
type TicketQuery struct {
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	AssigneeID *string
	ProjectID  *string
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		projects:   deps.ProjectRepo,
		comments:   deps.CommentRepo,
		activity:   deps.ActivityRepo,
		gate:       deps.Gate,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket creates a ticket in a project with status OPEN.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if !authz.Allowed(s.gate, actor, authz.ActionTicketCreate, authz.ProjectResource(input.ProjectID)) {
		return nil, apperrors.NewForbidden("ticket creation not permitted")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	if strings.TrimSpace(input.ReporterID) == "" {
		return nil, apperrors.NewValidationError("reporter required", nil)
	}

	project, err := s.projects.GetByID(ctx, input.ProjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("project", map[string]any{"project_id": input.ProjectID})
		}
		return nil, apperrors.MapError(err)
	}
	if project.Status != domain.ProjectStatusActive {
		return nil, apperrors.NewConflict("project archived", map[string]any{"project_id": project.ID})
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityLow
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}

	ticket := &domain.Ticket{
		ExternalKey: generateTicketKey(project.Key),
		ProjectID:   project.ID,
		ReporterID:  input.ReporterID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			ProjectID: ticket.ProjectID,
			Priority:  ticket.Priority,
			Title:     ticket.Title,
		},
	})
	return ticket, nil
}

// GetTicket fetches a single ticket.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// UpdateTicketFields edits title, description and priority. Requests carrying
// nothing to change are rejected rather than silently accepted.
func (s *TicketService) UpdateTicketFields(ctx context.Context, actor domain.Actor, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !authz.Allowed(s.gate, actor, authz.ActionTicketEdit, authz.TicketResource(ticket.ID)) {
		return nil, apperrors.NewForbidden("ticket edit not permitted")
	}
	if input.Title == nil && input.Description == nil && input.Priority == nil {
		return nil, apperrors.NewValidationError("no editable fields supplied", nil)
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title required", nil)
		}
		ticket.Title = title
	}
	if input.Description != nil {
		ticket.Description = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *input.Priority})
		}
		ticket.Priority = *input.Priority
	}

	if err := s.tickets.UpdateDetails(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		Actor:    actor,
	})
	return ticket, nil
}

// DeleteTicket removes a ticket together with its comments and activity log.
func (s *TicketService) DeleteTicket(ctx context.Context, actor domain.Actor, ticketID string) error {
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if !authz.Allowed(s.gate, actor, authz.ActionTicketDelete, authz.TicketResource(ticket.ID)) {
		return apperrors.NewForbidden("ticket deletion not permitted")
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// QueryTickets lists tickets matching the filter. All supplied options apply
// as a conjunction; an empty query returns everything.
func (s *TicketService) QueryTickets(ctx context.Context, query TicketQuery) ([]domain.Ticket, error) {
	if query.Status != nil && !query.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *query.Status})
	}
	if query.Priority != nil && !query.Priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *query.Priority})
	}
	filter := repository.TicketFilter{
		ProjectID:  query.ProjectID,
		AssigneeID: query.AssigneeID,
		Status:     query.Status,
		Priority:   query.Priority,
		Limit:      query.Limit,
		Offset:     query.Offset,
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// AddComment appends an immutable comment to a ticket.
func (s *TicketService) AddComment(ctx context.Context, actor domain.Actor, ticketID, content string) (*domain.Comment, error) {
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !authz.Allowed(s.gate, actor, authz.ActionCommentAdd, authz.TicketResource(ticket.ID)) {
		return nil, apperrors.NewForbidden("commenting not permitted")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content required", nil)
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: actor.ID,
		Content:  content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCommentAddedPayload{
			CommentID:   comment.ID,
			AuthorID:    comment.AuthorID,
			BodyPreview: stringPreview(comment.Content, 120),
		},
	})
	return comment, nil
}

// ListComments returns a ticket's comments in ascending creation order. The
// ordering is part of the contract, so callers pass it explicitly.
func (s *TicketService) ListComments(ctx context.Context, ticketID string, order repository.CommentOrder) ([]domain.Comment, error) {
	if _, err := s.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID, order)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

// ListActivity returns the ticket's audit trail in ascending creation order.
func (s *TicketService) ListActivity(ctx context.Context, ticketID string) ([]domain.ActivityLogEntry, error) {
	if _, err := s.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.activity.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateTicketKey(projectKey string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return strings.ToUpper(projectKey) + "-" + suffix
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
