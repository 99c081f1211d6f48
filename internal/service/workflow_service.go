package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/jiro-tracker/internal/authz"
	"github.com/spec-kit/jiro-tracker/internal/domain"
	"github.com/spec-kit/jiro-tracker/internal/events"
	"github.com/spec-kit/jiro-tracker/internal/repository"
	apperrors "github.com/spec-kit/jiro-tracker/pkg/util"
)

// TransitionPolicy decides whether a status change is legal once both values
// are known members of the enumeration. The default policy allows any pair,
// matching the tracker's historical behavior; a transition graph can be
// substituted here without touching call sites.
type TransitionPolicy interface {
	Allowed(current, next domain.TicketStatus) bool
}

type anyTransitionPolicy struct{}

func (anyTransitionPolicy) Allowed(current, next domain.TicketStatus) bool {
	return true
}

// AnyTransitionPolicy returns the default policy: every enumerated status is
// reachable from every other.
func AnyTransitionPolicy() TransitionPolicy {
	return anyTransitionPolicy{}
}

// UserDirectory resolves whether a user id refers to an existing user. Used
// only to validate assignment targets.
type UserDirectory interface {
	UserExists(ctx context.Context, id string) (bool, error)
}

type repoUserDirectory struct {
	users repository.UserRepository
}

// NewUserDirectory adapts the user repository to the directory check.
func NewUserDirectory(users repository.UserRepository) UserDirectory {
	return &repoUserDirectory{users: users}
}

func (d *repoUserDirectory) UserExists(ctx context.Context, id string) (bool, error) {
	return d.users.Exists(ctx, id)
}

// WorkflowService owns the two audited ticket mutations: status transitions
// and assignments. Each runs as one transaction covering the field write and
// the activity append, so the ticket is never left with a new status or
// assignee without a matching audit entry.
type WorkflowService struct {
	tickets    repository.TicketRepository
	uow        repository.UnitOfWork
	gate       authz.Gate
	directory  UserDirectory
	policy     TransitionPolicy
	dispatcher events.Dispatcher
}

// WorkflowDependencies bundles collaborators for the workflow service.
type WorkflowDependencies struct {
	TicketRepo repository.TicketRepository
	UnitOfWork repository.UnitOfWork
	Gate       authz.Gate
	Directory  UserDirectory
	Policy     TransitionPolicy
	Dispatcher events.Dispatcher
}

// NewWorkflowService constructs the service. A nil policy falls back to the
// membership-only default; a nil gate denies every operation.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	policy := deps.Policy
	if policy == nil {
		policy = AnyTransitionPolicy()
	}
	return &WorkflowService{
		tickets:    deps.TicketRepo,
		uow:        deps.UnitOfWork,
		gate:       deps.Gate,
		directory:  deps.Directory,
		policy:     policy,
		dispatcher: deps.Dispatcher,
	}
}

// Transition moves a ticket to the requested status. The requested value must
// be a member of the status enumeration; beyond membership the default policy
// imposes no source/target restriction (resolved back to open is legal).
func (s *WorkflowService) Transition(ctx context.Context, actor domain.Actor, ticketID string, requested domain.TicketStatus) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !authz.Allowed(s.gate, actor, authz.ActionTicketTransition, authz.TicketResource(ticket.ID)) {
		return nil, apperrors.NewForbidden("transition not permitted")
	}
	if !requested.Valid() {
		return nil, apperrors.NewInvalidTransition(string(requested), map[string]any{"ticket_id": ticketID})
	}

	var oldStatus domain.TicketStatus
	var updated *domain.Ticket
	err = s.uow.Do(ctx, func(repos repository.TxRepos) error {
		current, err := repos.Tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if !s.policy.Allowed(current.Status, requested) {
			return apperrors.NewInvalidTransition(string(requested), map[string]any{
				"ticket_id":      ticketID,
				"current_status": current.Status,
			})
		}
		oldStatus = current.Status
		if err := repos.Tickets.UpdateStatus(ctx, ticketID, requested); err != nil {
			return err
		}
		entry := &domain.ActivityLogEntry{
			TicketID: ticketID,
			ActorID:  &actor.ID,
			Action:   domain.ActivityStatusChanged,
			Details:  map[string]any{"new_status": requested},
		}
		if err := repos.Activity.Create(ctx, entry); err != nil {
			return err
		}
		current.Status = requested
		updated = current
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticketID,
		Actor:    actor,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: requested,
		},
	})
	return updated, nil
}

// Assign sets the ticket's assignee. The target must resolve in the user
// directory; an unknown id fails validation before any store write.
func (s *WorkflowService) Assign(ctx context.Context, actor domain.Actor, ticketID, assigneeID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !authz.Allowed(s.gate, actor, authz.ActionTicketAssign, authz.TicketResource(ticket.ID)) {
		return nil, apperrors.NewForbidden("assignment not permitted")
	}
	exists, err := s.directory.UserExists(ctx, assigneeID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !exists {
		return nil, apperrors.NewValidationError("assignee does not exist", map[string]any{"assignee_id": assigneeID})
	}

	var updated *domain.Ticket
	err = s.uow.Do(ctx, func(repos repository.TxRepos) error {
		current, err := repos.Tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if err := repos.Tickets.UpdateAssignee(ctx, ticketID, &assigneeID); err != nil {
			return err
		}
		entry := &domain.ActivityLogEntry{
			TicketID: ticketID,
			ActorID:  &actor.ID,
			Action:   domain.ActivityAssigned,
			Details:  map[string]any{"new_assignee_id": assigneeID},
		}
		if err := repos.Activity.Create(ctx, entry); err != nil {
			return err
		}
		current.AssigneeID = &assigneeID
		updated = current
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticketID,
		Actor:    actor,
		Payload:  events.TicketAssignedPayload{AssigneeID: assigneeID},
	})
	return updated, nil
}

func (s *WorkflowService) publish(ctx context.Context, event events.Event) {
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
