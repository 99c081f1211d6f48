package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/jiro-tracker/internal/authz"
	"github.com/spec-kit/jiro-tracker/internal/domain"
	"github.com/spec-kit/jiro-tracker/internal/repository"
)

// memStore is an in-memory stand-in for the Postgres-backed repositories.
// The unit of work snapshots and restores it, so transactional rollback is
// observable in tests without a database.
type memStore struct {
	mu       sync.Mutex
	base     time.Time
	tick     int
	tickets  map[string]domain.Ticket
	activity []domain.ActivityLogEntry
	comments []domain.Comment
	projects map[string]domain.Project
	users    map[string]domain.User

	failUpdateStatus   bool
	failUpdateAssignee bool
	failActivityCreate bool
}

func newMemStore() *memStore {
	return &memStore{
		base:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		tickets:  make(map[string]domain.Ticket),
		projects: make(map[string]domain.Project),
		users:    make(map[string]domain.User),
	}
}

func (s *memStore) now() time.Time {
	s.tick++
	return s.base.Add(time.Duration(s.tick) * time.Millisecond)
}

type storeSnapshot struct {
	tickets  map[string]domain.Ticket
	activity []domain.ActivityLogEntry
}

func (s *memStore) snapshot() storeSnapshot {
	tickets := make(map[string]domain.Ticket, len(s.tickets))
	for id, t := range s.tickets {
		tickets[id] = t
	}
	activity := append([]domain.ActivityLogEntry(nil), s.activity...)
	return storeSnapshot{tickets: tickets, activity: activity}
}

func (s *memStore) restore(snap storeSnapshot) {
	s.tickets = snap.tickets
	s.activity = snap.activity
}

func (s *memStore) addUser(role domain.UserRole) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := domain.User{
		ID:        uuid.NewString(),
		Name:      "user-" + string(role),
		Email:     uuid.NewString() + "@example.com",
		Role:      role,
		CreatedAt: s.now(),
	}
	s.users[user.ID] = user
	return user
}

func (s *memStore) addProject(status domain.ProjectStatus) domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	project := domain.Project{
		ID:        uuid.NewString(),
		Name:      "Project",
		Key:       "PRJ",
		Status:    status,
		CreatedAt: s.now(),
	}
	s.projects[project.ID] = project
	return project
}

// memTicketRepo implements repository.TicketRepository.
type memTicketRepo struct {
	store *memStore
}

func (r *memTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = r.store.now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.store.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket, ok := r.store.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (r *memTicketRepo) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *memTicketRepo) UpdateDetails(ctx context.Context, ticket *domain.Ticket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	current, ok := r.store.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	current.Title = ticket.Title
	current.Description = ticket.Description
	current.Priority = ticket.Priority
	current.UpdatedAt = r.store.now()
	r.store.tickets[ticket.ID] = current
	return nil
}

func (r *memTicketRepo) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failUpdateStatus {
		return errors.New("store write failed")
	}
	current, ok := r.store.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	current.Status = status
	current.UpdatedAt = r.store.now()
	r.store.tickets[id] = current
	return nil
}

func (r *memTicketRepo) UpdateAssignee(ctx context.Context, id string, assigneeID *string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failUpdateAssignee {
		return errors.New("store write failed")
	}
	current, ok := r.store.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	current.AssigneeID = assigneeID
	current.UpdatedAt = r.store.now()
	r.store.tickets[id] = current
	return nil
}

func (r *memTicketRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.store.tickets, id)
	kept := r.store.activity[:0]
	for _, entry := range r.store.activity {
		if entry.TicketID != id {
			kept = append(kept, entry)
		}
	}
	r.store.activity = kept
	comments := r.store.comments[:0]
	for _, comment := range r.store.comments {
		if comment.TicketID != id {
			comments = append(comments, comment)
		}
	}
	r.store.comments = comments
	return nil
}

func (r *memTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.store.tickets {
		if filter.ProjectID != nil && ticket.ProjectID != *filter.ProjectID {
			continue
		}
		if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && ticket.Priority != *filter.Priority {
			continue
		}
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// memActivityRepo implements repository.ActivityLogRepository.
type memActivityRepo struct {
	store *memStore
}

func (r *memActivityRepo) Create(ctx context.Context, entry *domain.ActivityLogEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failActivityCreate {
		return errors.New("audit write failed")
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = r.store.now()
	r.store.activity = append(r.store.activity, *entry)
	return nil
}

func (r *memActivityRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.ActivityLogEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.ActivityLogEntry
	for _, entry := range r.store.activity {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// memCommentRepo implements repository.CommentRepository.
type memCommentRepo struct {
	store *memStore
}

func (r *memCommentRepo) Create(ctx context.Context, comment *domain.Comment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	comment.ID = uuid.NewString()
	comment.CreatedAt = r.store.now()
	r.store.comments = append(r.store.comments, *comment)
	return nil
}

func (r *memCommentRepo) ListByTicket(ctx context.Context, ticketID string, order repository.CommentOrder) ([]domain.Comment, error) {
	if order != repository.CommentOrderCreatedAsc {
		return nil, errors.New("unsupported comment order")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.Comment
	for _, comment := range r.store.comments {
		if comment.TicketID == ticketID {
			result = append(result, comment)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// memProjectRepo implements repository.ProjectRepository.
type memProjectRepo struct {
	store *memStore
}

func (r *memProjectRepo) Create(ctx context.Context, project *domain.Project) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	project.ID = uuid.NewString()
	project.CreatedAt = r.store.now()
	project.UpdatedAt = project.CreatedAt
	r.store.projects[project.ID] = *project
	return nil
}

func (r *memProjectRepo) Update(ctx context.Context, project *domain.Project) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.projects[project.ID]; !ok {
		return pgx.ErrNoRows
	}
	project.UpdatedAt = r.store.now()
	r.store.projects[project.ID] = *project
	return nil
}

func (r *memProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	project, ok := r.store.projects[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := project
	return &copied, nil
}

func (r *memProjectRepo) GetByKey(ctx context.Context, key string) (*domain.Project, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, project := range r.store.projects {
		if project.Key == key {
			copied := project
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memProjectRepo) List(ctx context.Context, status *domain.ProjectStatus) ([]domain.Project, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.Project
	for _, project := range r.store.projects {
		if status != nil && project.Status != *status {
			continue
		}
		result = append(result, project)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// memUserRepo implements repository.UserRepository.
type memUserRepo struct {
	store *memStore
}

func (r *memUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user.ID = uuid.NewString()
	user.CreatedAt = r.store.now()
	user.UpdatedAt = user.CreatedAt
	r.store.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.store.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user, ok := r.store.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := user
	return &copied, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, user := range r.store.users {
		if user.Email == email {
			copied := user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) Exists(ctx context.Context, id string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	_, ok := r.store.users[id]
	return ok, nil
}

// memUnitOfWork implements repository.UnitOfWork with snapshot rollback, so
// a failure inside the function leaves no partial state behind.
type memUnitOfWork struct {
	store *memStore
}

func (u *memUnitOfWork) Do(ctx context.Context, fn func(repos repository.TxRepos) error) error {
	u.store.mu.Lock()
	snap := u.store.snapshot()
	u.store.mu.Unlock()

	err := fn(repository.TxRepos{
		Tickets:  &memTicketRepo{store: u.store},
		Activity: &memActivityRepo{store: u.store},
	})
	if err != nil {
		u.store.mu.Lock()
		u.store.restore(snap)
		u.store.mu.Unlock()
		return err
	}
	return nil
}

// stubGate grants or denies everything.
type stubGate struct {
	allow bool
}

func (g stubGate) CanPerform(actor domain.Actor, action authz.Action, resource authz.Resource) bool {
	return g.allow
}

// harness bundles services over one shared memStore.
type harness struct {
	store    *memStore
	tickets  *TicketService
	workflow *WorkflowService
	projects *ProjectService
}

func newHarness(gate authz.Gate) *harness {
	store := newMemStore()
	ticketRepo := &memTicketRepo{store: store}
	activityRepo := &memActivityRepo{store: store}
	commentRepo := &memCommentRepo{store: store}
	projectRepo := &memProjectRepo{store: store}
	userRepo := &memUserRepo{store: store}

	return &harness{
		store: store,
		tickets: NewTicketService(TicketDependencies{
			TicketRepo:   ticketRepo,
			ProjectRepo:  projectRepo,
			CommentRepo:  commentRepo,
			ActivityRepo: activityRepo,
			Gate:         gate,
		}),
		workflow: NewWorkflowService(WorkflowDependencies{
			TicketRepo: ticketRepo,
			UnitOfWork: &memUnitOfWork{store: store},
			Gate:       gate,
			Directory:  NewUserDirectory(userRepo),
		}),
		projects: NewProjectService(projectRepo, gate, nil),
	}
}

// seedTicket creates a project and an OPEN/LOW ticket reported by a fresh user.
func (h *harness) seedTicket(ctx context.Context) (domain.Ticket, domain.Actor) {
	project := h.store.addProject(domain.ProjectStatusActive)
	reporter := h.store.addUser(domain.RoleRequester)
	agent := h.store.addUser(domain.RoleAgent)
	actor := domain.Actor{ID: agent.ID, Role: agent.Role}

	ticket, err := h.tickets.CreateTicket(ctx, actor, TicketCreateInput{
		ProjectID:  project.ID,
		Title:      "Broken login flow",
		ReporterID: reporter.ID,
	})
	if err != nil {
		panic(err)
	}
	return *ticket, actor
}
