package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/jiro-tracker/internal/domain"
)

// setupTestPool connects to the database named by TEST_DATABASE_URL and runs
// the migrations. Tests are skipped when the variable is unset, so the
// package still passes without a local Postgres.
func setupTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skipf("TEST_DATABASE_URL not set; skipping database tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))

	applyMigrations(t, ctx, pool)
	for _, table := range []string{"activity_log", "comments", "tickets", "users", "projects"} {
		_, err := pool.Exec(ctx, "DELETE FROM "+table)
		require.NoError(t, err)
	}
	return pool
}

func applyMigrations(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	dir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(content))
		require.NoError(t, err, "migration %s", name)
	}
}

func seedProjectAndUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool) (domain.Project, domain.User) {
	t.Helper()
	projects := NewProjectRepository(pool)
	users := NewUserRepository(pool)

	project := domain.Project{
		Name:   "Test Project",
		Key:    "TST" + uuid.NewString()[:4],
		Status: domain.ProjectStatusActive,
	}
	require.NoError(t, projects.Create(ctx, &project))

	user := domain.User{
		Name:         "Agent",
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Role:         domain.RoleAgent,
	}
	require.NoError(t, users.Create(ctx, &user))
	return project, user
}

func seedTicket(t *testing.T, ctx context.Context, pool *pgxpool.Pool, project domain.Project, reporter domain.User) domain.Ticket {
	t.Helper()
	tickets := NewTicketRepository(pool)
	ticket := domain.Ticket{
		ExternalKey: project.Key + "-" + uuid.NewString()[:8],
		ProjectID:   project.ID,
		ReporterID:  reporter.ID,
		Title:       "Fixture ticket",
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityLow,
	}
	require.NoError(t, tickets.Create(ctx, &ticket))
	return ticket
}

func TestTicketRepositoryCRUD(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	project, user := seedProjectAndUser(t, ctx, pool)
	tickets := NewTicketRepository(pool)

	ticket := seedTicket(t, ctx, pool, project, user)
	require.NotEmpty(t, ticket.ID)

	fetched, err := tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.Title, fetched.Title)
	assert.Nil(t, fetched.AssigneeID)

	fetched.Title = "Renamed"
	fetched.Priority = domain.TicketPriorityHigh
	require.NoError(t, tickets.UpdateDetails(ctx, fetched))

	require.NoError(t, tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusBlocked))
	require.NoError(t, tickets.UpdateAssignee(ctx, ticket.ID, &user.ID))

	fetched, err = tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", fetched.Title)
	assert.Equal(t, domain.TicketStatusBlocked, fetched.Status)
	require.NotNil(t, fetched.AssigneeID)
	assert.Equal(t, user.ID, *fetched.AssigneeID)

	require.NoError(t, tickets.Delete(ctx, ticket.ID))
	_, err = tickets.GetByID(ctx, ticket.ID)
	assert.True(t, errors.Is(err, pgx.ErrNoRows))
	assert.True(t, errors.Is(tickets.Delete(ctx, ticket.ID), pgx.ErrNoRows))
}

func TestTicketRepositoryFilter(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	project, user := seedProjectAndUser(t, ctx, pool)
	tickets := NewTicketRepository(pool)

	a := seedTicket(t, ctx, pool, project, user)
	b := seedTicket(t, ctx, pool, project, user)
	require.NoError(t, tickets.UpdateStatus(ctx, b.ID, domain.TicketStatusResolved))

	open := domain.TicketStatusOpen
	byStatus, err := tickets.ListWithFilter(ctx, TicketFilter{Status: &open})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, a.ID, byStatus[0].ID)

	all, err := tickets.ListWithFilter(ctx, TicketFilter{ProjectID: &project.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	paged, err := tickets.ListWithFilter(ctx, TicketFilter{ProjectID: &project.ID, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, b.ID, paged[0].ID)
}

func TestUnitOfWorkRollsBackOnError(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	project, user := seedProjectAndUser(t, ctx, pool)
	ticket := seedTicket(t, ctx, pool, project, user)

	uow := NewUnitOfWork(pool)
	sentinel := errors.New("boom")
	err := uow.Do(ctx, func(repos TxRepos) error {
		if err := repos.Tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusResolved); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	fetched, err := NewTicketRepository(pool).GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, fetched.Status)
}

func TestUnitOfWorkCommitsStatusAndActivityTogether(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	project, user := seedProjectAndUser(t, ctx, pool)
	ticket := seedTicket(t, ctx, pool, project, user)

	uow := NewUnitOfWork(pool)
	err := uow.Do(ctx, func(repos TxRepos) error {
		if _, err := repos.Tickets.GetForUpdate(ctx, ticket.ID); err != nil {
			return err
		}
		if err := repos.Tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusInProgress); err != nil {
			return err
		}
		return repos.Activity.Create(ctx, &domain.ActivityLogEntry{
			TicketID: ticket.ID,
			ActorID:  &user.ID,
			Action:   domain.ActivityStatusChanged,
			Details:  map[string]any{"new_status": domain.TicketStatusInProgress},
		})
	})
	require.NoError(t, err)

	entries, err := NewActivityLogRepository(pool).ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActivityStatusChanged, entries[0].Action)
	assert.Equal(t, "IN_PROGRESS", entries[0].Details["new_status"])
}

func TestCommentRepositoryOrdering(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	project, user := seedProjectAndUser(t, ctx, pool)
	ticket := seedTicket(t, ctx, pool, project, user)
	comments := NewCommentRepository(pool)

	for _, body := range []string{"first", "second", "third"} {
		comment := domain.Comment{TicketID: ticket.ID, AuthorID: user.ID, Content: body}
		require.NoError(t, comments.Create(ctx, &comment))
	}

	listed, err := comments.ListByTicket(ctx, ticket.ID, CommentOrderCreatedAsc)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "first", listed[0].Content)
	assert.Equal(t, "third", listed[2].Content)

	_, err = comments.ListByTicket(ctx, ticket.ID, CommentOrder("created_desc"))
	require.Error(t, err)
}

func TestUserRepositoryExists(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	_, user := seedProjectAndUser(t, ctx, pool)
	users := NewUserRepository(pool)

	exists, err := users.Exists(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = users.Exists(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.False(t, exists)
}
