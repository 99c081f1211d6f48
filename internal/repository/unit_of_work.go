package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRepos bundles the repositories participating in a workflow transaction.
// The activity repository is only reachable through here, which keeps audit
// appends inside the same transaction as the mutation they describe.
type TxRepos struct {
	Tickets  TicketRepository
	Activity ActivityLogRepository
}

// UnitOfWork runs a function against transaction-scoped repositories. The
// function's writes commit together or not at all.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos TxRepos) error) error
}

type pgxUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork builds a pgx-backed unit of work.
func NewUnitOfWork(pool *pgxpool.Pool) UnitOfWork {
	return &pgxUnitOfWork{pool: pool}
}

func (u *pgxUnitOfWork) Do(ctx context.Context, fn func(repos TxRepos) error) error {
	return pgx.BeginFunc(ctx, u.pool, func(tx pgx.Tx) error {
		return fn(TxRepos{
			Tickets:  &ticketRepository{db: tx},
			Activity: &activityLogRepository{db: tx},
		})
	})
}
