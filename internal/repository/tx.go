package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the query surface shared by *pgxpool.Pool and pgx.Tx, so every
// repository works both standalone and inside a unit of work.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles the repositories over one Querier. The orchestrator receives
// a pool-backed Store for reads and tx-backed Stores inside WithinTx.
type Store struct {
	Branches        BranchRepository
	Principals      PrincipalRepository
	Tickets         TicketRepository
	Categories      ServiceCategoryRepository
	Compliance      ComplianceRepository
	Classifications ClassificationRepository
	Audit           AuditRepository
}

// NewStore builds a Store over the given querier.
func NewStore(q Querier) *Store {
	return &Store{
		Branches:        NewBranchRepository(q),
		Principals:      NewPrincipalRepository(q),
		Tickets:         NewTicketRepository(q),
		Categories:      NewServiceCategoryRepository(q),
		Compliance:      NewComplianceRepository(q),
		Classifications: NewClassificationRepository(q),
		Audit:           NewAuditRepository(q),
	}
}

// UnitOfWork commits a function over a Store atomically. Tests substitute an
// in-memory implementation.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s *Store) error) error
}

type txManager struct {
	pool *pgxpool.Pool
}

// NewTxManager builds the pgx-backed unit of work.
func NewTxManager(pool *pgxpool.Pool) UnitOfWork {
	return &txManager{pool: pool}
}

func (m *txManager) WithinTx(ctx context.Context, fn func(ctx context.Context, s *Store) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, NewStore(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
