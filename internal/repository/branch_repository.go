package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/bankdesk/servicedesk/internal/domain"
)

// BranchRepository handles persistence for the branch directory.
type BranchRepository interface {
	Create(ctx context.Context, branch *domain.Branch) error
	Update(ctx context.Context, branch *domain.Branch) error
	GetByID(ctx context.Context, id string) (*domain.Branch, error)
	GetByCode(ctx context.Context, code string) (*domain.Branch, error)
	ListActive(ctx context.Context) ([]domain.Branch, error)
}

type branchRepository struct {
	q Querier
}

// NewBranchRepository instantiates the repository.
func NewBranchRepository(q Querier) BranchRepository {
	return &branchRepository{q: q}
}

func (r *branchRepository) Create(ctx context.Context, branch *domain.Branch) error {
	const query = `
        INSERT INTO branches (code, name, kind, parent_id, active_flag)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.q.QueryRow(ctx, query,
		branch.Code,
		branch.Name,
		branch.Kind,
		branch.ParentID,
		branch.IsActive,
	).Scan(&branch.ID, &branch.CreatedAt, &branch.UpdatedAt)
}

func (r *branchRepository) Update(ctx context.Context, branch *domain.Branch) error {
	const query = `
        UPDATE branches SET code=$1, name=$2, kind=$3, parent_id=$4, active_flag=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.q.Exec(ctx, query,
		branch.Code,
		branch.Name,
		branch.Kind,
		branch.ParentID,
		branch.IsActive,
		branch.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *branchRepository) GetByID(ctx context.Context, id string) (*domain.Branch, error) {
	const query = `
        SELECT id, code, name, kind, parent_id, active_flag, created_at, updated_at
        FROM branches WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *branchRepository) GetByCode(ctx context.Context, code string) (*domain.Branch, error) {
	const query = `
        SELECT id, code, name, kind, parent_id, active_flag, created_at, updated_at
        FROM branches WHERE code=$1`
	return r.fetchSingle(ctx, query, code)
}

func (r *branchRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Branch, error) {
	var branch domain.Branch
	if err := r.q.QueryRow(ctx, query, arg).Scan(
		&branch.ID,
		&branch.Code,
		&branch.Name,
		&branch.Kind,
		&branch.ParentID,
		&branch.IsActive,
		&branch.CreatedAt,
		&branch.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *branchRepository) ListActive(ctx context.Context) ([]domain.Branch, error) {
	const query = `
        SELECT id, code, name, kind, parent_id, active_flag, created_at, updated_at
        FROM branches WHERE active_flag = TRUE ORDER BY code`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Branch
	for rows.Next() {
		var branch domain.Branch
		if err := rows.Scan(
			&branch.ID,
			&branch.Code,
			&branch.Name,
			&branch.Kind,
			&branch.ParentID,
			&branch.IsActive,
			&branch.CreatedAt,
			&branch.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, branch)
	}
	return result, rows.Err()
}
