package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bankdesk/servicedesk/internal/domain"
)

// PrincipalFilter defines query params for principal listing.
type PrincipalFilter struct {
	Role               *domain.Role
	BranchID           *string
	DepartmentID       *string
	AuthorizedReviewer *bool
	Available          *bool
	Active             *bool
	Limit              int
	Offset             int
}

// PrincipalRepository handles persistence for acting identities.
type PrincipalRepository interface {
	Create(ctx context.Context, principal *domain.Principal) error
	Update(ctx context.Context, principal *domain.Principal) error
	GetByID(ctx context.Context, id string) (*domain.Principal, error)
	GetByEmail(ctx context.Context, email string) (*domain.Principal, error)
	List(ctx context.Context, filter PrincipalFilter) ([]domain.Principal, error)
}

type principalRepository struct {
	q Querier
}

// NewPrincipalRepository instantiates the repository.
func NewPrincipalRepository(q Querier) PrincipalRepository {
	return &principalRepository{q: q}
}

const principalColumns = `id, name, email, password_hash, role, branch_id, department_id,
	authorized_reviewer, available_flag, workload_capacity, active_flag, created_at, updated_at`

func (r *principalRepository) Create(ctx context.Context, principal *domain.Principal) error {
	const query = `
        INSERT INTO principals (name, email, password_hash, role, branch_id, department_id,
            authorized_reviewer, available_flag, workload_capacity, active_flag)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return r.q.QueryRow(ctx, query,
		principal.Name,
		principal.Email,
		principal.PasswordHash,
		principal.Role,
		principal.BranchID,
		principal.DepartmentID,
		principal.IsAuthorizedReviewer,
		principal.IsAvailable,
		principal.WorkloadCapacity,
		principal.Active,
	).Scan(&principal.ID, &principal.CreatedAt, &principal.UpdatedAt)
}

func (r *principalRepository) Update(ctx context.Context, principal *domain.Principal) error {
	const query = `
        UPDATE principals
        SET name=$1, email=$2, password_hash=$3, role=$4, branch_id=$5, department_id=$6,
            authorized_reviewer=$7, available_flag=$8, workload_capacity=$9, active_flag=$10, updated_at=NOW()
        WHERE id=$11`
	cmd, err := r.q.Exec(ctx, query,
		principal.Name,
		principal.Email,
		principal.PasswordHash,
		principal.Role,
		principal.BranchID,
		principal.DepartmentID,
		principal.IsAuthorizedReviewer,
		principal.IsAvailable,
		principal.WorkloadCapacity,
		principal.Active,
		principal.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *principalRepository) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	query := fmt.Sprintf(`SELECT %s FROM principals WHERE id=$1`, principalColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *principalRepository) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	query := fmt.Sprintf(`SELECT %s FROM principals WHERE email=$1`, principalColumns)
	return r.fetchSingle(ctx, query, email)
}

func (r *principalRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Principal, error) {
	var p domain.Principal
	if err := scanPrincipal(r.q.QueryRow(ctx, query, arg), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *principalRepository) List(ctx context.Context, filter PrincipalFilter) ([]domain.Principal, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.BranchID != nil {
		args = append(args, *filter.BranchID)
		clauses = append(clauses, fmt.Sprintf("branch_id=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if filter.AuthorizedReviewer != nil {
		args = append(args, *filter.AuthorizedReviewer)
		clauses = append(clauses, fmt.Sprintf("authorized_reviewer=$%d", len(args)))
	}
	if filter.Available != nil {
		args = append(args, *filter.Available)
		clauses = append(clauses, fmt.Sprintf("available_flag=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active_flag=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM principals WHERE %s ORDER BY id LIMIT %d OFFSET %d`,
		principalColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Principal
	for rows.Next() {
		var p domain.Principal
		if err := scanPrincipal(rows, &p); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func scanPrincipal(row pgx.Row, p *domain.Principal) error {
	return row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.PasswordHash,
		&p.Role,
		&p.BranchID,
		&p.DepartmentID,
		&p.IsAuthorizedReviewer,
		&p.IsAvailable,
		&p.WorkloadCapacity,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}
