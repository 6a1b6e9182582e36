package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/bankdesk/servicedesk/internal/domain"
)

// ServiceCategoryRepository handles the service catalog entries.
type ServiceCategoryRepository interface {
	Create(ctx context.Context, category *domain.ServiceCategory) error
	Update(ctx context.Context, category *domain.ServiceCategory) error
	GetByID(ctx context.Context, id string) (*domain.ServiceCategory, error)
	ListByDepartment(ctx context.Context, departmentID string) ([]domain.ServiceCategory, error)
}

type serviceCategoryRepository struct {
	q Querier
}

// NewServiceCategoryRepository instantiates the repository.
func NewServiceCategoryRepository(q Querier) ServiceCategoryRepository {
	return &serviceCategoryRepository{q: q}
}

const categoryColumns = `id, name, department_id, requires_approval, requires_compliance,
	government_flag, active_flag, created_at, updated_at`

func (r *serviceCategoryRepository) Create(ctx context.Context, category *domain.ServiceCategory) error {
	const query = `
        INSERT INTO service_categories (name, department_id, requires_approval, requires_compliance,
            government_flag, active_flag)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.q.QueryRow(ctx, query,
		category.Name,
		category.DepartmentID,
		category.RequiresApproval,
		category.RequiresComplianceApproval,
		category.IsGovernmentService,
		category.IsActive,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
}

func (r *serviceCategoryRepository) Update(ctx context.Context, category *domain.ServiceCategory) error {
	const query = `
        UPDATE service_categories
        SET name=$1, department_id=$2, requires_approval=$3, requires_compliance=$4,
            government_flag=$5, active_flag=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.q.Exec(ctx, query,
		category.Name,
		category.DepartmentID,
		category.RequiresApproval,
		category.RequiresComplianceApproval,
		category.IsGovernmentService,
		category.IsActive,
		category.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *serviceCategoryRepository) GetByID(ctx context.Context, id string) (*domain.ServiceCategory, error) {
	const query = `
        SELECT id, name, department_id, requires_approval, requires_compliance,
               government_flag, active_flag, created_at, updated_at
        FROM service_categories WHERE id=$1`
	var category domain.ServiceCategory
	if err := r.q.QueryRow(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.DepartmentID,
		&category.RequiresApproval,
		&category.RequiresComplianceApproval,
		&category.IsGovernmentService,
		&category.IsActive,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *serviceCategoryRepository) ListByDepartment(ctx context.Context, departmentID string) ([]domain.ServiceCategory, error) {
	const query = `
        SELECT id, name, department_id, requires_approval, requires_compliance,
               government_flag, active_flag, created_at, updated_at
        FROM service_categories WHERE department_id=$1 AND active_flag=TRUE ORDER BY name`
	rows, err := r.q.Query(ctx, query, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceCategory
	for rows.Next() {
		var category domain.ServiceCategory
		if err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.DepartmentID,
			&category.RequiresApproval,
			&category.RequiresComplianceApproval,
			&category.IsGovernmentService,
			&category.IsActive,
			&category.CreatedAt,
			&category.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}
