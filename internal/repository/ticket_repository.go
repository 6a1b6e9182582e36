package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bankdesk/servicedesk/internal/domain"
)

// TicketFilter captures listing parameters. BranchID is how tenant isolation
// is applied for branch-scoped actors.
type TicketFilter struct {
	CreatorID   *string
	BranchID    *string
	AssigneeID  *string
	CategoryID  *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByExternalKey(ctx context.Context, key string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// AssignIfUnassigned sets the assignee and ASSIGNED status only when no
	// assignee is present yet; reports whether the write happened.
	AssignIfUnassigned(ctx context.Context, ticketID, technicianID string) (bool, error)
	// UpdateStatusIf advances the status only when the current row still holds
	// the expected one, guarding concurrent approvals.
	UpdateStatusIf(ctx context.Context, ticketID string, expected, next domain.TicketStatus) (bool, error)
	OpenWorkloadByAssignees(ctx context.Context, assigneeIDs []string) (map[string]int, error)
}

type ticketRepository struct {
	q Querier
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(q Querier) TicketRepository {
	return &ticketRepository{q: q}
}

const ticketColumns = `id, external_key, title, description, priority, status, branch_id,
	creator_id, assignee_id, service_category_id, requires_compliance, government_flag,
	created_at, updated_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, title, description, priority, status, branch_id,
            creator_id, assignee_id, service_category_id, requires_compliance, government_flag)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.q.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.BranchID,
		ticket.CreatorID,
		ticket.AssigneeID,
		ticket.ServiceCategoryID,
		ticket.RequiresComplianceApproval,
		ticket.IsGovernmentTicket,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

// Update never touches branch_id or creator_id: the owning branch is the
// immutable tenant key.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, priority=$3, status=$4, assignee_id=$5,
            service_category_id=$6, requires_compliance=$7, government_flag=$8, closed_at=$9, updated_at=NOW()
        WHERE id=$10`
	cmd, err := r.q.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.AssigneeID,
		ticket.ServiceCategoryID,
		ticket.RequiresComplianceApproval,
		ticket.IsGovernmentTicket,
		ticket.ClosedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByExternalKey(ctx context.Context, key string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE external_key=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, key)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.q.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) AssignIfUnassigned(ctx context.Context, ticketID, technicianID string) (bool, error) {
	const query = `
        UPDATE tickets SET assignee_id=$2, status=$3, updated_at=NOW()
        WHERE id=$1 AND assignee_id IS NULL`
	cmd, err := r.q.Exec(ctx, query, ticketID, technicianID, domain.TicketStatusAssigned)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) UpdateStatusIf(ctx context.Context, ticketID string, expected, next domain.TicketStatus) (bool, error) {
	const query = `
        UPDATE tickets SET status=$3, updated_at=NOW()
        WHERE id=$1 AND status=$2`
	cmd, err := r.q.Exec(ctx, query, ticketID, expected, next)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) OpenWorkloadByAssignees(ctx context.Context, assigneeIDs []string) (map[string]int, error) {
	result := make(map[string]int, len(assigneeIDs))
	if len(assigneeIDs) == 0 {
		return result, nil
	}
	const query = `
        SELECT assignee_id, COUNT(*) FROM tickets
        WHERE assignee_id = ANY($1) AND status IN ($2,$3,$4)
        GROUP BY assignee_id`
	rows, err := r.q.Query(ctx, query, assigneeIDs,
		domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		result[id] = count
	}
	return result, rows.Err()
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatorID != nil {
		args = append(args, *filter.CreatorID)
		clauses = append(clauses, fmt.Sprintf("creator_id=$%d", len(args)))
	}
	if filter.BranchID != nil {
		args = append(args, *filter.BranchID)
		clauses = append(clauses, fmt.Sprintf("branch_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("service_category_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.BranchID,
		&ticket.CreatorID,
		&ticket.AssigneeID,
		&ticket.ServiceCategoryID,
		&ticket.RequiresComplianceApproval,
		&ticket.IsGovernmentTicket,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	)
}
