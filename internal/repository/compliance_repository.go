package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/bankdesk/servicedesk/internal/domain"
)

// ComplianceRepository persists the compliance review records.
type ComplianceRepository interface {
	Create(ctx context.Context, approval *domain.ComplianceApproval) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.ComplianceApproval, error)
	// DecideIfPending writes the decision only while the record is still
	// pending. The conditional UPDATE is the commit-time recheck: under two
	// concurrent approvals exactly one caller sees decided=true.
	DecideIfPending(ctx context.Context, ticketID string, status domain.ComplianceStatus, deciderID, comments string, documentsVerified bool) (bool, error)
	// AdminOverride rewrites a decided record; callers must gate on the admin
	// role and append an audit entry in the same unit of work.
	AdminOverride(ctx context.Context, ticketID string, status domain.ComplianceStatus, deciderID, comments string) error
}

type complianceRepository struct {
	q Querier
}

// NewComplianceRepository instantiates the repository.
func NewComplianceRepository(q Querier) ComplianceRepository {
	return &complianceRepository{q: q}
}

func (r *complianceRepository) Create(ctx context.Context, approval *domain.ComplianceApproval) error {
	const query = `
        INSERT INTO compliance_approvals (ticket_id, reviewer_id, status, comments, documents_verified)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.q.QueryRow(ctx, query,
		approval.TicketID,
		approval.ReviewerID,
		approval.Status,
		approval.Comments,
		approval.DocumentsVerified,
	).Scan(&approval.ID, &approval.CreatedAt, &approval.UpdatedAt)
}

func (r *complianceRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.ComplianceApproval, error) {
	const query = `
        SELECT id, ticket_id, reviewer_id, status, comments, documents_verified,
               decided_by, decided_at, created_at, updated_at
        FROM compliance_approvals WHERE ticket_id=$1`
	var approval domain.ComplianceApproval
	if err := r.q.QueryRow(ctx, query, ticketID).Scan(
		&approval.ID,
		&approval.TicketID,
		&approval.ReviewerID,
		&approval.Status,
		&approval.Comments,
		&approval.DocumentsVerified,
		&approval.DecidedByID,
		&approval.DecidedAt,
		&approval.CreatedAt,
		&approval.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *complianceRepository) DecideIfPending(ctx context.Context, ticketID string, status domain.ComplianceStatus, deciderID, comments string, documentsVerified bool) (bool, error) {
	const query = `
        UPDATE compliance_approvals
        SET status=$2, decided_by=$3, comments=$4, documents_verified=$5, decided_at=NOW(), updated_at=NOW()
        WHERE ticket_id=$1 AND status=$6`
	cmd, err := r.q.Exec(ctx, query, ticketID, status, deciderID, comments, documentsVerified,
		domain.ComplianceStatusPending)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *complianceRepository) AdminOverride(ctx context.Context, ticketID string, status domain.ComplianceStatus, deciderID, comments string) error {
	const query = `
        UPDATE compliance_approvals
        SET status=$2, decided_by=$3, comments=$4, decided_at=NOW(), updated_at=NOW()
        WHERE ticket_id=$1`
	cmd, err := r.q.Exec(ctx, query, ticketID, status, deciderID, comments)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
