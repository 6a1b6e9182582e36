package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/bankdesk/servicedesk/internal/domain"
)

// ClassificationRepository persists ticket classifications. The confirmed
// pair and override reason are always written in one statement so a partial
// pair can never be observed.
type ClassificationRepository interface {
	Create(ctx context.Context, classification *domain.Classification) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.Classification, error)
	SaveSuggestion(ctx context.Context, classification *domain.Classification) error
	SaveConfirmation(ctx context.Context, classification *domain.Classification) error
	SaveLock(ctx context.Context, classification *domain.Classification) error
}

type classificationRepository struct {
	q Querier
}

// NewClassificationRepository instantiates the repository.
func NewClassificationRepository(q Querier) ClassificationRepository {
	return &classificationRepository{q: q}
}

func (r *classificationRepository) Create(ctx context.Context, classification *domain.Classification) error {
	const query = `
        INSERT INTO classifications (ticket_id, user_root_cause, user_issue_category)
        VALUES ($1,$2,$3)
        RETURNING created_at, updated_at`
	return r.q.QueryRow(ctx, query,
		classification.TicketID,
		classification.UserRootCause,
		classification.UserIssueCategory,
	).Scan(&classification.CreatedAt, &classification.UpdatedAt)
}

func (r *classificationRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.Classification, error) {
	const query = `
        SELECT ticket_id, user_root_cause, user_issue_category, confirmed_root_cause,
               confirmed_issue_category, override_reason, locked_flag, lock_reason,
               created_at, updated_at
        FROM classifications WHERE ticket_id=$1`
	var c domain.Classification
	if err := r.q.QueryRow(ctx, query, ticketID).Scan(
		&c.TicketID,
		&c.UserRootCause,
		&c.UserIssueCategory,
		&c.ConfirmedRootCause,
		&c.ConfirmedCategory,
		&c.OverrideReason,
		&c.Locked,
		&c.LockReason,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *classificationRepository) SaveSuggestion(ctx context.Context, classification *domain.Classification) error {
	const query = `
        UPDATE classifications
        SET user_root_cause=$2, user_issue_category=$3, updated_at=NOW()
        WHERE ticket_id=$1`
	return r.exec(ctx, query,
		classification.TicketID,
		classification.UserRootCause,
		classification.UserIssueCategory,
	)
}

func (r *classificationRepository) SaveConfirmation(ctx context.Context, classification *domain.Classification) error {
	const query = `
        UPDATE classifications
        SET confirmed_root_cause=$2, confirmed_issue_category=$3, override_reason=$4, updated_at=NOW()
        WHERE ticket_id=$1`
	return r.exec(ctx, query,
		classification.TicketID,
		classification.ConfirmedRootCause,
		classification.ConfirmedCategory,
		classification.OverrideReason,
	)
}

func (r *classificationRepository) SaveLock(ctx context.Context, classification *domain.Classification) error {
	const query = `
        UPDATE classifications
        SET locked_flag=$2, lock_reason=$3, updated_at=NOW()
        WHERE ticket_id=$1`
	return r.exec(ctx, query,
		classification.TicketID,
		classification.Locked,
		classification.LockReason,
	)
}

func (r *classificationRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
