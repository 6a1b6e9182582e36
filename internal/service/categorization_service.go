package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bankdesk/servicedesk/internal/domain"
	"github.com/bankdesk/servicedesk/internal/events"
	"github.com/bankdesk/servicedesk/internal/observability"
	"github.com/bankdesk/servicedesk/internal/repository"
	"github.com/bankdesk/servicedesk/internal/workflow"
	apperrors "github.com/bankdesk/servicedesk/pkg/util"
)

// CategorizationService applies the root-cause and issue-category rules to
// tickets: requester suggestion, technician confirmation with override
// capture, bulk reclassification and administrative locking.
type CategorizationService struct {
	store      *repository.Store
	uow        repository.UnitOfWork
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
}

// CategorizationDependencies bundles collaborators.
type CategorizationDependencies struct {
	Store      *repository.Store
	UnitOfWork repository.UnitOfWork
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
}

// NewCategorizationService creates the service.
func NewCategorizationService(deps CategorizationDependencies) *CategorizationService {
	return &CategorizationService{
		store:      deps.Store,
		uow:        deps.UnitOfWork,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
	}
}

// Suggest records the creator's one-time classification suggestion.
func (s *CategorizationService) Suggest(ctx context.Context, actor *domain.Principal, ticketID string, rc domain.RootCause, ic domain.IssueCategory) (*domain.Classification, error) {
	ticket, classification, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.CreatorID != actor.ID {
		return nil, apperrors.NewForbidden("only the ticket creator may suggest a classification")
	}
	if err := workflow.ApplySuggestion(classification, actor, rc, ic); err != nil {
		return nil, err
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx *repository.Store) error {
		return apperrors.MapError(tx.Classifications.SaveSuggestion(ctx, classification))
	})
	if err != nil {
		return nil, err
	}
	return classification, nil
}

// Confirm sets the authoritative classification. Divergence from the
// requester suggestion requires a reason; the confirmed pair and the reason
// commit together.
func (s *CategorizationService) Confirm(ctx context.Context, actor *domain.Principal, ticketID string, rc domain.RootCause, ic domain.IssueCategory, reason string) (*domain.Classification, error) {
	ticket, classification, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canAccessTicket(actor, ticket) {
		return nil, apperrors.NewForbidden("ticket belongs to another branch")
	}
	if err := workflow.ApplyConfirmation(classification, actor, rc, ic, reason); err != nil {
		return nil, err
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx *repository.Store) error {
		if err := tx.Classifications.SaveConfirmation(ctx, classification); err != nil {
			return apperrors.MapError(err)
		}
		entry := &domain.AuditEntry{
			TicketID:   ticket.ID,
			ActorID:    &actor.ID,
			ChangeType: domain.ChangeTypeClassification,
			OldValue: map[string]any{
				"user_root_cause":     classification.UserRootCause,
				"user_issue_category": classification.UserIssueCategory,
			},
			NewValue: map[string]any{
				"confirmed_root_cause":     rc,
				"confirmed_issue_category": ic,
				"override_reason":          classification.OverrideReason,
			},
		}
		return apperrors.MapError(tx.Audit.Create(ctx, entry))
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		kind := "confirmed"
		if classification.OverrideReason != nil {
			kind = "override"
		}
		s.metrics.CategorizationsTotal.WithLabelValues(kind).Inc()
	}
	s.publishEvent(ctx, actor.ID, ticket.ID, events.EventClassificationConfirmed, events.ClassificationConfirmedPayload{
		RootCause:      rc,
		IssueCategory:  ic,
		OverrideReason: classification.OverrideReason,
	})
	return classification, nil
}

// BulkItemResult reports one ticket's outcome within a bulk confirmation.
type BulkItemResult struct {
	TicketID string `json:"ticket_id"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
}

// BulkResult aggregates a bulk confirmation. Tickets are processed
// independently; one failure never rolls back the others.
type BulkResult struct {
	ProcessedCount int              `json:"processed_count"`
	Results        []BulkItemResult `json:"results"`
}

// BulkConfirm applies the same confirmed classification to every ticket in
// the batch and returns per-ticket results.
func (s *CategorizationService) BulkConfirm(ctx context.Context, actor *domain.Principal, ticketIDs []string, rc domain.RootCause, ic domain.IssueCategory, reason string) (*BulkResult, error) {
	if len(ticketIDs) == 0 {
		return nil, apperrors.NewValidationError("ticket_ids required", nil)
	}
	// fail the whole batch only on malformed input; per-ticket errors are data
	if err := workflow.ValidatePair(rc, ic); err != nil {
		return nil, err
	}

	result := &BulkResult{Results: make([]BulkItemResult, 0, len(ticketIDs))}
	for _, ticketID := range ticketIDs {
		item := BulkItemResult{TicketID: ticketID}
		if _, err := s.Confirm(ctx, actor, ticketID, rc, ic, reason); err != nil {
			domainErr := apperrors.ToDomainError(err)
			item.Code = domainErr.Code
			item.Message = domainErr.Message
		} else {
			result.ProcessedCount++
		}
		result.Results = append(result.Results, item)
	}
	return result, nil
}

// Lock freezes or unfreezes a ticket's classification. Admin only; while
// locked, non-admin confirmations fail with CLASSIFICATION_LOCKED.
func (s *CategorizationService) Lock(ctx context.Context, actor *domain.Principal, ticketID string, locked bool, reason string) (*domain.Classification, error) {
	ticket, classification, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	wasLocked := classification.Locked
	if err := workflow.ApplyLock(classification, actor, locked, reason); err != nil {
		return nil, err
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx *repository.Store) error {
		if err := tx.Classifications.SaveLock(ctx, classification); err != nil {
			return apperrors.MapError(err)
		}
		entry := &domain.AuditEntry{
			TicketID:   ticket.ID,
			ActorID:    &actor.ID,
			ChangeType: domain.ChangeTypeLock,
			OldValue:   map[string]any{"locked": wasLocked},
			NewValue:   map[string]any{"locked": locked, "reason": reason},
		}
		return apperrors.MapError(tx.Audit.Create(ctx, entry))
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, actor.ID, ticket.ID, events.EventClassificationLocked, events.ClassificationLockedPayload{
		Locked: locked,
		Reason: reason,
	})
	return classification, nil
}

// Get returns the classification for a ticket the actor may see.
func (s *CategorizationService) Get(ctx context.Context, actor *domain.Principal, ticketID string) (*domain.Classification, error) {
	ticket, classification, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canAccessTicket(actor, ticket) && ticket.CreatorID != actor.ID {
		return nil, apperrors.NewForbidden("ticket belongs to another branch")
	}
	return classification, nil
}

func (s *CategorizationService) load(ctx context.Context, ticketID string) (*domain.Ticket, *domain.Classification, error) {
	ticket, err := s.store.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	classification, err := s.store.Classifications.GetByTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("classification", map[string]any{"ticket_id": ticketID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, classification, nil
}

func (s *CategorizationService) publishEvent(ctx context.Context, actorID, ticketID string, eventType events.EventType, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		ActorID:   actorID,
		Timestamp: time.Now(),
		Payload:   payload,
	}
	_ = s.dispatcher.Publish(ctx, event)
}
