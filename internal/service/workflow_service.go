package service

import (
	"context"
	"errors"
	"strings"
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

// WorkflowService is the orchestrator: it sequences the state machine, the
// approval predicate and the repositories, and is the only component that
// touches the store's write path. Every operation commits as one transaction.
type WorkflowService struct {
	store      *repository.Store
	uow        repository.UnitOfWork
	directory  *DirectoryService
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
}

// WorkflowDependencies bundles the orchestrator's collaborators.
type WorkflowDependencies struct {
	Store      *repository.Store
	UnitOfWork repository.UnitOfWork
	Directory  *DirectoryService
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
}

// NewWorkflowService constructs the orchestrator.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	return &WorkflowService{
		store:      deps.Store,
		uow:        deps.UnitOfWork,
		directory:  deps.Directory,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title             string
	Description       string
	Priority          domain.TicketPriority
	ServiceCategoryID string
	BranchID          string
	UserRootCause     *domain.RootCause
	UserIssueCategory *domain.IssueCategory
}

// CreateTicket files a new ticket: validates the catalog entry and branch,
// derives the entry status and the compliance flag, and atomically creates
// the ticket, its classification row and, when required, the pending
// compliance review.
func (s *WorkflowService) CreateTicket(ctx context.Context, creator *domain.Principal, input TicketCreateInput) (*domain.Ticket, error) {
	if !creator.Capabilities().CanCreateTickets {
		return nil, apperrors.NewForbidden("principal cannot create tickets")
	}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" || input.ServiceCategoryID == "" || input.BranchID == "" {
		return nil, apperrors.NewValidationError("title, description, service_category_id and branch_id are required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(priority)})
	}
	if input.UserRootCause != nil && input.UserIssueCategory != nil {
		if err := workflow.ValidatePair(*input.UserRootCause, *input.UserIssueCategory); err != nil {
			return nil, err
		}
	} else if input.UserRootCause != nil || input.UserIssueCategory != nil {
		return nil, apperrors.NewValidationError("root cause and issue category must be suggested together", nil)
	}

	// requesters file against their own branch only
	if !creator.Capabilities().CanAdministrate && !creator.SameBranch(input.BranchID) {
		return nil, apperrors.NewForbidden("ticket branch must match the creator's branch")
	}
	active, err := s.directory.IsActive(ctx, input.BranchID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apperrors.NewConflict("branch inactive", map[string]any{"branch_id": input.BranchID})
	}

	category, err := s.store.Categories.GetByID(ctx, input.ServiceCategoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("service category", map[string]any{"service_category_id": input.ServiceCategoryID})
		}
		return nil, apperrors.MapError(err)
	}
	if !category.IsActive {
		return nil, apperrors.NewConflict("service category inactive", map[string]any{"service_category_id": category.ID})
	}

	requiresCompliance := category.RequiresComplianceApproval || category.IsGovernmentService

	ticket := &domain.Ticket{
		ExternalKey:                generateTicketKey(),
		Title:                      title,
		Description:                description,
		Priority:                   priority,
		Status:                     workflow.InitialStatus(category),
		BranchID:                   input.BranchID,
		CreatorID:                  creator.ID,
		ServiceCategoryID:          category.ID,
		RequiresComplianceApproval: requiresCompliance,
		IsGovernmentTicket:         category.IsGovernmentService,
	}

	var reviewerID *string
	if requiresCompliance {
		reviewerID, err = s.resolveComplianceReviewer(ctx, input.BranchID)
		if err != nil {
			return nil, err
		}
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx *repository.Store) error {
		if err := tx.Tickets.Create(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		classification := &domain.Classification{
			TicketID:          ticket.ID,
			UserRootCause:     input.UserRootCause,
			UserIssueCategory: input.UserIssueCategory,
		}
		if err := tx.Classifications.Create(ctx, classification); err != nil {
			return apperrors.MapError(err)
		}
		if requiresCompliance {
			approval := &domain.ComplianceApproval{
				TicketID:   ticket.ID,
				ReviewerID: reviewerID,
				Status:     domain.ComplianceStatusPending,
			}
			if err := tx.Compliance.Create(ctx, approval); err != nil {
				return apperrors.MapError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  creator.ID,
		Payload: events.TicketCreatedPayload{
			BranchID:           ticket.BranchID,
			ServiceCategoryID:  ticket.ServiceCategoryID,
			Priority:           ticket.Priority,
			Status:             ticket.Status,
			RequiresCompliance: ticket.RequiresComplianceApproval,
			Title:              ticket.Title,
		},
	})
	return ticket, nil
}

// Approve grants the pending approval. The authorization predicate runs on
// the read snapshot; the pending recheck happens again at commit time through
// conditional updates, so of two concurrent approvals exactly one wins and
// the loser gets ALREADY_PROCESSED.
func (s *WorkflowService) Approve(ctx context.Context, actor *domain.Principal, ticketID, comments string) (*domain.Ticket, error) {
	return s.decide(ctx, actor, ticketID, comments, true)
}

// Reject refuses the pending approval under the same authorization rules.
func (s *WorkflowService) Reject(ctx context.Context, actor *domain.Principal, ticketID, comments string) (*domain.Ticket, error) {
	return s.decide(ctx, actor, ticketID, comments, false)
}

func (s *WorkflowService) decide(ctx context.Context, actor *domain.Principal, ticketID, comments string, approve bool) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	var compliance *domain.ComplianceApproval
	if ticket.RequiresComplianceApproval {
		compliance, err = s.store.Compliance.GetByTicket(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("compliance approval", map[string]any{"ticket_id": ticketID})
			}
			return nil, apperrors.MapError(err)
		}
	}

	decision := workflow.Authorize(workflow.ApprovalRequest{
		Ticket:     ticket,
		Compliance: compliance,
		Actor:      actor,
	})
	outcome := "deny"
	if decision.Allow {
		outcome = "allow"
	}
	if s.metrics != nil {
		s.metrics.ApprovalsTotal.WithLabelValues(outcome, decision.Reason).Inc()
	}
	if !decision.Allow {
		if decision.Reason == workflow.ReasonNotPending {
			return nil, apperrors.NewAlreadyProcessed("approval already decided")
		}
		return nil, apperrors.NewApprovalDenied("approval not permitted for this principal", decision.Reason)
	}

	target := domain.TicketStatusApproved
	complianceStatus := domain.ComplianceStatusApproved
	eventType := events.EventTicketApproved
	if !approve {
		target = domain.TicketStatusRejected
		complianceStatus = domain.ComplianceStatusRejected
		eventType = events.EventTicketRejected
	}
	if !workflow.CanTransition(ticket.Status, target) {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(target))
	}

	oldStatus := ticket.Status
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx *repository.Store) error {
		if compliance != nil {
			decided, err := tx.Compliance.DecideIfPending(ctx, ticket.ID, complianceStatus, actor.ID, comments, approve)
			if err != nil {
				return apperrors.MapError(err)
			}
			if !decided {
				return apperrors.NewAlreadyProcessed("compliance approval already decided")
			}
		}
		moved, err := tx.Tickets.UpdateStatusIf(ctx, ticket.ID, domain.TicketStatusPendingApproval, target)
		if err != nil {
			return apperrors.MapError(err)
		}
		if !moved {
			return apperrors.NewAlreadyProcessed("ticket approval already decided")
		}
		entry := &domain.AuditEntry{
			TicketID:   ticket.ID,
			ActorID:    &actor.ID,
			ChangeType: domain.ChangeTypeApproval,
			OldValue:   map[string]any{"status": oldStatus},
			NewValue:   map[string]any{"status": target, "reason": decision.Reason, "comments": comments},
		}
		return apperrors.MapError(tx.Audit.Create(ctx, entry))
	})
	if err != nil {
		return nil, err
	}
	ticket.Status = target

	s.publishEvent(ctx, events.Event{
		Type:     eventType,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.ApprovalDecisionPayload{
			Decision: string(target),
			Reason:   decision.Reason,
			Comments: comments,
		},
	})
	if compliance != nil {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventComplianceDecided,
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Payload: events.ComplianceDecidedPayload{
				Status:            complianceStatus,
				DocumentsVerified: approve,
				Comments:          comments,
			},
		})
	}
	return ticket, nil
}

// OverrideComplianceDecision rewrites an already-decided compliance review on
// behalf of an admin. The rewrite and its reason are recorded as an audit
// entry in the same transaction; the ticket status is left alone, corrections
// to the lifecycle go through the regular transition operations.
func (s *WorkflowService) OverrideComplianceDecision(ctx context.Context, actor *domain.Principal, ticketID string, approve bool, comments string) (*domain.ComplianceApproval, error) {
	if !actor.Capabilities().CanAdministrate {
		return nil, apperrors.NewForbidden("compliance override requires the admin role")
	}
	if _, err := s.loadTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	compliance, err := s.store.Compliance.GetByTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("compliance approval", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if compliance.Status == domain.ComplianceStatusPending {
		return nil, apperrors.NewConflict("compliance review still pending, use approve or reject", map[string]any{"ticket_id": ticketID})
	}

	target := domain.ComplianceStatusApproved
	if !approve {
		target = domain.ComplianceStatusRejected
	}
	oldStatus := compliance.Status
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx *repository.Store) error {
		if err := tx.Compliance.AdminOverride(ctx, ticketID, target, actor.ID, comments); err != nil {
			return apperrors.MapError(err)
		}
		entry := &domain.AuditEntry{
			TicketID:   ticketID,
			ActorID:    &actor.ID,
			ChangeType: domain.ChangeTypeCompliance,
			OldValue:   map[string]any{"compliance_status": oldStatus},
			NewValue:   map[string]any{"compliance_status": target, "comments": comments, "override": true},
		}
		return apperrors.MapError(tx.Audit.Create(ctx, entry))
	})
	if err != nil {
		return nil, err
	}

	compliance.Status = target
	compliance.DecidedByID = &actor.ID
	compliance.Comments = comments
	s.publishEvent(ctx, events.Event{
		Type:     events.EventComplianceDecided,
		TicketID: ticketID,
		ActorID:  actor.ID,
		Payload: events.ComplianceDecidedPayload{
			Status:            target,
			DocumentsVerified: compliance.DocumentsVerified,
			Comments:          comments,
		},
	})
	return compliance, nil
}

// TransitionStatus moves a ticket along a legal lifecycle edge on behalf of
// the actor. Safe to retry: a raced transition surfaces ALREADY_PROCESSED
// instead of double-applying.
func (s *WorkflowService) TransitionStatus(ctx context.Context, actor *domain.Principal, ticketID string, target domain.TicketStatus, comment string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canAccessTicket(actor, ticket) {
		return nil, apperrors.NewForbidden("ticket belongs to another branch")
	}
	// approval edges go through Approve/Reject so the authorization predicate
	// and the compliance recheck cannot be bypassed
	if target == domain.TicketStatusApproved || target == domain.TicketStatusRejected {
		return nil, apperrors.NewForbidden("approval decisions use the approve and reject operations")
	}

	oldStatus := ticket.Status
	if err := workflow.Transition(ticket, target, actor); err != nil {
		return nil, err
	}
	if target == domain.TicketStatusClosed {
		now := time.Now()
		ticket.ClosedAt = &now
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx *repository.Store) error {
		moved, err := tx.Tickets.UpdateStatusIf(ctx, ticket.ID, oldStatus, target)
		if err != nil {
			return apperrors.MapError(err)
		}
		if !moved {
			return apperrors.NewAlreadyProcessed("ticket status changed concurrently")
		}
		if ticket.ClosedAt != nil {
			if err := tx.Tickets.Update(ctx, ticket); err != nil {
				return apperrors.MapError(err)
			}
		}
		entry := &domain.AuditEntry{
			TicketID:   ticket.ID,
			ActorID:    &actor.ID,
			ChangeType: domain.ChangeTypeStatus,
			OldValue:   map[string]any{"status": oldStatus},
			NewValue:   map[string]any{"status": target, "comment": comment},
		}
		return apperrors.MapError(tx.Audit.Create(ctx, entry))
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: target,
			Comment:   comment,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket with branch isolation applied.
func (s *WorkflowService) GetTicket(ctx context.Context, actor *domain.Principal, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canAccessTicket(actor, ticket) && ticket.CreatorID != actor.ID {
		return nil, apperrors.NewForbidden("ticket belongs to another branch")
	}
	return ticket, nil
}

// ListTickets lists tickets visible to the actor; branch isolation is
// enforced by filtering, not by locks.
func (s *WorkflowService) ListTickets(ctx context.Context, actor *domain.Principal, filter repository.TicketFilter) ([]domain.Ticket, error) {
	caps := actor.Capabilities()
	switch {
	case caps.CrossBranchVisible:
		// admins and department technicians keep the caller's filter
	case actor.Role == domain.RoleRequester:
		filter.CreatorID = &actor.ID
	default:
		filter.BranchID = actor.BranchID
	}
	tickets, err := s.store.Tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// AuditTrail returns the ticket's audit entries, newest first.
func (s *WorkflowService) AuditTrail(ctx context.Context, actor *domain.Principal, ticketID string, limit, offset int) ([]domain.AuditEntry, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canAccessTicket(actor, ticket) && ticket.CreatorID != actor.ID {
		return nil, apperrors.NewForbidden("ticket belongs to another branch")
	}
	entries, err := s.store.Audit.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *WorkflowService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.store.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// resolveComplianceReviewer prefers an authorized reviewer of the owning
// branch; without one the record stays untargeted and any same-branch
// reviewer or admin may pick it up.
func (s *WorkflowService) resolveComplianceReviewer(ctx context.Context, branchID string) (*string, error) {
	role := domain.RoleManager
	reviewer := true
	active := true
	managers, err := s.store.Principals.List(ctx, repository.PrincipalFilter{
		Role:               &role,
		BranchID:           &branchID,
		AuthorizedReviewer: &reviewer,
		Active:             &active,
		Limit:              1,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(managers) == 0 {
		return nil, nil
	}
	return &managers[0].ID, nil
}

func (s *WorkflowService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
