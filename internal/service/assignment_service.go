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

// AssignmentService routes approved tickets to specialist technicians, either
// explicitly or through the auto-assignment resolver.
type AssignmentService struct {
	store           *repository.Store
	uow             repository.UnitOfWork
	dispatcher      events.Dispatcher
	metrics         *observability.Metrics
	defaultCapacity int
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	Store           *repository.Store
	UnitOfWork      repository.UnitOfWork
	Dispatcher      events.Dispatcher
	Metrics         *observability.Metrics
	DefaultCapacity int
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	capacity := deps.DefaultCapacity
	if capacity <= 0 {
		capacity = 10
	}
	return &AssignmentService{
		store:           deps.Store,
		uow:             deps.UnitOfWork,
		dispatcher:      deps.Dispatcher,
		metrics:         deps.Metrics,
		defaultCapacity: capacity,
	}
}

// AssignResult reports the outcome of an assignment request. Assigned is
// false when the resolver found no candidate; the ticket then stays in its
// current status for manual pickup, which is a designed fallback.
type AssignResult struct {
	Ticket       *domain.Ticket
	Assigned     bool
	AutoResolved bool
}

// Assign sets the ticket's assignee. With an empty technicianID the
// auto-assignment resolver picks the least-loaded available technician of the
// service category's department. Re-assigning the same technician is an
// idempotent no-op; any other technician on an already-assigned ticket fails
// with ALREADY_ASSIGNED.
func (s *AssignmentService) Assign(ctx context.Context, actor *domain.Principal, ticketID, technicianID string) (*AssignResult, error) {
	caps := actor.Capabilities()
	if !caps.CanApprove && !caps.CanResolve && !caps.CanAdministrate {
		return nil, apperrors.NewForbidden("insufficient role for assignment")
	}

	ticket, err := s.store.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !canAccessTicket(actor, ticket) {
		return nil, apperrors.NewForbidden("ticket belongs to another branch")
	}
	if ticket.Status != domain.TicketStatusApproved && ticket.Status != domain.TicketStatusOpen {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(domain.TicketStatusAssigned))
	}
	if ticket.AssigneeID != nil {
		if technicianID != "" && *ticket.AssigneeID == technicianID {
			return &AssignResult{Ticket: ticket, Assigned: true}, nil
		}
		return nil, apperrors.NewAlreadyAssigned(ticket.ID)
	}

	autoResolved := false
	if technicianID == "" {
		resolved, ok, err := s.resolve(ctx, ticket)
		if err != nil {
			return nil, err
		}
		if !ok {
			if s.metrics != nil {
				s.metrics.AssignmentsTotal.WithLabelValues("no_candidate").Inc()
			}
			return &AssignResult{Ticket: ticket, Assigned: false}, nil
		}
		technicianID = resolved
		autoResolved = true
	} else {
		if err := s.validateTechnician(ctx, actor, ticket, technicianID); err != nil {
			return nil, err
		}
	}

	oldStatus := ticket.Status
	raced := false
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx *repository.Store) error {
		assigned, err := tx.Tickets.AssignIfUnassigned(ctx, ticket.ID, technicianID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if !assigned {
			// lost the race; if the winner committed the same technician the
			// request is satisfied, same as the idempotent re-assign above
			current, err := tx.Tickets.GetByID(ctx, ticket.ID)
			if err != nil {
				return apperrors.MapError(err)
			}
			if current.AssigneeID == nil || *current.AssigneeID != technicianID {
				return apperrors.NewAlreadyAssigned(ticket.ID)
			}
			raced = true
			return nil
		}
		entry := &domain.AuditEntry{
			TicketID:   ticket.ID,
			ActorID:    &actor.ID,
			ChangeType: domain.ChangeTypeAssignee,
			OldValue:   map[string]any{"assignee_id": nil, "status": oldStatus},
			NewValue:   map[string]any{"assignee_id": technicianID, "status": domain.TicketStatusAssigned, "auto": autoResolved},
		}
		return apperrors.MapError(tx.Audit.Create(ctx, entry))
	})
	if err != nil {
		return nil, err
	}

	ticket.AssigneeID = &technicianID
	ticket.Status = domain.TicketStatusAssigned
	if raced {
		// the winner already logged and announced the assignment
		return &AssignResult{Ticket: ticket, Assigned: true, AutoResolved: autoResolved}, nil
	}
	if s.metrics != nil {
		mode := "manual"
		if autoResolved {
			mode = "auto"
		}
		s.metrics.AssignmentsTotal.WithLabelValues(mode).Inc()
	}
	s.publishEvent(ctx, actor.ID, ticket.ID, events.TicketAssignedPayload{
		AssigneeID:   technicianID,
		AutoAssigned: autoResolved,
	})
	return &AssignResult{Ticket: ticket, Assigned: true, AutoResolved: autoResolved}, nil
}

// resolve builds the candidate pool for the ticket's service department and
// runs the workflow resolver over it.
func (s *AssignmentService) resolve(ctx context.Context, ticket *domain.Ticket) (string, bool, error) {
	category, err := s.store.Categories.GetByID(ctx, ticket.ServiceCategoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, apperrors.NewNotFound("service category", map[string]any{"service_category_id": ticket.ServiceCategoryID})
		}
		return "", false, apperrors.MapError(err)
	}

	role := domain.RoleTechnician
	available := true
	active := true
	technicians, err := s.store.Principals.List(ctx, repository.PrincipalFilter{
		Role:         &role,
		DepartmentID: &category.DepartmentID,
		Available:    &available,
		Active:       &active,
		Limit:        1000,
	})
	if err != nil {
		return "", false, apperrors.MapError(err)
	}
	if len(technicians) == 0 {
		return "", false, nil
	}

	ids := make([]string, 0, len(technicians))
	for _, tech := range technicians {
		ids = append(ids, tech.ID)
	}
	workloads, err := s.store.Tickets.OpenWorkloadByAssignees(ctx, ids)
	if err != nil {
		return "", false, apperrors.MapError(err)
	}

	pool := make([]workflow.Candidate, 0, len(technicians))
	for _, tech := range technicians {
		capacity := tech.WorkloadCapacity
		if capacity <= 0 {
			capacity = s.defaultCapacity
		}
		pool = append(pool, workflow.Candidate{
			TechnicianID: tech.ID,
			DepartmentID: derefString(tech.DepartmentID),
			Workload:     workloads[tech.ID],
			Capacity:     capacity,
			Available:    tech.IsAvailable,
		})
	}
	id, ok := workflow.ResolveAssignee(category.DepartmentID, pool)
	return id, ok, nil
}

func (s *AssignmentService) validateTechnician(ctx context.Context, actor *domain.Principal, ticket *domain.Ticket, technicianID string) error {
	technician, err := s.store.Principals.GetByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("technician", map[string]any{"technician_id": technicianID})
		}
		return apperrors.MapError(err)
	}
	if technician.Role != domain.RoleTechnician {
		return apperrors.NewValidationError("assignee must be a technician", map[string]any{"technician_id": technicianID})
	}
	if !technician.Active || !technician.IsAvailable {
		return apperrors.NewConflict("technician unavailable", map[string]any{"technician_id": technicianID})
	}
	if actor.Capabilities().CanAdministrate {
		return nil
	}
	category, err := s.store.Categories.GetByID(ctx, ticket.ServiceCategoryID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if technician.DepartmentID == nil || *technician.DepartmentID != category.DepartmentID {
		return apperrors.NewConflict("technician outside the service department", map[string]any{"technician_id": technicianID})
	}
	return nil
}

func (s *AssignmentService) publishEvent(ctx context.Context, actorID, ticketID string, payload events.TicketAssignedPayload) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketAssigned,
		TicketID:  ticketID,
		ActorID:   actorID,
		Timestamp: time.Now(),
		Payload:   payload,
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
