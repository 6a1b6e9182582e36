package workflow

import (
	"github.com/bankdesk/servicedesk/internal/domain"
	apperrors "github.com/bankdesk/servicedesk/pkg/util"
)

// legalTransitions is the canonical edge set of the ticket lifecycle.
// REJECTED and CLOSED are terminal.
var legalTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusDraft:           {domain.TicketStatusPendingApproval, domain.TicketStatusOpen},
	domain.TicketStatusPendingApproval: {domain.TicketStatusApproved, domain.TicketStatusRejected},
	domain.TicketStatusOpen:            {domain.TicketStatusAssigned},
	domain.TicketStatusApproved:        {domain.TicketStatusAssigned},
	domain.TicketStatusAssigned:        {domain.TicketStatusInProgress},
	domain.TicketStatusInProgress:      {domain.TicketStatusPending, domain.TicketStatusResolved},
	domain.TicketStatusPending:         {domain.TicketStatusInProgress, domain.TicketStatusResolved},
	domain.TicketStatusResolved:        {domain.TicketStatusClosed},
	domain.TicketStatusRejected:        {},
	domain.TicketStatusClosed:          {},
}

// CanTransition reports whether the edge current -> next exists.
func CanTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range legalTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// InitialStatus selects the entry state for a new ticket from its service
// category: approval-gated categories start pending, technical no-approval
// categories are directly assignable.
func InitialStatus(category *domain.ServiceCategory) domain.TicketStatus {
	if category.RequiresApproval || category.RequiresComplianceApproval {
		return domain.TicketStatusPendingApproval
	}
	return domain.TicketStatusOpen
}

// Transition moves the ticket along a legal edge after checking the actor
// guard for the target state. Approval edges additionally pass through
// Authorize in the orchestrator before reaching here.
func Transition(ticket *domain.Ticket, target domain.TicketStatus, actor *domain.Principal) error {
	if !CanTransition(ticket.Status, target) {
		return apperrors.NewInvalidTransition(string(ticket.Status), string(target))
	}
	if err := guardTransition(ticket, target, actor); err != nil {
		return err
	}
	ticket.Status = target
	return nil
}

func guardTransition(ticket *domain.Ticket, target domain.TicketStatus, actor *domain.Principal) error {
	if actor == nil {
		return apperrors.NewUnauthorized("actor required")
	}
	caps := actor.Capabilities()
	if caps.CanAdministrate {
		return nil
	}
	switch target {
	case domain.TicketStatusApproved, domain.TicketStatusRejected:
		if !caps.CanApprove {
			return apperrors.NewForbidden("approval authority required")
		}
	case domain.TicketStatusAssigned:
		if !caps.CanApprove && !caps.CanResolve {
			return apperrors.NewForbidden("assignment requires manager or technician role")
		}
	case domain.TicketStatusInProgress, domain.TicketStatusPending, domain.TicketStatusResolved:
		if !caps.CanResolve {
			return apperrors.NewForbidden("technician role required")
		}
		if ticket.AssigneeID != nil && *ticket.AssigneeID != actor.ID {
			return apperrors.NewForbidden("ticket is assigned to another technician")
		}
	case domain.TicketStatusClosed:
		if !caps.CanResolve && ticket.CreatorID != actor.ID {
			return apperrors.NewForbidden("only the assignee or the creator may close")
		}
	default:
		return apperrors.NewForbidden("transition not permitted for actor")
	}
	return nil
}
