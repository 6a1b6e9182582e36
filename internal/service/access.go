package service

import (
	"github.com/bankdesk/servicedesk/internal/domain"
)

// canAccessTicket is the tenant-isolation boundary: the ticket's owning
// branch is the sole key. Department-level technicians and admins see across
// branches; everyone else must share the ticket's branch.
func canAccessTicket(actor *domain.Principal, ticket *domain.Ticket) bool {
	if actor == nil {
		return false
	}
	if actor.Capabilities().CrossBranchVisible {
		return true
	}
	return actor.SameBranch(ticket.BranchID)
}
