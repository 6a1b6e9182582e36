package workflow

import "github.com/bankdesk/servicedesk/internal/domain"

// Reason codes explain every approval decision. Denials name the predicate
// that failed; the API layer surfaces it to admin callers for audit.
const (
	ReasonAdminOverride     = "ADMIN_OVERRIDE"
	ReasonExplicitReviewer  = "EXPLICIT_REVIEWER"
	ReasonSameBranchManager = "SAME_BRANCH_MANAGER"
	ReasonNotManager        = "ACTOR_NOT_MANAGER"
	ReasonReviewerFlagUnset = "REVIEWER_FLAG_UNSET"
	ReasonNotPending        = "APPROVAL_NOT_PENDING"
	ReasonBranchMismatch    = "BRANCH_MISMATCH"
)

// Decision is the outcome of the approval authorization predicate.
type Decision struct {
	Allow  bool
	Reason string
}

// ApprovalRequest bundles everything the predicate may consult. Compliance is
// nil for tickets without the compliance sub-flow; then the ticket status
// itself carries the pending check.
type ApprovalRequest struct {
	Ticket     *domain.Ticket
	Compliance *domain.ComplianceApproval
	Actor      *domain.Principal
}

// Authorize decides whether the actor may approve or reject the ticket. The
// predicate is deliberately flat: it never consults branch structural kind or
// branch hierarchy, so PRIMARY and SUB branch managers evaluate identically.
func Authorize(req ApprovalRequest) Decision {
	actor := req.Actor
	if actor == nil || (actor.Role != domain.RoleManager && actor.Role != domain.RoleAdmin) {
		return Decision{Allow: false, Reason: ReasonNotManager}
	}
	if actor.Role == domain.RoleAdmin {
		return Decision{Allow: true, Reason: ReasonAdminOverride}
	}
	if !actor.IsAuthorizedReviewer {
		return Decision{Allow: false, Reason: ReasonReviewerFlagUnset}
	}
	if !approvalPending(req) {
		return Decision{Allow: false, Reason: ReasonNotPending}
	}
	if req.Compliance != nil && req.Compliance.ReviewerID != nil && *req.Compliance.ReviewerID == actor.ID {
		return Decision{Allow: true, Reason: ReasonExplicitReviewer}
	}
	// multi-manager coverage: any authorized reviewer of the owning branch
	if actor.SameBranch(req.Ticket.BranchID) {
		return Decision{Allow: true, Reason: ReasonSameBranchManager}
	}
	return Decision{Allow: false, Reason: ReasonBranchMismatch}
}

func approvalPending(req ApprovalRequest) bool {
	if req.Compliance != nil {
		return req.Compliance.Status == domain.ComplianceStatusPending
	}
	return req.Ticket.Status == domain.TicketStatusPendingApproval
}
