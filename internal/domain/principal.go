package domain

import "time"

// Role enumerates the actor kinds known to the engine.
type Role string

const (
	RoleRequester  Role = "REQUESTER"
	RoleManager    Role = "MANAGER"
	RoleTechnician Role = "TECHNICIAN"
	RoleAdmin      Role = "ADMIN"
)

// Principal is the acting identity resolved for every engine call.
// BranchID is nil for department-level technicians; DepartmentID is nil for
// branch-scoped actors.
type Principal struct {
	ID                   string
	Name                 string
	Email                string
	PasswordHash         string
	Role                 Role
	BranchID             *string
	DepartmentID         *string
	IsAuthorizedReviewer bool
	IsAvailable          bool
	WorkloadCapacity     int
	Active               bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Capabilities summarizes what a principal may do. Every authorization
// predicate reads these instead of re-checking role strings.
type Capabilities struct {
	CanCreateTickets   bool
	CanApprove         bool
	CanResolve         bool
	CanAdministrate    bool
	CrossBranchVisible bool
}

// Capabilities derives the capability set from the principal's role and flags.
func (p *Principal) Capabilities() Capabilities {
	switch p.Role {
	case RoleRequester:
		return Capabilities{CanCreateTickets: true}
	case RoleManager:
		return Capabilities{
			CanCreateTickets: true,
			CanApprove:       p.IsAuthorizedReviewer,
		}
	case RoleTechnician:
		return Capabilities{
			CanResolve: true,
			// department technicians work tickets from any branch
			CrossBranchVisible: p.DepartmentID != nil,
		}
	case RoleAdmin:
		return Capabilities{
			CanCreateTickets:   true,
			CanApprove:         true,
			CanResolve:         true,
			CanAdministrate:    true,
			CrossBranchVisible: true,
		}
	default:
		return Capabilities{}
	}
}

// SameBranch reports whether the principal belongs to the given branch.
func (p *Principal) SameBranch(branchID string) bool {
	return p.BranchID != nil && *p.BranchID == branchID
}
