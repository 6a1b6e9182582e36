package domain

import "time"

// ServiceCategory is a catalog entry tickets are filed against. It routes the
// ticket to a department and decides whether manager approval and the
// compliance review sub-flow apply.
type ServiceCategory struct {
	ID                         string
	Name                       string
	DepartmentID               string
	RequiresApproval           bool
	RequiresComplianceApproval bool
	IsGovernmentService        bool
	IsActive                   bool
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

// Department groups specialist technicians.
type Department struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
