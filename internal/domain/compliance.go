package domain

import "time"

// ComplianceStatus enumerates the compliance review outcome.
type ComplianceStatus string

const (
	ComplianceStatusPending  ComplianceStatus = "PENDING"
	ComplianceStatusApproved ComplianceStatus = "APPROVED"
	ComplianceStatusRejected ComplianceStatus = "REJECTED"
)

// ComplianceApproval is the secondary review record spawned for
// government/treasury-linked tickets. At most one open record per ticket;
// once decided it is immutable except by admin override.
type ComplianceApproval struct {
	ID                 string
	TicketID           string
	ReviewerID         *string
	Status             ComplianceStatus
	Comments           string
	DocumentsVerified  bool
	DecidedByID        *string
	DecidedAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
