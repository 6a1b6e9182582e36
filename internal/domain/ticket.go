package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusDraft           TicketStatus = "DRAFT"
	TicketStatusPendingApproval TicketStatus = "PENDING_APPROVAL"
	TicketStatusOpen            TicketStatus = "OPEN"
	TicketStatusApproved        TicketStatus = "APPROVED"
	TicketStatusRejected        TicketStatus = "REJECTED"
	TicketStatusAssigned        TicketStatus = "ASSIGNED"
	TicketStatusInProgress      TicketStatus = "IN_PROGRESS"
	TicketStatusPending         TicketStatus = "PENDING"
	TicketStatusResolved        TicketStatus = "RESOLVED"
	TicketStatusClosed          TicketStatus = "CLOSED"
)

// Terminal reports whether no further transition may leave the status.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusRejected || s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityUrgent   TicketPriority = "URGENT"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// ValidPriority reports whether p is a known priority value.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh,
		TicketPriorityUrgent, TicketPriorityCritical:
		return true
	}
	return false
}

// Ticket is the aggregate for service-desk requests. BranchID is the sole
// tenant-isolation key and is immutable after creation.
type Ticket struct {
	ID                         string
	ExternalKey                string
	Title                      string
	Description                string
	Priority                   TicketPriority
	Status                     TicketStatus
	BranchID                   string
	CreatorID                  string
	AssigneeID                 *string
	ServiceCategoryID          string
	RequiresComplianceApproval bool
	IsGovernmentTicket         bool
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
	ClosedAt                   *time.Time
}
