package events

import (
	"time"

	"github.com/bankdesk/servicedesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated           EventType = "ticket_created"
	EventTicketApproved          EventType = "ticket_approved"
	EventTicketRejected          EventType = "ticket_rejected"
	EventComplianceDecided       EventType = "compliance_decided"
	EventTicketAssigned          EventType = "ticket_assigned"
	EventTicketStatusChanged     EventType = "ticket_status_changed"
	EventClassificationConfirmed EventType = "classification_confirmed"
	EventClassificationLocked    EventType = "classification_locked"
)

// Event represents a domain event emitted by the orchestrator. Delivery is
// fire-and-forget; notification transport lives behind the dispatcher.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	BranchID           string                `json:"branch_id"`
	ServiceCategoryID  string                `json:"service_category_id"`
	Priority           domain.TicketPriority `json:"priority"`
	Status             domain.TicketStatus   `json:"status"`
	RequiresCompliance bool                  `json:"requires_compliance"`
	Title              string                `json:"title"`
}

// ApprovalDecisionPayload payload for approve/reject events.
type ApprovalDecisionPayload struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
	Comments string `json:"comments,omitempty"`
}

// ComplianceDecidedPayload payload.
type ComplianceDecidedPayload struct {
	Status            domain.ComplianceStatus `json:"status"`
	DocumentsVerified bool                    `json:"documents_verified"`
	Comments          string                  `json:"comments,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID   string `json:"assignee_id"`
	AutoAssigned bool   `json:"auto_assigned"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// ClassificationConfirmedPayload payload.
type ClassificationConfirmedPayload struct {
	RootCause      domain.RootCause     `json:"root_cause"`
	IssueCategory  domain.IssueCategory `json:"issue_category"`
	OverrideReason *string              `json:"override_reason,omitempty"`
}

// ClassificationLockedPayload payload.
type ClassificationLockedPayload struct {
	Locked bool   `json:"locked"`
	Reason string `json:"reason,omitempty"`
}
