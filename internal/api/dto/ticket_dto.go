package dto

import (
	"time"

	"github.com/bankdesk/servicedesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title             string                `json:"title"`
	Description       string                `json:"description"`
	Priority          domain.TicketPriority `json:"priority"`
	ServiceCategoryID string                `json:"service_category_id"`
	BranchID          string                `json:"branch_id"`
	UserRootCause     *domain.RootCause     `json:"user_root_cause,omitempty"`
	UserIssueCategory *domain.IssueCategory `json:"user_issue_category,omitempty"`
}

// TicketResponse is the engine's view of a ticket.
type TicketResponse struct {
	ID                 string                `json:"id"`
	ExternalKey        string                `json:"external_key"`
	Title              string                `json:"title"`
	Description        string                `json:"description,omitempty"`
	Priority           domain.TicketPriority `json:"priority"`
	Status             domain.TicketStatus   `json:"status"`
	BranchID           string                `json:"branch_id"`
	CreatorID          string                `json:"creator_id"`
	AssigneeID         *string               `json:"assignee_id,omitempty"`
	ServiceCategoryID  string                `json:"service_category_id"`
	RequiresCompliance bool                  `json:"requires_compliance_approval"`
	IsGovernmentTicket bool                  `json:"is_government_ticket"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
	ClosedAt           *time.Time            `json:"closed_at,omitempty"`
}

// DecisionRequest carries approve/reject comments.
type DecisionRequest struct {
	Comments string `json:"comments"`
}

// AssignRequest payload; empty technician id triggers auto-assignment.
type AssignRequest struct {
	TechnicianID string `json:"technician_id"`
}

// AssignResponse reports the assignment outcome.
type AssignResponse struct {
	Ticket       TicketResponse `json:"ticket"`
	Assigned     bool           `json:"assigned"`
	AutoResolved bool           `json:"auto_resolved"`
}

// ComplianceOverrideRequest rewrites a decided compliance review.
type ComplianceOverrideRequest struct {
	Approve  bool   `json:"approve"`
	Comments string `json:"comments"`
}

// ComplianceResponse is the review record as returned to admins.
type ComplianceResponse struct {
	ID                string                  `json:"id"`
	TicketID          string                  `json:"ticket_id"`
	ReviewerID        *string                 `json:"reviewer_id,omitempty"`
	Status            domain.ComplianceStatus `json:"status"`
	Comments          string                  `json:"comments,omitempty"`
	DocumentsVerified bool                    `json:"documents_verified"`
	DecidedByID       *string                 `json:"decided_by,omitempty"`
	DecidedAt         *time.Time              `json:"decided_at,omitempty"`
}

// StatusRequest payload for lifecycle transitions.
type StatusRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Comment string              `json:"comment"`
}

// AuditEntryResponse is one trail record.
type AuditEntryResponse struct {
	ID         string                 `json:"id"`
	ChangeType domain.AuditChangeType `json:"change_type"`
	ActorID    *string                `json:"actor_id,omitempty"`
	OldValue   map[string]any         `json:"old_value"`
	NewValue   map[string]any         `json:"new_value"`
	CreatedAt  time.Time              `json:"created_at"`
}
