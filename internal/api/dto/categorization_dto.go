package dto

import (
	"time"

	"github.com/bankdesk/servicedesk/internal/domain"
)

// SuggestCategorizationRequest is the requester's one-time suggestion.
type SuggestCategorizationRequest struct {
	RootCause     domain.RootCause     `json:"root_cause"`
	IssueCategory domain.IssueCategory `json:"issue_category"`
}

// ConfirmCategorizationRequest is the technician confirmation payload.
type ConfirmCategorizationRequest struct {
	RootCause     domain.RootCause     `json:"root_cause"`
	IssueCategory domain.IssueCategory `json:"issue_category"`
	Reason        string               `json:"reason"`
}

// BulkConfirmRequest applies one classification to a batch.
type BulkConfirmRequest struct {
	TicketIDs     []string             `json:"ticket_ids"`
	RootCause     domain.RootCause     `json:"root_cause"`
	IssueCategory domain.IssueCategory `json:"issue_category"`
	Reason        string               `json:"reason"`
}

// LockCategorizationRequest freezes or unfreezes a classification.
type LockCategorizationRequest struct {
	Locked bool   `json:"locked"`
	Reason string `json:"reason"`
}

// ClassificationResponse mirrors the classification row.
type ClassificationResponse struct {
	TicketID           string                `json:"ticket_id"`
	UserRootCause      *domain.RootCause     `json:"user_root_cause,omitempty"`
	UserIssueCategory  *domain.IssueCategory `json:"user_issue_category,omitempty"`
	ConfirmedRootCause *domain.RootCause     `json:"confirmed_root_cause,omitempty"`
	ConfirmedCategory  *domain.IssueCategory `json:"confirmed_issue_category,omitempty"`
	OverrideReason     *string               `json:"override_reason,omitempty"`
	Locked             bool                  `json:"locked"`
	LockReason         *string               `json:"lock_reason,omitempty"`
	UpdatedAt          time.Time             `json:"updated_at"`
}
