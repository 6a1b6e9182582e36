package domain

import "time"

// AuditChangeType captures what changed in an audit entry.
type AuditChangeType string

const (
	ChangeTypeStatus         AuditChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee       AuditChangeType = "ASSIGNEE_CHANGE"
	ChangeTypeApproval       AuditChangeType = "APPROVAL_DECISION"
	ChangeTypeCompliance     AuditChangeType = "COMPLIANCE_DECISION"
	ChangeTypeClassification AuditChangeType = "CLASSIFICATION_CHANGE"
	ChangeTypeLock           AuditChangeType = "CLASSIFICATION_LOCK"
)

// AuditEntry is an immutable trail record appended by the orchestrator for
// every ticket-affecting change.
type AuditEntry struct {
	ID         string
	TicketID   string
	ActorID    *string
	ChangeType AuditChangeType
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}
