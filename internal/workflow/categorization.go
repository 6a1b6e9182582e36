package workflow

import (
	"strings"

	"github.com/bankdesk/servicedesk/internal/domain"
	apperrors "github.com/bankdesk/servicedesk/pkg/util"
)

// ValidatePair rejects out-of-enum classification values.
func ValidatePair(rc domain.RootCause, ic domain.IssueCategory) error {
	if !domain.ValidRootCause(rc) {
		return apperrors.NewInvalidCategorizationValue("unknown root cause",
			map[string]any{"root_cause": string(rc)})
	}
	if !domain.ValidIssueCategory(ic) {
		return apperrors.NewInvalidCategorizationValue("unknown issue category",
			map[string]any{"issue_category": string(ic)})
	}
	return nil
}

// ApplySuggestion records the requester's one-time classification suggestion.
// Suggestions never gate workflow progress.
func ApplySuggestion(c *domain.Classification, actor *domain.Principal, rc domain.RootCause, ic domain.IssueCategory) error {
	if err := ValidatePair(rc, ic); err != nil {
		return err
	}
	if c.Locked {
		return apperrors.NewClassificationLocked(c.TicketID)
	}
	if c.Confirmed() {
		return apperrors.NewConflict("classification already confirmed", nil)
	}
	if c.UserRootCause != nil || c.UserIssueCategory != nil {
		return apperrors.NewConflict("suggestion already recorded", nil)
	}
	c.UserRootCause = &rc
	c.UserIssueCategory = &ic
	return nil
}

// ApplyConfirmation sets the authoritative classification pair. When the pair
// diverges from the requester suggestion a non-empty reason is mandatory; the
// pair and reason are always written together.
func ApplyConfirmation(c *domain.Classification, actor *domain.Principal, rc domain.RootCause, ic domain.IssueCategory, reason string) error {
	if err := ValidatePair(rc, ic); err != nil {
		return err
	}
	caps := actor.Capabilities()
	if !caps.CanResolve && !caps.CanAdministrate {
		return apperrors.NewForbidden("technician or admin role required")
	}
	if c.Locked && !caps.CanAdministrate {
		return apperrors.NewClassificationLocked(c.TicketID)
	}
	reason = strings.TrimSpace(reason)
	override := !c.MatchesSuggestion(rc, ic)
	if override && reason == "" {
		return apperrors.NewMissingOverrideReason()
	}
	c.ConfirmedRootCause = &rc
	c.ConfirmedCategory = &ic
	if override {
		c.OverrideReason = &reason
	} else {
		c.OverrideReason = nil
	}
	return nil
}

// ApplyLock freezes or unfreezes the classification. Admin only.
func ApplyLock(c *domain.Classification, actor *domain.Principal, locked bool, reason string) error {
	if !actor.Capabilities().CanAdministrate {
		return apperrors.NewForbidden("admin role required")
	}
	c.Locked = locked
	reason = strings.TrimSpace(reason)
	if reason != "" {
		c.LockReason = &reason
	} else {
		c.LockReason = nil
	}
	return nil
}
