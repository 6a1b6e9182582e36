package domain

import "time"

// RootCause is the closed set of root-cause classifications.
type RootCause string

const (
	RootCauseHumanError     RootCause = "HUMAN_ERROR"
	RootCauseSystemError    RootCause = "SYSTEM_ERROR"
	RootCauseExternalFactor RootCause = "EXTERNAL_FACTOR"
	RootCauseHardwareFault  RootCause = "HARDWARE_FAULT"
	RootCauseNetworkFault   RootCause = "NETWORK_FAULT"
)

// IssueCategory is the closed set of issue classifications.
type IssueCategory string

const (
	IssueCategoryRequest   IssueCategory = "REQUEST"
	IssueCategoryProblem   IssueCategory = "PROBLEM"
	IssueCategoryComplaint IssueCategory = "COMPLAINT"
	IssueCategoryIncident  IssueCategory = "INCIDENT"
)

// ValidRootCause reports whether rc is a known root cause.
func ValidRootCause(rc RootCause) bool {
	switch rc {
	case RootCauseHumanError, RootCauseSystemError, RootCauseExternalFactor,
		RootCauseHardwareFault, RootCauseNetworkFault:
		return true
	}
	return false
}

// ValidIssueCategory reports whether ic is a known issue category.
func ValidIssueCategory(ic IssueCategory) bool {
	switch ic {
	case IssueCategoryRequest, IssueCategoryProblem, IssueCategoryComplaint,
		IssueCategoryIncident:
		return true
	}
	return false
}

// Classification is the two-axis tagging of a ticket. The user pair is the
// requester suggestion; the confirmed pair is authoritative once present and
// always committed together with OverrideReason.
type Classification struct {
	TicketID           string
	UserRootCause      *RootCause
	UserIssueCategory  *IssueCategory
	ConfirmedRootCause *RootCause
	ConfirmedCategory  *IssueCategory
	OverrideReason     *string
	Locked             bool
	LockReason         *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Confirmed reports whether a technician has set the authoritative pair.
func (c *Classification) Confirmed() bool {
	return c.ConfirmedRootCause != nil && c.ConfirmedCategory != nil
}

// MatchesSuggestion reports whether the given pair equals the requester's
// suggestion. An absent suggestion never matches.
func (c *Classification) MatchesSuggestion(rc RootCause, ic IssueCategory) bool {
	return c.UserRootCause != nil && c.UserIssueCategory != nil &&
		*c.UserRootCause == rc && *c.UserIssueCategory == ic
}
