package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable machine-readable error codes.
const (
	CodeValidationFailed           = "VALIDATION_FAILED"
	CodeInvalidCategorizationValue = "INVALID_CATEGORIZATION_VALUE"
	CodeMissingOverrideReason      = "MISSING_OVERRIDE_REASON"
	CodeNotFound                   = "NOT_FOUND"
	CodeUnauthorized               = "UNAUTHORIZED"
	CodeForbidden                  = "FORBIDDEN"
	CodeInvalidTransition          = "INVALID_TRANSITION"
	CodeAlreadyProcessed           = "ALREADY_PROCESSED"
	CodeAlreadyAssigned            = "ALREADY_ASSIGNED"
	CodeClassificationLocked       = "CLASSIFICATION_LOCKED"
	CodeConflict                   = "CONFLICT"
	CodeInternal                   = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewInvalidCategorizationValue(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidCategorizationValue, message, http.StatusBadRequest, details)
}

func NewMissingOverrideReason() error {
	return NewDomainError(CodeMissingOverrideReason,
		"override reason required when confirmed classification differs from suggestion",
		http.StatusBadRequest, nil)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

// NewApprovalDenied carries the failed authorization predicate so admin
// callers can audit why a decision was refused.
func NewApprovalDenied(message, predicate string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusForbidden,
		map[string]any{"predicate": predicate})
}

func NewInvalidTransition(from, to string) error {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("transition %s -> %s is not allowed", from, to),
		http.StatusConflict, map[string]any{"from": from, "to": to})
}

func NewAlreadyProcessed(message string) error {
	return NewDomainError(CodeAlreadyProcessed, message, http.StatusConflict, nil)
}

func NewAlreadyAssigned(ticketID string) error {
	return NewDomainError(CodeAlreadyAssigned, "ticket already has an assignee",
		http.StatusConflict, map[string]any{"ticket_id": ticketID})
}

func NewClassificationLocked(ticketID string) error {
	return NewDomainError(CodeClassificationLocked, "classification is locked",
		http.StatusLocked, map[string]any{"ticket_id": ticketID})
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// CodeOf returns the DomainError code for err, or INTERNAL_ERROR.
func CodeOf(err error) string {
	return ToDomainError(err).Code
}

// IsCode reports whether err carries the given DomainError code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
