package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Error represents a domain-level error. Detail carries the specific rule,
// field, or transition that produced the error so callers can surface a
// precise reason instead of a generic failure.
type Error struct {
	Code    ErrorCode
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewPermissionDenied builds a FORBIDDEN error carrying the rule that denied
// the operation.
func NewPermissionDenied(rule, message string) *Error {
	return &Error{Code: ErrCodeForbidden, Message: message, Detail: rule}
}

// NewInvalidTransition builds a CONFLICT error for a disallowed task status change.
func NewInvalidTransition(from, to TaskStatus) *Error {
	return &Error{
		Code:    ErrCodeConflict,
		Message: fmt.Sprintf("cannot transition task from %q to %q", from, to),
		Detail:  fmt.Sprintf("%s -> %s", from, to),
	}
}

// NewValidationError builds an INVALID error naming the offending field.
func NewValidationError(field, message string) *Error {
	return &Error{Code: ErrCodeInvalid, Message: message, Detail: field}
}

// Common domain errors.
var (
	ErrUserNotFound      = NewError(ErrCodeNotFound, "user not found")
	ErrWorkflowNotFound  = NewError(ErrCodeNotFound, "workflow not found")
	ErrTaskNotFound      = NewError(ErrCodeNotFound, "task not found")
	ErrInviteNotFound    = NewError(ErrCodeNotFound, "invite not found")
	ErrMemberNotFound    = NewError(ErrCodeNotFound, "member not found in workflow")
	ErrSessionNotFound   = NewError(ErrCodeNotFound, "session not found")
	ErrUnauthorized      = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrInvalidPayload    = NewError(ErrCodeInvalid, "invalid payload")
	ErrEmailTaken        = NewError(ErrCodeConflict, "email is already registered")
	ErrAlreadyConfirmed  = NewError(ErrCodeConflict, "task completion is already confirmed")
	ErrDuplicateInvite   = NewError(ErrCodeConflict, "user already has a pending invite to this workflow")
	ErrAlreadyMember     = NewError(ErrCodeConflict, "user is already a member of this workflow")
	ErrInviteResolved    = NewError(ErrCodeConflict, "invite has already been responded to")
	ErrNotWorkflowMember = NewPermissionDenied("workflowMember", "you are not a member of this workflow")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// ErrorDetail extracts the Detail of a domain error, or an empty string.
func ErrorDetail(err error) string {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Detail
	}
	return ""
}
