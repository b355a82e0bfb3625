package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error so that callers can react to the
// category without string matching on codes.
type ErrorKind string

const (
	KindValidation ErrorKind = "VALIDATION"
	KindNotFound   ErrorKind = "NOT_FOUND"
	KindConflict   ErrorKind = "CONFLICT"
	KindState      ErrorKind = "STATE"
	KindDatabase   ErrorKind = "DATABASE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes the underlying cause (database errors only)
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches another DomainError by kind, and by code when the target carries one.
// This lets errors.Is(err, shared.ErrConflict) match any conflict.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// NewDomainError creates a new domain error of the given kind
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError reports malformed or out-of-range input
func NewValidationError(code, message string) *DomainError {
	return NewDomainError(KindValidation, code, message)
}

// NewNotFoundError reports a missing lease, billing, meter or payment
func NewNotFoundError(resource string, id fmt.Stringer) *DomainError {
	return NewDomainError(KindNotFound, "NOT_FOUND", fmt.Sprintf("%s %s not found", resource, id))
}

// NewConflictError reports a request that collides with current ledger state
func NewConflictError(code, message string) *DomainError {
	return NewDomainError(KindConflict, code, message)
}

// NewStateError reports an invalid status transition
func NewStateError(code, message string) *DomainError {
	return NewDomainError(KindState, code, message)
}

// NewDatabaseError wraps a storage failure. The cause is kept for logging
// and errors.Is checks, but is not part of the message shown to clients.
func NewDatabaseError(op string, cause error) *DomainError {
	return &DomainError{
		Kind:    KindDatabase,
		Code:    "DATABASE_ERROR",
		Message: op + " failed",
		cause:   cause,
	}
}

// Sentinels for errors.Is matching by kind
var (
	ErrValidation = &DomainError{Kind: KindValidation}
	ErrNotFound   = &DomainError{Kind: KindNotFound}
	ErrConflict   = &DomainError{Kind: KindConflict}
	ErrState      = &DomainError{Kind: KindState}
	ErrDatabase   = &DomainError{Kind: KindDatabase}

	ErrConcurrencyConflict = NewConflictError("CONCURRENCY_CONFLICT", "resource was modified by another process")
)

// KindOf returns the kind of err, or "" when err is not a DomainError
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
