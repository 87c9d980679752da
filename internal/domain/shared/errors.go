// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrStateTransition = errors.New("invalid state transition")

	// Authorization errors
	ErrForbidden = errors.New("forbidden")

	// Business rule errors
	ErrConflict = errors.New("conflict")
	ErrCapacity = errors.New("capacity exhausted")

	// Store errors
	ErrTransientStore         = errors.New("transient store error")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "admission", "job", "matching"
	Op      string // Operation that failed, e.g., "Admit", "UpdateMatches"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Student domain errors
var (
	ErrStudentNotFound = NewDomainError("student", "Find", ErrNotFound, "student not found")
)

// Job domain errors
var (
	ErrJobNotFound         = NewDomainError("job", "Find", ErrNotFound, "job not found")
	ErrInvalidRequirements = NewDomainError("job", "Validate", ErrValueOutOfRange, "job requirements cannot be negative")
)

// Admission domain errors
var (
	ErrApplicationNotFound = NewDomainError("admission", "FindApplication", ErrNotFound, "application not found")
	ErrCourseNotFound      = NewDomainError("admission", "FindCourse", ErrNotFound, "course not found")
	ErrNotApplicationOwner = NewDomainError("admission", "Authorize", ErrForbidden, "institution does not own this application")
	ErrAlreadyAdmitted     = NewDomainError("admission", "Admit", ErrConflict, "student already has an admission at this institution")
	ErrNoSeatsAvailable    = NewDomainError("admission", "Admit", ErrCapacity, "no seats available on this course")
	ErrInvalidStatus       = NewDomainError("admission", "Validate", ErrInvalidInput, "invalid application status")
	ErrSeatRangeViolation  = NewDomainError("admission", "UpdateSeats", ErrValueOutOfRange, "seat counter would leave [0, total]")
	ErrApplicationNotNew   = NewDomainError("admission", "CreateApplication", ErrInvalidInput, "applications are created pending")
	ErrCourseOfOtherOwner  = NewDomainError("admission", "CreateApplication", ErrForbidden, "course belongs to another institution")
)

// Notification domain errors
var (
	ErrNotificationNotFound = NewDomainError("notification", "Find", ErrNotFound, "notification not found")
	ErrAlreadyNotified      = NewDomainError("notification", "Create", ErrAlreadyExists, "student already notified about this job")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsAuthorization checks if the caller is not allowed to perform the operation.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsConflict checks if the error is a business-rule conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsCapacity checks if the error reports exhausted capacity.
func IsCapacity(err error) bool {
	return errors.Is(err, ErrCapacity)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrStateTransition)
}

// IsTransient checks if the datastore failed for availability reasons.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientStore) ||
		errors.Is(err, ErrConcurrentModification)
}

// IsBusinessRule reports the outcomes that are returned to the caller as-is
// and never retried.
func IsBusinessRule(err error) bool {
	return IsNotFound(err) || IsAuthorization(err) || IsConflict(err) || IsCapacity(err)
}
