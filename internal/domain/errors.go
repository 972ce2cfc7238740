// Package domain defines core types, interfaces, and errors for the directory service.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// CredentialsError indicates a failed authentication attempt. Binds against
// disabled accounts report this even when the password matches.
type CredentialsError struct {
	Message string
}

func (e *CredentialsError) Error() string { return e.Message }

// UnsupportedError indicates a protocol operation or filter construct the
// service does not implement. Distinct from an empty result.
type UnsupportedError struct {
	Message string
}

func (e *UnsupportedError) Error() string { return e.Message }

// BusyError indicates a serialized operation was already in flight.
type BusyError struct {
	Message string
}

func (e *BusyError) Error() string { return e.Message }

// UnavailableError indicates a listening port could not be bound.
type UnavailableError struct {
	Message string
}

func (e *UnavailableError) Error() string { return e.Message }

// ApplyError indicates a configuration update failed and the previous
// configuration remains authoritative.
type ApplyError struct {
	Message string
}

func (e *ApplyError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrCredentials creates a CredentialsError with a formatted message.
func ErrCredentials(format string, args ...interface{}) *CredentialsError {
	return &CredentialsError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnsupported creates an UnsupportedError with a formatted message.
func ErrUnsupported(format string, args ...interface{}) *UnsupportedError {
	return &UnsupportedError{Message: fmt.Sprintf(format, args...)}
}

// ErrBusy creates a BusyError with a formatted message.
func ErrBusy(format string, args ...interface{}) *BusyError {
	return &BusyError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnavailable creates an UnavailableError with a formatted message.
func ErrUnavailable(format string, args ...interface{}) *UnavailableError {
	return &UnavailableError{Message: fmt.Sprintf(format, args...)}
}

// ErrApply creates an ApplyError with a formatted message.
func ErrApply(format string, args ...interface{}) *ApplyError {
	return &ApplyError{Message: fmt.Sprintf(format, args...)}
}
