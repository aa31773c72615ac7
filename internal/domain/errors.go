// Package domain holds the quote entity, paging rules, the moderation
// filter and the error taxonomy shared by every layer. Nothing here knows
// about HTTP or SQL.
package domain

import (
	"errors"
	"fmt"
)

// Every typed error below matches exactly one of these with errors.Is.
var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation failed")
	ErrStorage     = errors.New("storage fault")
	ErrUnavailable = errors.New("unavailable")
)

// NotFoundError is a lookup that matched nothing. An empty ID means the
// collection itself was empty, as with a random pick.
type NotFoundError struct {
	Entity string
	ID     string
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return "no " + e.Entity + " found"
	}

	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError rejects client input. Field is the JSON field reported
// back in the error details.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError. An empty field reports the
// input as a whole.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}

	return e.Field + ": " + e.Message
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StorageError is a store failure during Operation. Cause stays in server
// logs and never reaches a client.
type StorageError struct {
	Operation string
	Cause     error
}

// NewStorageError creates a StorageError wrapping cause.
func NewStorageError(operation string, cause error) error {
	return &StorageError{Operation: operation, Cause: cause}
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Cause == nil {
		return "quote storage: " + e.Operation
	}

	return fmt.Sprintf("quote storage: %s: %v", e.Operation, e.Cause)
}

// Is matches ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Unwrap returns the driver error.
func (e *StorageError) Unwrap() error { return e.Cause }

// UnavailableError means Dependency cannot serve at the moment, e.g. the
// pool is draining for shutdown.
type UnavailableError struct {
	Dependency string
	Reason     string
}

// NewUnavailableError creates an UnavailableError.
func NewUnavailableError(dependency, reason string) error {
	return &UnavailableError{Dependency: dependency, Reason: reason}
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	if e.Reason == "" {
		return e.Dependency + " unavailable"
	}

	return fmt.Sprintf("%s unavailable (%s)", e.Dependency, e.Reason)
}

// Is matches ErrUnavailable.
func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsStorage reports whether err is, or wraps, a StorageError.
func IsStorage(err error) bool { return errors.Is(err, ErrStorage) }

// IsUnavailable reports whether err is, or wraps, an UnavailableError.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
