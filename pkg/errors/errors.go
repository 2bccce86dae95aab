// Package errors provides custom error types for the concord system.
// These errors carry the reconciliation failure taxonomy: configuration
// problems that prevent a session from starting, transient and terminal
// remote failures, mapping-store constraint violations, label-filter
// exclusions, and store-state preconditions. They enable programmatic
// error checking at the per-contact and per-session boundaries.
package errors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the concord system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates that a directory API rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrRemoteUnavailable indicates that a directory is temporarily unavailable
	ErrRemoteUnavailable = errors.New("remote directory unavailable")

	// ErrRejected indicates that a directory refused a mutation
	ErrRejected = errors.New("request rejected")

	// ErrConstraint indicates a mapping store uniqueness violation
	ErrConstraint = errors.New("mapping constraint violated")

	// ErrFiltered indicates a contact excluded by the label filter
	ErrFiltered = errors.New("excluded by label filter")

	// ErrState indicates an operation invoked against an incompatible store state
	ErrState = errors.New("incompatible store state")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string // "contact", "note", "tag", "mapping"
	Side     string // directory or component that was asked
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.Side != "" {
		return fmt.Sprintf("%s %s not found on %s", e.Resource, e.ID, e.Side)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, side, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, Side: side, ID: id}
}

// ConfigError represents a configuration error. Sessions never start
// when one is returned.
type ConfigError struct {
	Setting string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Setting != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Setting, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(setting, message string, err error) *ConfigError {
	return &ConfigError{Setting: setting, Message: message, Err: err}
}

// TransientError represents a momentary remote failure: a rate limit or a
// temporarily unavailable directory. The transport retries these with
// backoff; one that escapes the transport has exhausted its retry budget.
type TransientError struct {
	Directory  string
	StatusCode int
	RetryAfter time.Duration // server-requested wait, zero when unspecified
	Message    string
	Err        error
}

// Error implements the error interface
func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transient error from %s (status %d): %s", e.Directory, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("transient error from %s: %s", e.Directory, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *TransientError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *TransientError) Is(target error) bool {
	if e.StatusCode == 429 {
		return target == ErrRateLimited
	}
	return target == ErrRemoteUnavailable
}

// NewTransientError creates a new TransientError
func NewTransientError(directory string, statusCode int, message string) *TransientError {
	return &TransientError{Directory: directory, StatusCode: statusCode, Message: message}
}

// RejectedError represents a remote directory refusing a request. Terminal
// for the contact being processed; the session continues with the next one.
type RejectedError struct {
	Directory  string
	Operation  string // "create contact", "update career", "delete address"
	ContactID  string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *RejectedError) Error() string {
	if e.ContactID != "" {
		return fmt.Sprintf("%s rejected %s for contact %s (status %d): %s",
			e.Directory, e.Operation, e.ContactID, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s rejected %s (status %d): %s", e.Directory, e.Operation, e.StatusCode, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *RejectedError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *RejectedError) Is(target error) bool {
	if e.StatusCode == 404 && target == ErrNotFound {
		return true
	}
	return target == ErrRejected
}

// NewRejectedError creates a new RejectedError
func NewRejectedError(directory, operation, contactID string, statusCode int, message string) *RejectedError {
	return &RejectedError{
		Directory:  directory,
		Operation:  operation,
		ContactID:  contactID,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ConstraintError represents a mapping store uniqueness violation: an
// upsert that would bind a source or target id already bound to a
// different partner. Fatal; aborts the session.
type ConstraintError struct {
	SourceID string
	TargetID string
	Message  string
}

// Error implements the error interface
func (e *ConstraintError) Error() string {
	return fmt.Sprintf("mapping constraint violated for (%s, %s): %s", e.SourceID, e.TargetID, e.Message)
}

// Is implements errors.Is support
func (e *ConstraintError) Is(target error) bool {
	return target == ErrConstraint
}

// NewConstraintError creates a new ConstraintError
func NewConstraintError(sourceID, targetID, message string) *ConstraintError {
	return &ConstraintError{SourceID: sourceID, TargetID: targetID, Message: message}
}

// FilterError marks a contact as excluded by the label filter.
// Informational: the contact is treated as absent for the session,
// never as a failure.
type FilterError struct {
	ContactID string
	Name      string
}

// Error implements the error interface
func (e *FilterError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("contact %s (%s) excluded by label filter", e.ContactID, e.Name)
	}
	return fmt.Sprintf("contact %s excluded by label filter", e.ContactID)
}

// Is implements errors.Is support
func (e *FilterError) Is(target error) bool {
	return target == ErrFiltered
}

// NewFilterError creates a new FilterError
func NewFilterError(contactID, name string) *FilterError {
	return &FilterError{ContactID: contactID, Name: name}
}

// StateError represents an operation invoked against an incompatible
// store state, such as bootstrap on a populated store or incremental
// sync without a stored cursor. Fatal; the session never starts.
type StateError struct {
	Operation string
	Message   string
}

// Error implements the error interface
func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

// Is implements errors.Is support
func (e *StateError) Is(target error) bool {
	return target == ErrState
}

// NewStateError creates a new StateError
func NewStateError(operation, message string) *StateError {
	return &StateError{Operation: operation, Message: message}
}

// StoreError represents a mapping store I/O failure. Fatal: past one,
// the engine cannot guarantee durable per-contact commits.
type StoreError struct {
	Operation string // "open", "lookup", "upsert", "remove", "cursor"
	Key       string
	Err       error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("mapping store %s failed for %s: %v", e.Operation, e.Key, e.Err)
	}
	return fmt.Sprintf("mapping store %s failed: %v", e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *StoreError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// Helper wrapping functions for common patterns

// WrapConfig wraps an error as a ConfigError
func WrapConfig(setting string, err error) error {
	if err == nil {
		return nil
	}
	return &ConfigError{Setting: setting, Message: err.Error(), Err: err}
}

// WrapStore wraps an error as a StoreError
func WrapStore(operation, key string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Operation: operation, Key: key, Err: err}
}

// WrapRejected wraps an error as a RejectedError, preserving the original
// status code when the cause is itself a rejection.
func WrapRejected(directory, operation, contactID string, err error) error {
	if err == nil {
		return nil
	}
	rejected := &RejectedError{
		Directory: directory,
		Operation: operation,
		ContactID: contactID,
		Message:   err.Error(),
		Err:       err,
	}
	var cause *RejectedError
	if errors.As(err, &cause) {
		rejected.StatusCode = cause.StatusCode
	}
	return rejected
}

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsTransient checks if an error is a transient remote error
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsRejected checks if an error is a terminal per-contact rejection
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}

// IsConstraint checks if an error is a mapping constraint violation
func IsConstraint(err error) bool {
	return errors.Is(err, ErrConstraint)
}

// IsFiltered checks if an error marks a label-filter exclusion
func IsFiltered(err error) bool {
	return errors.Is(err, ErrFiltered)
}

// IsState checks if an error is a store-state precondition failure
func IsState(err error) bool {
	return errors.Is(err, ErrState)
}

// IsConfig checks if an error is a configuration error
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsStore checks if an error is a mapping store I/O failure
func IsStore(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}
