package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrForbidden     = errors.New("forbidden")
	ErrQuotaExceeded = errors.New("check quota exceeded")
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrInvalidInput  = errors.New("invalid input")
)

// ConfigError reports a check (or request) whose configuration cannot be executed.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "invalid config: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewConfigError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}

// StorageError wraps a persistence failure. Not-found is not a StorageError.
type StorageError struct {
	Op   string
	Kind string
	ID   string
	Err  error
}

func (e *StorageError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("storage %s %s/%s: %v", e.Op, e.Kind, e.ID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// DispatchError wraps a failed alert delivery.
type DispatchError struct {
	Destination string
	Key         string
	Err         error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s to %q: %v", e.Key, e.Destination, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
