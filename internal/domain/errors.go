package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for errors.Is() checking.
var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation error")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
	ErrPersistence = errors.New("persistence error")

	// ErrServiceConfiguration marks programmer errors in how a service or its
	// model was built. It is never carried inside a response envelope.
	ErrServiceConfiguration = errors.New("service configuration error")

	// ErrAlreadyFinished is returned when a service context is finalized a
	// second time.
	ErrAlreadyFinished = errors.New("service context already finished")
)

// Validation messages shared by entity validators.
const (
	MsgRequired     = "is required"
	MsgInvalidEmail = "must be a valid email address"
)

// ValidationError provides programmatic access to field-level validation failures.
// Use errors.Is(err, ErrValidation) for simple checks, or errors.As(err, &verr) to
// access verr.Fields for per-field error details.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, field+": "+e.Fields[field])
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// PersistenceError wraps a failure raised by the storage layer while an
// action was executing. Both ErrPersistence and the underlying cause are
// reachable through errors.Is.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence.Error(), e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// ConfigurationError reports a service wired with a model or capability it
// cannot use. It wraps ErrServiceConfiguration.
type ConfigurationError struct {
	Service string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Service == "" {
		return fmt.Sprintf("%s: %s", ErrServiceConfiguration.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrServiceConfiguration.Error(), e.Service, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrServiceConfiguration
}
