package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrAlreadyExists     = errors.New("entity already exists")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrLockHeld          = errors.New("lock is held by another worker")

	// Orchestration errors surfaced to callers
	ErrQuotaExceeded        = errors.New("daily quota exceeded")
	ErrNoProvidersAvailable = errors.New("no providers available")
	ErrAllProvidersFailed   = errors.New("all providers failed")
	ErrStoreUnavailable     = errors.New("result store unavailable")
	ErrCancelled            = errors.New("cancelled")
	ErrRequestInFlight      = errors.New("request with this id is still running")

	// Persistence plumbing
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrOperationFailed    = errors.New("database operation failed")
)

// ProviderErrorKind classifies a provider failure for retry decisions.
type ProviderErrorKind string

const (
	ProviderTransient ProviderErrorKind = "transient"
	ProviderPermanent ProviderErrorKind = "permanent"
)

// ProviderError is returned by provider clients. Transient errors are retried
// by the engine, permanent errors are recorded as-is.
type ProviderError struct {
	Provider   string
	Kind       ProviderErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s error (http %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Auth reports whether the failure was a credential rejection.
func (e *ProviderError) Auth() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

func NewTransient(provider string, status int, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: ProviderTransient, StatusCode: status, Err: err}
}

func NewPermanent(provider string, status int, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: ProviderPermanent, StatusCode: status, Err: err}
}

// IsTransient treats unknown errors as permanent.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind == ProviderTransient
	}
	return false
}

// ClassifyStatus maps an HTTP status from a provider to an error kind:
// timeouts, 5xx and 429 are transient; every other 4xx is permanent.
func ClassifyStatus(status int) ProviderErrorKind {
	switch {
	case status == 408 || status == 429 || status >= 500:
		return ProviderTransient
	default:
		return ProviderPermanent
	}
}

// AllProvidersFailedError carries the per-provider error classes of a
// request in which no provider produced output.
type AllProvidersFailedError struct {
	Errors map[string]ProviderErrorKind
}

func (e *AllProvidersFailedError) Error() string {
	ids := make([]string, 0, len(e.Errors))
	for id := range e.Errors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id+"="+string(e.Errors[id]))
	}
	return ErrAllProvidersFailed.Error() + " (" + strings.Join(parts, ", ") + ")"
}

func (e *AllProvidersFailedError) Unwrap() error { return ErrAllProvidersFailed }
