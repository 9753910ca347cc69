package service

import (
	"errors"
	"strings"
)

// User-facing failures are typed results; nothing in this package
// reports success after a partial mutation. Impossible states (negative
// remaining quantity, a live order missing from its book) panic.

var (
	ErrOrderNotFound = errors.New("service: order not found")
	ErrNotOwner      = errors.New("service: order not owned by requesting client")
	ErrTerminalState = errors.New("service: order already in terminal state")
)

// ValidationError carries every failed check, not just the first, so
// callers can report them all or only the first.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "order validation failed: " + strings.Join(e.Violations, "; ")
}

func newValidationError(violations ...string) *ValidationError {
	return &ValidationError{Violations: violations}
}
