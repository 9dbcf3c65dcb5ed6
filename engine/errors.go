/*
errors.go - Centralized error taxonomy for the lending core

PURPOSE:
  All error types in one place. Callers dispatch with errors.Is/errors.As;
  the structured types carry enough context to render a useful message
  without string matching.

ERROR CATEGORIES:
  1. Lookup errors     - missing Application/Loan
  2. Economics errors  - invalid term, malformed numeric inputs
  3. Lifecycle errors  - duplicate loan, illegal status transition
  4. Storage errors    - upstream read/write failures, cause preserved

USAGE:
  if errors.Is(err, engine.ErrNotFound) { ... }

  var termErr *engine.InvalidTermError
  if errors.As(err, &termErr) { ... termErr.Term ... }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced Application or Loan is missing.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTerm is returned when a loan term is below one month.
	ErrInvalidTerm = errors.New("invalid term")

	// ErrDuplicateLoan is returned by storage when a second loan insert for
	// the same application hits the uniqueness constraint. The materializer
	// recovers it into an idempotent return; it never surfaces to callers.
	ErrDuplicateLoan = errors.New("loan already exists for application")

	// ErrComputation is returned on malformed numeric inputs, e.g. a
	// negative principal or an unknown report range.
	ErrComputation = errors.New("computation failed")

	// ErrDataSource is returned when an upstream read or write fails.
	// The underlying cause is always preserved via wrapping.
	ErrDataSource = errors.New("data source failure")

	// ErrInvalidTransition is returned when a status change is not present
	// in the application transition table.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies which record was missing.
type NotFoundError struct {
	Kind string // "application", "loan"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidTermError reports the rejected term value.
type InvalidTermError struct {
	Term int
}

func (e *InvalidTermError) Error() string {
	return fmt.Sprintf("invalid term: %d months (must be >= 1)", e.Term)
}

func (e *InvalidTermError) Unwrap() error { return ErrInvalidTerm }

// ComputationError describes a malformed numeric input.
type ComputationError struct {
	Field  string
	Reason string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation failed: %s %s", e.Field, e.Reason)
}

func (e *ComputationError) Unwrap() error { return ErrComputation }

// DataSourceError wraps an upstream storage failure, preserving the cause.
type DataSourceError struct {
	Op  string
	Err error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source failure in %s: %v", e.Op, e.Err)
}

func (e *DataSourceError) Unwrap() error { return ErrDataSource }

// Cause exposes the original error for callers that need the root message.
func (e *DataSourceError) Cause() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTerm) ||
		errors.Is(err, ErrComputation) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
