/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place. The engine itself degrades to defaults
  instead of failing (missing numerics are zero, unmatched insurers fall
  to the generic formula, unmatched tiers pay zero); errors here come from
  the mutation path: locked periods, missing records, malformed input.

USAGE:
  if errors.Is(err, billing.ErrPeriodLocked) {
      // surface to the operator; the month is closed
  }

SEE ALSO:
  - approval.go: The mutation path that returns these
  - store.go: Store implementations return the not-found sentinels
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPeriodLocked is returned when a mutation targets a record in a
	// closed billing month. Locking is enforced here in the engine, not
	// just in the UI.
	ErrPeriodLocked = errors.New("billing period is locked")

	// ErrRecordNotFound is returned when a referenced sale record doesn't exist.
	ErrRecordNotFound = errors.New("sale record not found")

	// ErrClientNotFound is returned when a referenced manual portfolio
	// client doesn't exist.
	ErrClientNotFound = errors.New("manual portfolio client not found")

	// ErrInvalidPeriod is returned when a period string is not YYYY-MM.
	ErrInvalidPeriod = errors.New("invalid period")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PeriodLockedError reports which mutation hit which closed month.
type PeriodLockedError struct {
	Period Month
	Op     string
}

func (e *PeriodLockedError) Error() string {
	return fmt.Sprintf("%s: period %s is locked", e.Op, e.Period)
}

func (e *PeriodLockedError) Unwrap() error { return ErrPeriodLocked }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid operator input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrPeriodLocked) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrClientNotFound)
}
