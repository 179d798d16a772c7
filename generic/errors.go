/*
errors.go - Centralized error types for the date-range engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context and turn them
  into Outcomes at their public boundary (see outcome.go).

ERROR CATEGORIES:
  1. Validation errors - malformed dates, inverted ranges
  2. Domain conflicts  - past dates, start after end in a proposed range
  3. Not-found         - missing pools, no matching rules
  4. Upstream errors   - booking oracle transport failures

USAGE:
  if errors.Is(err, generic.ErrInvalidRange) {
      return generic.HardReject{Kind: generic.KindStartAfterEnd}
  }

SEE ALSO:
  - outcome.go: Error to Outcome normalization
  - pooling/reconcile.go: Produces UpstreamError
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDateFormat is returned when a date string is not YYYY-MM-DD.
	ErrInvalidDateFormat = errors.New("invalid date format")

	// ErrInvalidRange is returned when a range's start is after its end.
	ErrInvalidRange = errors.New("start date greater than end date")

	// ErrPastDate is returned when a proposed range ends before today.
	ErrPastDate = errors.New("dates in the past are not allowed")

	// ErrDateValidation is returned when a proposed range is inverted.
	ErrDateValidation = errors.New("start date cannot be after end date")

	// ErrNoRulesFound is returned when no rule of the requested type matches.
	ErrNoRulesFound = errors.New("no rules found")

	// ErrPoolNotFound is returned when a referenced pool doesn't exist.
	ErrPoolNotFound = errors.New("pool not found")

	// ErrInvalidRequest is returned when a request payload fails validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrDuplicatePoolName is returned when a pool name is already taken.
	ErrDuplicatePoolName = errors.New("pool name must be unique")

	// ErrUpstream is returned when the booking oracle cannot be reached or
	// answers with something unusable.
	ErrUpstream = errors.New("upstream call failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DateFormatError keeps the offending value and the parser detail.
type DateFormatError struct {
	Value string
	Err   error
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("invalid date %q: %v", e.Value, e.Err)
}

func (e *DateFormatError) Unwrap() error {
	return ErrInvalidDateFormat
}

// UpstreamError wraps a failed oracle call.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstream, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDateFormat) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrPastDate) ||
		errors.Is(err, ErrDateValidation) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrDuplicatePoolName)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPoolNotFound) ||
		errors.Is(err, ErrNoRulesFound)
}
