/*
errors.go - Centralized error types for the quota engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match with errors.Is against the sentinels; structured types
  carry the offending identifiers and Unwrap to the sentinels.

ERROR CATEGORIES:
  1. Data-integrity errors - records missing their quota plan
  2. Lookup errors - referenced rows that don't exist
  3. Rollover errors - duplicate year-end creation (treated as no-op)

USAGE:
    if errors.Is(err, quota.ErrMissingQuotaPlan) {
        // entitlement math refused to guess a default
    }
*/
package quota

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingQuotaPlan is returned when entitlement math is requested
	// against an AnnualRecord whose quota plan cannot be resolved. The
	// calculator never substitutes a zero plan: "no plan" and "zero
	// entitlement" are different answers.
	ErrMissingQuotaPlan = errors.New("missing quota plan")

	// ErrRecordNotFound is returned when a ledger write references a
	// (user, year) with no AnnualRecord. Records are created only by
	// onboarding and rollover, never implicitly by a ledger write.
	ErrRecordNotFound = errors.New("annual record not found")

	// ErrDuplicateRollover is returned when rollover would create an
	// AnnualRecord for a (user, year) that already has one. Callers treat
	// this as success: the sweep is idempotent.
	ErrDuplicateRollover = errors.New("annual record already exists")

	// ErrPlanNotFound is returned when a quota plan lookup misses.
	ErrPlanNotFound = errors.New("quota plan not found")

	// ErrEntryNotFound is returned when a usage ledger entry lookup misses.
	ErrEntryNotFound = errors.New("usage entry not found")

	// ErrUserNotFound is returned when a referenced employee doesn't exist.
	ErrUserNotFound = errors.New("employee not found")

	// ErrInvalidEntry is returned for malformed ledger entries (unknown
	// kind, zero date, wrong unit).
	ErrInvalidEntry = errors.New("invalid usage entry")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MissingQuotaPlanError identifies which record lacked a resolvable plan.
type MissingQuotaPlanError struct {
	UserID UserID
	Year   int
	PlanID PlanID
}

func (e *MissingQuotaPlanError) Error() string {
	if e.PlanID == "" {
		return fmt.Sprintf("annual record %s/%d has no quota plan assigned", e.UserID, e.Year)
	}
	return fmt.Sprintf("annual record %s/%d references unknown quota plan %q", e.UserID, e.Year, e.PlanID)
}

func (e *MissingQuotaPlanError) Unwrap() error { return ErrMissingQuotaPlan }

// RecordNotFoundError identifies the missing (user, year) aggregate.
type RecordNotFoundError struct {
	UserID UserID
	Year   int
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("no annual record for %s in %d", e.UserID, e.Year)
}

func (e *RecordNotFoundError) Unwrap() error { return ErrRecordNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidEntry)
}
