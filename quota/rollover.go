/*
rollover.go - Year-boundary carry-over and record bootstrap

PURPOSE:
  Materializes the incoming year's AnnualRecord from the outgoing year's
  plan and usage. One formula, applied once per (user, year):

    rollover(Y) = plan(Y-1).vacation_days
                + record(Y-1).worked_on_holiday_days
                - record(Y-1).used_vacation_days
                - record(Y-1).used_sick_leave_days

  The result is signed and deliberately unclamped: over-drawn leave in one
  year reduces the carry-over into the next.

STATE MACHINE:
  Each (user, year) moves through exactly one of:
    no-record    -> bootstrapped  (no prior year: new-hire, rollover = 0)
    no-record    -> rolled-over   (prior year exists: formula applied)
    has-record   -> skipped       (idempotent no-op, reported as success)
    any          -> failed        (that user only; the sweep continues)

PLAN RESOLUTION:
  The new record references the most recent plan configured for the target
  year; if none exists it falls back to the prior year's plan, and a
  bootstrap with no prior year falls back to the most recent plan overall.
  No resolvable plan at all is a failure for that user, never a silent
  zero-quota record.

SEE ALSO:
  - api/scheduler.go: The time-based trigger and startup reconciliation
  - engine.go: The keyed lock this shares with ledger writes
*/
package quota

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// RolloverVacation computes the carry-over vacation balance derived from a
// closing year's plan and record. Signed; never floored at zero.
func RolloverVacation(plan QuotaPlan, rec AnnualRecord) decimal.Decimal {
	return plan.VacationDays.
		Add(rec.WorkedOnHolidayDays).
		Sub(rec.UsedVacationDays).
		Sub(rec.UsedSickLeaveDays)
}

// =============================================================================
// ROLLOVER RESULTS
// =============================================================================

type RolloverOutcome string

const (
	OutcomeBootstrapped RolloverOutcome = "bootstrapped"
	OutcomeRolledOver   RolloverOutcome = "rolled_over"
	OutcomeSkipped      RolloverOutcome = "skipped"
	OutcomeFailed       RolloverOutcome = "failed"
)

// RolloverResult reports one user's transition for the target year.
type RolloverResult struct {
	UserID  UserID
	Year    int
	Outcome RolloverOutcome

	// RolloverDays is the carried-over vacation balance (zero for
	// bootstraps, unset for skips and failures).
	RolloverDays decimal.Decimal

	Err error
}

// Failed reports whether the user's transition failed.
func (r RolloverResult) Failed() bool { return r.Outcome == OutcomeFailed }

// =============================================================================
// SINGLE-USER TRANSITION
// =============================================================================

// EnsureRecord guarantees the user has an AnnualRecord for the year,
// creating it by rollover or bootstrap if missing. It is the single unit
// of work behind onboarding and the year-end sweep, and it is idempotent:
// an existing record yields OutcomeSkipped, never a duplicate or overwrite.
func (e *Engine) EnsureRecord(ctx context.Context, userID UserID, year int) RolloverResult {
	unlock := e.locks.lock(recordKey{userID, year})
	defer unlock()

	result := RolloverResult{UserID: userID, Year: year}

	existing, err := e.store.GetRecord(ctx, userID, year)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		return result
	}
	if existing != nil {
		result.Outcome = OutcomeSkipped
		return result
	}

	prev, err := e.store.GetRecord(ctx, userID, year-1)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		return result
	}

	var rec AnnualRecord
	if prev == nil {
		rec, err = e.bootstrapRecord(ctx, userID, year)
		result.Outcome = OutcomeBootstrapped
	} else {
		rec, err = e.rolloverRecord(ctx, userID, year, prev)
		result.Outcome = OutcomeRolledOver
	}
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		return result
	}
	result.RolloverDays = rec.RolloverVacationDays

	if err := e.store.CreateRecord(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicateRollover) {
			// Lost a race with another creator; the record exists, which
			// is what we wanted.
			result.Outcome = OutcomeSkipped
			result.Err = nil
			return result
		}
		result.Outcome = OutcomeFailed
		result.Err = err
	}
	return result
}

// bootstrapRecord builds a first-year record: zero rollover, zero usage.
// This is the new-hire path, not an error.
func (e *Engine) bootstrapRecord(ctx context.Context, userID UserID, year int) (AnnualRecord, error) {
	plan, err := e.resolvePlan(ctx, year, "")
	if err != nil {
		return AnnualRecord{}, err
	}
	return newRecord(userID, year, plan.ID, decimal.Zero), nil
}

// rolloverRecord applies the carry-over formula to the prior year.
func (e *Engine) rolloverRecord(ctx context.Context, userID UserID, year int, prev *AnnualRecord) (AnnualRecord, error) {
	if prev.QuotaPlanID == "" {
		return AnnualRecord{}, &MissingQuotaPlanError{UserID: userID, Year: prev.Year}
	}
	prevPlan, err := e.store.GetPlan(ctx, prev.QuotaPlanID)
	if err != nil {
		return AnnualRecord{}, err
	}
	if prevPlan == nil {
		return AnnualRecord{}, &MissingQuotaPlanError{UserID: userID, Year: prev.Year, PlanID: prev.QuotaPlanID}
	}

	plan, err := e.resolvePlan(ctx, year, prev.QuotaPlanID)
	if err != nil {
		return AnnualRecord{}, err
	}
	return newRecord(userID, year, plan.ID, RolloverVacation(*prevPlan, *prev)), nil
}

// resolvePlan picks the plan a new record for the year should reference:
// the latest plan configured for the year, else the fallback plan id (the
// prior year's), else the most recent plan overall.
func (e *Engine) resolvePlan(ctx context.Context, year int, fallback PlanID) (*QuotaPlan, error) {
	plan, err := e.store.PlanForYear(ctx, year)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		return plan, nil
	}
	if fallback != "" {
		plan, err = e.store.GetPlan(ctx, fallback)
		if err != nil {
			return nil, err
		}
		if plan != nil {
			return plan, nil
		}
	}
	plan, err = e.store.LatestPlan(ctx)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

func newRecord(userID UserID, year int, planID PlanID, rollover decimal.Decimal) AnnualRecord {
	return AnnualRecord{
		UserID:                 userID,
		Year:                   year,
		QuotaPlanID:            planID,
		RolloverVacationDays:   rollover,
		WorkedOnHolidayDays:    decimal.Zero,
		UsedVacationDays:       decimal.Zero,
		UsedSickLeaveDays:      decimal.Zero,
		UsedMedicalExpenseBaht: decimal.Zero,
		WorkedDays:             decimal.Zero,
	}
}

// =============================================================================
// BATCH SWEEP
// =============================================================================

// RunYearEndRollover transitions every employee into the target year. Each
// user is an independent unit of work: one failure is recorded in that
// user's result and the sweep continues. The returned error covers only
// the inability to enumerate users.
func (e *Engine) RunYearEndRollover(ctx context.Context, targetYear int) ([]RolloverResult, error) {
	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]RolloverResult, 0, len(users))
	for _, u := range users {
		results = append(results, e.EnsureRecord(ctx, u.ID, targetYear))
	}
	return results, nil
}
