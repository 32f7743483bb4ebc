/*
Package quota implements the leave quota and rollover engine.

PURPOSE:
  This package contains the data model and algorithms for tracking
  per-employee annual leave and medical-expense entitlements. Entitlements
  accrue continuously through a calendar year (pro-rated by elapsed days)
  and carry over into the following year via a fixed rollover formula.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (days of leave, baht of medical budget)
  - QuotaPlan: Yearly entitlement schedule (vacation days, medical budget)
  - AnnualRecord: Per-employee-per-year aggregate of balances and usage
  - Entry: A single usage ledger event (leave taken, expense incurred)

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors.
     Rounding happens at display time only, never in the engine.
  2. Derivation: AnnualRecord usage counters are always re-derived from
     the usage ledger, never incrementally mutated.
  3. Explicit time: Every calculation takes its as-of date as a parameter;
     nothing reads the wall clock.

SEE ALSO:
  - calculator.go: Pro-rating and remaining-entitlement math
  - engine.go: Ledger synchronization and queries
  - rollover.go: Year-boundary carry-over
*/
package quota

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays Unit = "days"
	UnitBaht Unit = "baht"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Add(b Amount) Amount { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Neg() Amount         { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool    { return a.Value.IsNegative() }
func (a Amount) IsZero() bool        { return a.Value.IsZero() }
func (a Amount) IsPositive() bool    { return a.Value.IsPositive() }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type PlanID string
type EntryID string

// =============================================================================
// QUOTA PLAN - Yearly entitlement schedule
// =============================================================================

// QuotaPlan defines the nominal annual entitlements for a year.
// A plan is immutable once any AnnualRecord references it; administrators
// create a new plan rather than editing one in place.
type QuotaPlan struct {
	ID   PlanID
	Name string

	// Year the plan applies to. Multiple plans may exist for a year;
	// the most recently created one wins.
	Year int

	VacationDays       decimal.Decimal
	MedicalExpenseBaht decimal.Decimal

	CreatedAt time.Time
}

// =============================================================================
// ANNUAL RECORD - Per-(employee, year) aggregate
// =============================================================================

// AnnualRecord holds one employee's opening balances and accumulated usage
// for one calendar year. Unique per (UserID, Year).
//
// The Used* and Worked* counters are derived from the usage ledger: every
// ledger write re-sums all entries of the affected kind for the (user, year)
// and replaces the counter wholesale. They are never incremented in place.
type AnnualRecord struct {
	UserID UserID
	Year   int

	// QuotaPlanID links the record to its entitlement schedule. Required:
	// entitlement math against a record with an unresolvable plan fails
	// with MissingQuotaPlan rather than assuming zero.
	QuotaPlanID PlanID

	// Carried in from the prior year's rollover. Zero for a first year.
	// May be negative: over-drawn leave reduces the next year's balance.
	RolloverVacationDays decimal.Decimal

	// Credit earned by working on holidays during the year.
	WorkedOnHolidayDays decimal.Decimal

	UsedVacationDays       decimal.Decimal
	UsedSickLeaveDays      decimal.Decimal
	UsedMedicalExpenseBaht decimal.Decimal

	// Informational counter of logged workdays.
	WorkedDays decimal.Decimal
}

// Counter returns the accumulated counter fed by the given entry kind.
func (r *AnnualRecord) Counter(kind EntryKind) decimal.Decimal {
	switch kind {
	case EntryVacation:
		return r.UsedVacationDays
	case EntrySick:
		return r.UsedSickLeaveDays
	case EntryHolidayWorked:
		return r.WorkedOnHolidayDays
	case EntryMedicalExpense:
		return r.UsedMedicalExpenseBaht
	case EntryWorkday:
		return r.WorkedDays
	default:
		return decimal.Zero
	}
}

// SetCounter replaces the counter fed by the given entry kind.
func (r *AnnualRecord) SetCounter(kind EntryKind, v decimal.Decimal) {
	switch kind {
	case EntryVacation:
		r.UsedVacationDays = v
	case EntrySick:
		r.UsedSickLeaveDays = v
	case EntryHolidayWorked:
		r.WorkedOnHolidayDays = v
	case EntryMedicalExpense:
		r.UsedMedicalExpenseBaht = v
	case EntryWorkday:
		r.WorkedDays = v
	}
}

// =============================================================================
// USAGE LEDGER ENTRY - Single usage event
// =============================================================================

// EntryKind discriminates what a ledger entry records and which
// AnnualRecord counter it feeds.
type EntryKind string

const (
	EntryVacation       EntryKind = "vacation"
	EntrySick           EntryKind = "sick"
	EntryHolidayWorked  EntryKind = "holiday_worked"
	EntryMedicalExpense EntryKind = "medical_expense"
	EntryWorkday        EntryKind = "worked"
)

// Unit returns the unit amounts of this kind are denominated in.
func (k EntryKind) Unit() Unit {
	if k == EntryMedicalExpense {
		return UnitBaht
	}
	return UnitDays
}

// Valid reports whether k is a known entry kind.
func (k EntryKind) Valid() bool {
	switch k {
	case EntryVacation, EntrySick, EntryHolidayWorked, EntryMedicalExpense, EntryWorkday:
		return true
	}
	return false
}

// Entry is one usage ledger event. The owning (user, year) is implied by
// UserID and the entry date's year.
type Entry struct {
	ID     EntryID
	UserID UserID
	Kind   EntryKind
	Date   Date
	Amount Amount
	Note   string

	CreatedAt time.Time
}

// Year returns the calendar year the entry belongs to.
func (e Entry) Year() int { return e.Date.Year() }
