/*
calculator.go - Pro-rating and remaining-entitlement math

PURPOSE:
  Pure functions computing point-in-time entitlement from an AnnualRecord,
  its QuotaPlan, and an explicit as-of date. Nothing here touches storage
  or the wall clock, which keeps leap-year and boundary dates trivially
  testable.

PRO-RATING:
  An annual quota Q accrues linearly through the year:

    pro_rated(Q, d) = Q * day_of_year(d) / days_in_year(d.year)

  day_of_year is 1-indexed and inclusive (Jan 1 counts as one elapsed day),
  days_in_year is 366 in leap years. All arithmetic stays in decimal; any
  rounding is the display layer's business.

REMAINING BALANCES:
  remaining_vacation = rollover + holiday_credit + pro_rated(plan.vacation) - used_vacation
  remaining_medical  = pro_rated(plan.medical) - used_medical

  Both are signed and never clamped. A negative value is the user-visible
  "over budget" signal, not an error. A balance above the nominal annual
  quota is legitimate (holiday-work credit).

SEE ALSO:
  - rollover.go: The year-boundary formula that produces RolloverVacationDays
  - engine.go: Storage-backed wrappers around these functions
*/
package quota

import "github.com/shopspring/decimal"

// ProRated scales an annual total by the fraction of the year elapsed at
// asOf. Full decimal precision is kept; callers round at display time only.
func ProRated(total decimal.Decimal, asOf Date) decimal.Decimal {
	elapsed := decimal.NewFromInt(int64(asOf.DayOfYear()))
	inYear := decimal.NewFromInt(int64(DaysInYear(asOf.Year())))
	return total.Mul(elapsed).Div(inYear)
}

// RemainingVacation computes the signed vacation balance at asOf.
// The plan must resolve: a nil plan fails with MissingQuotaPlan rather
// than pretending the entitlement is zero.
func RemainingVacation(rec AnnualRecord, plan *QuotaPlan, asOf Date) (Amount, error) {
	if err := requirePlan(rec, plan); err != nil {
		return Amount{}, err
	}
	remaining := rec.RolloverVacationDays.
		Add(rec.WorkedOnHolidayDays).
		Add(ProRated(plan.VacationDays, asOf)).
		Sub(rec.UsedVacationDays)
	return Amount{Value: remaining, Unit: UnitDays}, nil
}

// RemainingMedical computes the signed medical-expense balance at asOf.
func RemainingMedical(rec AnnualRecord, plan *QuotaPlan, asOf Date) (Amount, error) {
	if err := requirePlan(rec, plan); err != nil {
		return Amount{}, err
	}
	remaining := ProRated(plan.MedicalExpenseBaht, asOf).Sub(rec.UsedMedicalExpenseBaht)
	return Amount{Value: remaining, Unit: UnitBaht}, nil
}

func requirePlan(rec AnnualRecord, plan *QuotaPlan) error {
	if rec.QuotaPlanID == "" {
		return &MissingQuotaPlanError{UserID: rec.UserID, Year: rec.Year}
	}
	if plan == nil {
		return &MissingQuotaPlanError{UserID: rec.UserID, Year: rec.Year, PlanID: rec.QuotaPlanID}
	}
	return nil
}

// =============================================================================
// ENTITLEMENT SNAPSHOT - Point-in-time view for callers
// =============================================================================

// EntitlementSnapshot is the consistent read the query surface returns:
// the record, the plan it references, and the derived balances, all as of
// a single date.
type EntitlementSnapshot struct {
	UserID UserID
	Year   int
	AsOf   Date
	PlanID PlanID

	ProRatedVacationDays decimal.Decimal
	RemainingVacation    Amount
	ProRatedMedicalBaht  decimal.Decimal
	RemainingMedical     Amount

	Record AnnualRecord
}

// BuildSnapshot derives the full entitlement view from one record and plan.
func BuildSnapshot(rec AnnualRecord, plan *QuotaPlan, asOf Date) (EntitlementSnapshot, error) {
	vacation, err := RemainingVacation(rec, plan, asOf)
	if err != nil {
		return EntitlementSnapshot{}, err
	}
	medical, err := RemainingMedical(rec, plan, asOf)
	if err != nil {
		return EntitlementSnapshot{}, err
	}
	return EntitlementSnapshot{
		UserID:               rec.UserID,
		Year:                 rec.Year,
		AsOf:                 asOf,
		PlanID:               plan.ID,
		ProRatedVacationDays: ProRated(plan.VacationDays, asOf),
		RemainingVacation:    vacation,
		ProRatedMedicalBaht:  ProRated(plan.MedicalExpenseBaht, asOf),
		RemainingMedical:     medical,
		Record:               rec,
	}, nil
}
