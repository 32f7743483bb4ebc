package quota_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunthorn/leave-engine/quota"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return quota.MustParseDecimal(s)
}

func date(year int, month time.Month, day int) quota.Date {
	return quota.NewDate(year, month, day)
}

func testPlan(year int, vacation, medical string) quota.QuotaPlan {
	return quota.QuotaPlan{
		ID:                 quota.PlanID("plan-" + vacation),
		Name:               "Standard",
		Year:               year,
		VacationDays:       dec(vacation),
		MedicalExpenseBaht: dec(medical),
	}
}

func testRecord(userID string, year int, planID quota.PlanID) quota.AnnualRecord {
	return quota.AnnualRecord{
		UserID:                 quota.UserID(userID),
		Year:                   year,
		QuotaPlanID:            planID,
		RolloverVacationDays:   decimal.Zero,
		WorkedOnHolidayDays:    decimal.Zero,
		UsedVacationDays:       decimal.Zero,
		UsedSickLeaveDays:      decimal.Zero,
		UsedMedicalExpenseBaht: decimal.Zero,
		WorkedDays:             decimal.Zero,
	}
}

// =============================================================================
// CALENDAR TESTS
// =============================================================================

func TestDaysInYear_LeapYearRules(t *testing.T) {
	// GIVEN: The Gregorian leap rules (div 4, except div 100, except div 400)
	// THEN: Day counts follow 366/365 accordingly

	cases := []struct {
		year int
		want int
	}{
		{2024, 366}, // divisible by 4
		{2025, 365}, // common year
		{2023, 365}, // common year
		{2000, 366}, // divisible by 400
		{1900, 365}, // divisible by 100 but not 400
		{2100, 365}, // divisible by 100 but not 400
		{2400, 366}, // divisible by 400
	}

	for _, c := range cases {
		assert.Equal(t, c.want, quota.DaysInYear(c.year), "year %d", c.year)
	}
}

func TestDayOfYear_IsOneIndexed(t *testing.T) {
	assert.Equal(t, 1, date(2025, time.January, 1).DayOfYear())
	assert.Equal(t, 365, date(2025, time.December, 31).DayOfYear())
	assert.Equal(t, 366, date(2024, time.December, 31).DayOfYear())
	// Feb 29 exists in 2024
	assert.Equal(t, 60, date(2024, time.February, 29).DayOfYear())
	// Mar 1 shifts by one between leap and common years
	assert.Equal(t, 61, date(2024, time.March, 1).DayOfYear())
	assert.Equal(t, 60, date(2025, time.March, 1).DayOfYear())
}

// =============================================================================
// PRO-RATING TESTS
// =============================================================================

func TestProRated_FullYearOnDec31(t *testing.T) {
	// GIVEN: A 18-day annual quota
	// WHEN: Pro-rated as of December 31
	// THEN: The full quota is available, exactly

	got := quota.ProRated(dec("18"), date(2025, time.December, 31))
	assert.True(t, got.Equal(dec("18")), "got %s", got)

	// Same in a leap year: 366/366
	got = quota.ProRated(dec("18"), date(2024, time.December, 31))
	assert.True(t, got.Equal(dec("18")), "got %s", got)
}

func TestProRated_OneDayOnJan1(t *testing.T) {
	// GIVEN: A 18-day annual quota
	// WHEN: Pro-rated as of January 1
	// THEN: Exactly 18 * 1/365 is available

	got := quota.ProRated(dec("18"), date(2025, time.January, 1))
	want := dec("18").Div(dec("365"))
	assert.True(t, got.Equal(want), "got %s want %s", got, want)
}

func TestProRated_LeapYearUses366(t *testing.T) {
	// GIVEN: A 36.6-day quota in leap year 2024
	// WHEN: Pro-rated as of day 183 (July 1)
	// THEN: Exactly 36.6 * 183/366 = 18.3

	asOf := date(2024, time.July, 1)
	require.Equal(t, 183, asOf.DayOfYear())

	got := quota.ProRated(dec("36.6"), asOf)
	assert.True(t, got.Equal(dec("18.3")), "got %s", got)
}

func TestProRated_FractionalQuota(t *testing.T) {
	// Decimal arithmetic: 73 * 100/365 divides exactly to 20.
	asOf := date(2025, time.April, 10)
	require.Equal(t, 100, asOf.DayOfYear())

	got := quota.ProRated(dec("73"), asOf)
	assert.True(t, got.Equal(dec("20")), "got %s", got)
}

// =============================================================================
// REMAINING ENTITLEMENT TESTS
// =============================================================================

func TestRemainingVacation_CombinesAllComponents(t *testing.T) {
	// GIVEN: rollover 2, holiday credit 1, plan 18 days, 5 used, Dec 31
	// THEN: remaining = 2 + 1 + 18 - 5 = 16

	plan := testPlan(2025, "18", "20000")
	rec := testRecord("emp-1", 2025, plan.ID)
	rec.RolloverVacationDays = dec("2")
	rec.WorkedOnHolidayDays = dec("1")
	rec.UsedVacationDays = dec("5")

	got, err := quota.RemainingVacation(rec, &plan, date(2025, time.December, 31))
	require.NoError(t, err)
	assert.True(t, got.Value.Equal(dec("16")), "got %s", got.Value)
	assert.Equal(t, quota.UnitDays, got.Unit)
}

func TestRemainingVacation_CanGoNegative(t *testing.T) {
	// GIVEN: 10 days used against a small pro-rated quota early in the year
	// THEN: The balance is negative and NOT clamped to zero

	plan := testPlan(2025, "18", "20000")
	rec := testRecord("emp-1", 2025, plan.ID)
	rec.UsedVacationDays = dec("10")

	got, err := quota.RemainingVacation(rec, &plan, date(2025, time.January, 31))
	require.NoError(t, err)
	assert.True(t, got.Value.IsNegative(), "expected negative balance, got %s", got.Value)
}

func TestRemainingMedical_IgnoresVacationComponents(t *testing.T) {
	// GIVEN: Medical usage and unrelated vacation credits
	// THEN: remaining medical = pro_rated(plan.medical) - used medical only

	plan := testPlan(2025, "18", "20000")
	rec := testRecord("emp-1", 2025, plan.ID)
	rec.RolloverVacationDays = dec("5")
	rec.WorkedOnHolidayDays = dec("3")
	rec.UsedMedicalExpenseBaht = dec("4500")

	got, err := quota.RemainingMedical(rec, &plan, date(2025, time.December, 31))
	require.NoError(t, err)
	assert.True(t, got.Value.Equal(dec("15500")), "got %s", got.Value)
	assert.Equal(t, quota.UnitBaht, got.Unit)
}

func TestRemaining_MissingPlanIsAnError(t *testing.T) {
	// GIVEN: A record whose plan cannot be resolved
	// THEN: MissingQuotaPlan, never a silent zero quota

	rec := testRecord("emp-1", 2025, "plan-gone")

	_, err := quota.RemainingVacation(rec, nil, date(2025, time.June, 1))
	assert.ErrorIs(t, err, quota.ErrMissingQuotaPlan)

	_, err = quota.RemainingMedical(rec, nil, date(2025, time.June, 1))
	assert.ErrorIs(t, err, quota.ErrMissingQuotaPlan)

	var missing *quota.MissingQuotaPlanError
	_, err = quota.RemainingVacation(rec, nil, date(2025, time.June, 1))
	assert.ErrorAs(t, err, &missing)
	assert.Equal(t, quota.UserID("emp-1"), missing.UserID)
}

func TestBuildSnapshot_DerivesBothBalances(t *testing.T) {
	plan := testPlan(2025, "18", "20000")
	rec := testRecord("emp-1", 2025, plan.ID)
	rec.UsedVacationDays = dec("3")
	rec.UsedMedicalExpenseBaht = dec("1000")

	snap, err := quota.BuildSnapshot(rec, &plan, date(2025, time.December, 31))
	require.NoError(t, err)

	assert.Equal(t, quota.UserID("emp-1"), snap.UserID)
	assert.Equal(t, 2025, snap.Year)
	assert.Equal(t, plan.ID, snap.PlanID)
	assert.True(t, snap.ProRatedVacationDays.Equal(dec("18")))
	assert.True(t, snap.RemainingVacation.Value.Equal(dec("15")))
	assert.True(t, snap.RemainingMedical.Value.Equal(dec("19000")))
}
