package quota_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunthorn/leave-engine/quota"
	"github.com/sunthorn/leave-engine/quota/store"
)

// =============================================================================
// ROLLOVER FORMULA TESTS
// =============================================================================

func TestRolloverVacation_ExactFormula(t *testing.T) {
	// GIVEN: 18 vacation, 2 holidays worked, 10 vacation used, 3 sick used
	// THEN: rollover = 18 + 2 - 10 - 3 = 7, exactly

	plan := testPlan(2024, "18", "20000")
	rec := testRecord("emp-1", 2024, plan.ID)
	rec.WorkedOnHolidayDays = dec("2")
	rec.UsedVacationDays = dec("10")
	rec.UsedSickLeaveDays = dec("3")

	got := quota.RolloverVacation(plan, rec)
	assert.True(t, got.Equal(dec("7")), "got %s", got)
}

func TestRolloverVacation_NegativeIsNotClamped(t *testing.T) {
	// GIVEN: Heavy sick-leave usage outrunning the vacation quota
	// THEN: The opening balance for the next year is a real debt

	plan := testPlan(2024, "10", "20000")
	rec := testRecord("emp-1", 2024, plan.ID)
	rec.UsedVacationDays = dec("10")
	rec.UsedSickLeaveDays = dec("4")

	got := quota.RolloverVacation(plan, rec)
	assert.True(t, got.Equal(dec("-4")), "got %s", got)
}

func TestRolloverVacation_IgnoresPriorRollover(t *testing.T) {
	// The carry-over derives from the prior year's NOMINAL quota, not from
	// its remaining balance; last year's rollover doesn't compound.

	plan := testPlan(2024, "18", "20000")
	rec := testRecord("emp-1", 2024, plan.ID)
	rec.RolloverVacationDays = dec("5")
	rec.UsedVacationDays = dec("6")

	got := quota.RolloverVacation(plan, rec)
	assert.True(t, got.Equal(dec("12")), "got %s", got)
}

// =============================================================================
// ENSURE RECORD TESTS
// =============================================================================

type rolloverFixture struct {
	ctx    context.Context
	mem    *store.Memory
	engine *quota.Engine
}

func newRolloverFixture(t *testing.T) *rolloverFixture {
	t.Helper()
	f := &rolloverFixture{ctx: context.Background(), mem: store.NewMemory()}
	f.engine = quota.NewEngine(f.mem)
	return f
}

func (f *rolloverFixture) addUser(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.mem.SaveUser(f.ctx, quota.User{
		ID:       quota.UserID(id),
		Name:     id,
		HireDate: date(2023, time.February, 1),
	}))
}

func TestEnsureRecord_BootstrapForNewHire(t *testing.T) {
	// GIVEN: An employee with no prior record
	// WHEN: EnsureRecord runs for 2025
	// THEN: A record with zero opening balances referencing the 2025 plan

	f := newRolloverFixture(t)
	f.addUser(t, "emp-1")
	plan := testPlan(2025, "18", "20000")
	require.NoError(t, f.mem.SavePlan(f.ctx, plan))

	result := f.engine.EnsureRecord(f.ctx, "emp-1", 2025)
	assert.Equal(t, quota.OutcomeBootstrapped, result.Outcome)
	assert.True(t, result.RolloverDays.IsZero())

	rec, err := f.mem.GetRecord(f.ctx, "emp-1", 2025)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, plan.ID, rec.QuotaPlanID)
	assert.True(t, rec.RolloverVacationDays.IsZero())
}

func TestEnsureRecord_RollsOverPriorYear(t *testing.T) {
	// GIVEN: A 2024 record with usage and a 2025 plan
	// WHEN: EnsureRecord runs for 2025
	// THEN: The new record opens with 18 + 2 - 10 - 3 = 7 carried days

	f := newRolloverFixture(t)
	f.addUser(t, "emp-1")
	plan24 := testPlan(2024, "18", "20000")
	plan25 := testPlan(2025, "20", "25000")
	require.NoError(t, f.mem.SavePlan(f.ctx, plan24))
	require.NoError(t, f.mem.SavePlan(f.ctx, plan25))

	prev := testRecord("emp-1", 2024, plan24.ID)
	prev.WorkedOnHolidayDays = dec("2")
	prev.UsedVacationDays = dec("10")
	prev.UsedSickLeaveDays = dec("3")
	require.NoError(t, f.mem.CreateRecord(f.ctx, prev))

	result := f.engine.EnsureRecord(f.ctx, "emp-1", 2025)
	assert.Equal(t, quota.OutcomeRolledOver, result.Outcome)
	assert.True(t, result.RolloverDays.Equal(dec("7")), "got %s", result.RolloverDays)

	rec, err := f.mem.GetRecord(f.ctx, "emp-1", 2025)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, plan25.ID, rec.QuotaPlanID)
	assert.True(t, rec.UsedVacationDays.IsZero(), "usage counters start at zero")
}

func TestEnsureRecord_Idempotent(t *testing.T) {
	// GIVEN: A completed rollover
	// WHEN: The sweep runs again, any number of times
	// THEN: Skipped every time; the record is never recreated or altered

	f := newRolloverFixture(t)
	f.addUser(t, "emp-1")
	require.NoError(t, f.mem.SavePlan(f.ctx, testPlan(2025, "18", "20000")))

	first := f.engine.EnsureRecord(f.ctx, "emp-1", 2025)
	require.Equal(t, quota.OutcomeBootstrapped, first.Outcome)

	// Mutate the record via a ledger-style update so reruns would be visible
	rec, err := f.mem.GetRecord(f.ctx, "emp-1", 2025)
	require.NoError(t, err)
	rec.UsedVacationDays = dec("4")
	require.NoError(t, f.mem.SaveRecord(f.ctx, *rec))

	for i := 0; i < 3; i++ {
		again := f.engine.EnsureRecord(f.ctx, "emp-1", 2025)
		assert.Equal(t, quota.OutcomeSkipped, again.Outcome)
	}

	rec, err = f.mem.GetRecord(f.ctx, "emp-1", 2025)
	require.NoError(t, err)
	assert.True(t, rec.UsedVacationDays.Equal(dec("4")), "reruns must not touch the record")
}

func TestEnsureRecord_ConcurrentSweepsCreateOneRecord(t *testing.T) {
	f := newRolloverFixture(t)
	f.addUser(t, "emp-1")
	require.NoError(t, f.mem.SavePlan(f.ctx, testPlan(2025, "18", "20000")))

	var wg sync.WaitGroup
	outcomes := make([]quota.RolloverOutcome, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = f.engine.EnsureRecord(f.ctx, "emp-1", 2025).Outcome
		}(i)
	}
	wg.Wait()

	created := 0
	for _, o := range outcomes {
		require.NotEqual(t, quota.OutcomeFailed, o)
		if o == quota.OutcomeBootstrapped {
			created++
		}
	}
	assert.Equal(t, 1, created, "exactly one sweep creates the record")
}

func TestEnsureRecord_PlanFallbackToPriorYears(t *testing.T) {
	// GIVEN: No plan configured for 2025, prior record references the 2024 plan
	// WHEN: Rolling into 2025
	// THEN: The new record reuses the prior year's plan

	f := newRolloverFixture(t)
	f.addUser(t, "emp-1")
	plan24 := testPlan(2024, "18", "20000")
	require.NoError(t, f.mem.SavePlan(f.ctx, plan24))
	require.NoError(t, f.mem.CreateRecord(f.ctx, testRecord("emp-1", 2024, plan24.ID)))

	result := f.engine.EnsureRecord(f.ctx, "emp-1", 2025)
	require.Equal(t, quota.OutcomeRolledOver, result.Outcome)

	rec, err := f.mem.GetRecord(f.ctx, "emp-1", 2025)
	require.NoError(t, err)
	assert.Equal(t, plan24.ID, rec.QuotaPlanID)
}

func TestEnsureRecord_NoPlanAnywhereFails(t *testing.T) {
	// GIVEN: An empty plan registry
	// THEN: Bootstrap fails with PlanNotFound and creates nothing

	f := newRolloverFixture(t)
	f.addUser(t, "emp-1")

	result := f.engine.EnsureRecord(f.ctx, "emp-1", 2025)
	assert.Equal(t, quota.OutcomeFailed, result.Outcome)
	assert.ErrorIs(t, result.Err, quota.ErrPlanNotFound)

	rec, err := f.mem.GetRecord(f.ctx, "emp-1", 2025)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestEnsureRecord_PriorPlanUnresolvableFails(t *testing.T) {
	// GIVEN: A prior record whose plan id was never saved
	// THEN: The carry-over cannot be computed; MissingQuotaPlan, not zero

	f := newRolloverFixture(t)
	f.addUser(t, "emp-1")
	require.NoError(t, f.mem.SavePlan(f.ctx, testPlan(2025, "18", "20000")))
	require.NoError(t, f.mem.CreateRecord(f.ctx, testRecord("emp-1", 2024, "plan-gone")))

	result := f.engine.EnsureRecord(f.ctx, "emp-1", 2025)
	assert.Equal(t, quota.OutcomeFailed, result.Outcome)
	assert.ErrorIs(t, result.Err, quota.ErrMissingQuotaPlan)
}

func TestEnsureRecord_NegativeRolloverCarries(t *testing.T) {
	f := newRolloverFixture(t)
	f.addUser(t, "emp-1")
	plan24 := testPlan(2024, "10", "20000")
	require.NoError(t, f.mem.SavePlan(f.ctx, plan24))
	require.NoError(t, f.mem.SavePlan(f.ctx, testPlan(2025, "10", "20000")))

	prev := testRecord("emp-1", 2024, plan24.ID)
	prev.UsedVacationDays = dec("12")
	require.NoError(t, f.mem.CreateRecord(f.ctx, prev))

	result := f.engine.EnsureRecord(f.ctx, "emp-1", 2025)
	require.Equal(t, quota.OutcomeRolledOver, result.Outcome)
	assert.True(t, result.RolloverDays.Equal(dec("-2")), "got %s", result.RolloverDays)
}

// =============================================================================
// BATCH SWEEP TESTS
// =============================================================================

func TestRunYearEndRollover_PerUserFailureIsolation(t *testing.T) {
	// GIVEN: Three employees, the middle one with an unresolvable prior plan
	// WHEN: The sweep runs
	// THEN: The broken employee fails; the other two still transition

	f := newRolloverFixture(t)
	plan24 := testPlan(2024, "18", "20000")
	require.NoError(t, f.mem.SavePlan(f.ctx, plan24))
	require.NoError(t, f.mem.SavePlan(f.ctx, testPlan(2025, "20", "25000")))

	for _, id := range []string{"emp-1", "emp-2", "emp-3"} {
		f.addUser(t, id)
	}
	require.NoError(t, f.mem.CreateRecord(f.ctx, testRecord("emp-1", 2024, plan24.ID)))
	require.NoError(t, f.mem.CreateRecord(f.ctx, testRecord("emp-2", 2024, "plan-gone")))

	results, err := f.engine.RunYearEndRollover(f.ctx, 2025)
	require.NoError(t, err)
	require.Len(t, results, 3)

	byUser := map[quota.UserID]quota.RolloverResult{}
	for _, r := range results {
		byUser[r.UserID] = r
	}

	assert.Equal(t, quota.OutcomeRolledOver, byUser["emp-1"].Outcome)
	assert.Equal(t, quota.OutcomeFailed, byUser["emp-2"].Outcome)
	assert.Equal(t, quota.OutcomeBootstrapped, byUser["emp-3"].Outcome, "no prior record is a new-hire bootstrap")

	rec, err := f.mem.GetRecord(f.ctx, "emp-3", 2025)
	require.NoError(t, err)
	assert.NotNil(t, rec, "healthy employees transition despite the failure")
}

func TestRunYearEndRollover_RerunOnlySkips(t *testing.T) {
	f := newRolloverFixture(t)
	require.NoError(t, f.mem.SavePlan(f.ctx, testPlan(2025, "18", "20000")))
	f.addUser(t, "emp-1")
	f.addUser(t, "emp-2")

	_, err := f.engine.RunYearEndRollover(f.ctx, 2025)
	require.NoError(t, err)

	results, err := f.engine.RunYearEndRollover(f.ctx, 2025)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, quota.OutcomeSkipped, r.Outcome)
	}
}
