package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunthorn/leave-engine/api"
	"github.com/sunthorn/leave-engine/quota"
	"github.com/sunthorn/leave-engine/quota/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	engine *quota.Engine
	mem    *store.Memory
	srv    *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mem := store.NewMemory()
	engine := quota.NewEngine(mem)
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(engine)))
	t.Cleanup(srv.Close)
	return &testServer{engine: engine, mem: mem, srv: srv}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (ts *testServer) seedPlan(t *testing.T, year int, vacation, medical string) {
	t.Helper()
	require.NoError(t, ts.mem.SavePlan(context.Background(), quota.QuotaPlan{
		ID:                 quota.PlanID("plan-" + time.Now().Format("150405.000000000")),
		Name:               "Standard",
		Year:               year,
		VacationDays:       quota.MustParseDecimal(vacation),
		MedicalExpenseBaht: quota.MustParseDecimal(medical),
	}))
}

// =============================================================================
// EMPLOYEE ENDPOINT TESTS
// =============================================================================

func TestCreateEmployee_BootstrapsHireYearRecord(t *testing.T) {
	// GIVEN: A plan exists for 2025
	// WHEN: An employee hired in 2025 is created
	// THEN: 201 and the hire-year annual record exists

	ts := newTestServer(t)
	ts.seedPlan(t, 2025, "18", "20000")

	resp := ts.do(t, http.MethodPost, "/api/employees", api.CreateEmployeeRequest{
		ID:       "emp-1",
		Name:     "Somchai",
		Email:    "somchai@example.com",
		HireDate: "2025-03-01",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	rec, err := ts.mem.GetRecord(context.Background(), "emp-1", 2025)
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestCreateEmployee_InvalidHireDate(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/employees", api.CreateEmployeeRequest{
		ID: "emp-1", Name: "Somchai", HireDate: "03/01/2025",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetEmployee_NotFound(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/employees/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// ENTITLEMENT ENDPOINT TESTS
// =============================================================================

func seedEmployee(t *testing.T, ts *testServer) {
	t.Helper()
	ts.seedPlan(t, 2025, "18", "20000")
	resp := ts.do(t, http.MethodPost, "/api/employees", api.CreateEmployeeRequest{
		ID: "emp-1", Name: "Somchai", HireDate: "2025-01-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestGetEntitlement_AsOfDate(t *testing.T) {
	// GIVEN: An 18-day plan and no usage
	// WHEN: Queried as of December 31
	// THEN: The full pro-rated quota remains

	ts := newTestServer(t)
	seedEmployee(t, ts)

	resp := ts.do(t, http.MethodGet, "/api/employees/emp-1/entitlement?as_of=2025-12-31", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	dto := decodeJSON[api.EntitlementDTO](t, resp)
	assert.Equal(t, "emp-1", dto.UserID)
	assert.Equal(t, 2025, dto.Year)
	assert.Equal(t, "2025-12-31", dto.AsOf)
	assert.Equal(t, "18", dto.RemainingVacation)
	assert.Equal(t, "20000", dto.RemainingMedical)
}

func TestGetEntitlement_ReflectsLedgerWrites(t *testing.T) {
	ts := newTestServer(t)
	seedEmployee(t, ts)

	resp := ts.do(t, http.MethodPost, "/api/employees/emp-1/entries", api.CreateEntryRequest{
		Kind: "vacation", Date: "2025-06-02", Amount: "3",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/employees/emp-1/entitlement?as_of=2025-12-31", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	dto := decodeJSON[api.EntitlementDTO](t, resp)
	assert.Equal(t, "15", dto.RemainingVacation)
	assert.Equal(t, "3", dto.UsedVacationDays)
}

func TestGetEntitlement_NoRecordIs404(t *testing.T) {
	ts := newTestServer(t)
	seedEmployee(t, ts)

	resp := ts.do(t, http.MethodGet, "/api/employees/emp-1/entitlement?as_of=2030-06-01", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetEntitlement_MissingPlanIs422(t *testing.T) {
	// GIVEN: A record referencing a plan that no longer resolves
	// THEN: 422, distinct from 404 and from a zero-quota answer

	ts := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, ts.mem.SaveUser(ctx, quota.User{ID: "emp-1", Name: "Somchai"}))
	require.NoError(t, ts.mem.CreateRecord(ctx, quota.AnnualRecord{
		UserID: "emp-1", Year: 2025, QuotaPlanID: "plan-gone",
	}))

	resp := ts.do(t, http.MethodGet, "/api/employees/emp-1/entitlement?as_of=2025-06-01", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestGetEntitlement_BadAsOf(t *testing.T) {
	ts := newTestServer(t)
	seedEmployee(t, ts)

	resp := ts.do(t, http.MethodGet, "/api/employees/emp-1/entitlement?as_of=June-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// LEDGER ENDPOINT TESTS
// =============================================================================

func TestEntries_CreateListAmendDelete(t *testing.T) {
	ts := newTestServer(t)
	seedEmployee(t, ts)

	resp := ts.do(t, http.MethodPost, "/api/employees/emp-1/entries", api.CreateEntryRequest{
		Kind: "medical_expense", Date: "2025-04-10", Amount: "1500", Note: "dental",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeJSON[api.EntryDTO](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "baht", created.Unit)

	resp = ts.do(t, http.MethodGet, "/api/employees/emp-1/entries?year=2025&kind=medical_expense", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decodeJSON[[]api.EntryDTO](t, resp)
	require.Len(t, listed, 1)

	resp = ts.do(t, http.MethodPut, "/api/entries/"+created.ID, api.CreateEntryRequest{
		Kind: "medical_expense", Date: "2025-04-10", Amount: "2000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	amended := decodeJSON[api.EntryDTO](t, resp)
	assert.Equal(t, "2000", amended.Amount)

	rec, err := ts.mem.GetRecord(context.Background(), "emp-1", 2025)
	require.NoError(t, err)
	assert.True(t, rec.UsedMedicalExpenseBaht.Equal(quota.MustParseDecimal("2000")))

	resp = ts.do(t, http.MethodDelete, "/api/entries/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rec, err = ts.mem.GetRecord(context.Background(), "emp-1", 2025)
	require.NoError(t, err)
	assert.True(t, rec.UsedMedicalExpenseBaht.IsZero())
}

func TestCreateEntry_UnknownKindRejected(t *testing.T) {
	ts := newTestServer(t)
	seedEmployee(t, ts)

	resp := ts.do(t, http.MethodPost, "/api/employees/emp-1/entries", api.CreateEntryRequest{
		Kind: "sabbatical", Date: "2025-06-02", Amount: "1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteEntry_NotFound(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodDelete, "/api/entries/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// PLAN ENDPOINT TESTS
// =============================================================================

func TestPlans_CreateAndGet(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/plans", api.CreatePlanRequest{
		ID: "plan-2026", Name: "Standard 2026", Year: 2026,
		VacationDays: "20", MedicalExpenseBaht: "25000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/plans/plan-2026", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dto := decodeJSON[api.PlanDTO](t, resp)
	assert.Equal(t, "20", dto.VacationDays)
	assert.Equal(t, 2026, dto.Year)
}

func TestPlans_NegativeEntitlementRejected(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/plans", api.CreatePlanRequest{
		ID: "plan-x", Name: "Bad", Year: 2026,
		VacationDays: "-1", MedicalExpenseBaht: "0",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// ROLLOVER ENDPOINT TESTS
// =============================================================================

func TestTriggerRollover_SweepAndRerun(t *testing.T) {
	// GIVEN: Two employees with 2025 records
	// WHEN: The sweep runs twice for 2026
	// THEN: First run rolls everyone over, second run only skips

	ts := newTestServer(t)
	ts.seedPlan(t, 2025, "18", "20000")
	ts.seedPlan(t, 2026, "20", "25000")

	for _, body := range []api.CreateEmployeeRequest{
		{ID: "emp-1", Name: "Somchai", HireDate: "2025-01-01"},
		{ID: "emp-2", Name: "Nok", HireDate: "2025-06-01"},
	} {
		resp := ts.do(t, http.MethodPost, "/api/employees", body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := ts.do(t, http.MethodPost, "/api/admin/rollover", api.RolloverRequestDTO{Year: 2026})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sweep := decodeJSON[api.RolloverSweepDTO](t, resp)
	assert.Equal(t, 2026, sweep.Year)
	assert.Equal(t, 2, sweep.Total)
	assert.Equal(t, 0, sweep.Failed)
	for _, r := range sweep.Results {
		assert.Equal(t, "rolled_over", r.Outcome)
	}

	resp = ts.do(t, http.MethodPost, "/api/admin/rollover", api.RolloverRequestDTO{Year: 2026})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	again := decodeJSON[api.RolloverSweepDTO](t, resp)
	for _, r := range again.Results {
		assert.Equal(t, "skipped", r.Outcome)
	}
}

func TestTriggerRollover_SingleUser(t *testing.T) {
	ts := newTestServer(t)
	ts.seedPlan(t, 2026, "20", "25000")
	require.NoError(t, ts.mem.SaveUser(context.Background(), quota.User{ID: "emp-1", Name: "Somchai"}))

	resp := ts.do(t, http.MethodPost, "/api/admin/rollover", api.RolloverRequestDTO{
		Year: 2026, UserID: "emp-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sweep := decodeJSON[api.RolloverSweepDTO](t, resp)
	require.Len(t, sweep.Results, 1)
	assert.Equal(t, "bootstrapped", sweep.Results[0].Outcome)
	assert.Equal(t, "0", sweep.Results[0].RolloverDays)
}
