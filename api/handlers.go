/*
handlers.go - HTTP API handlers for the leave quota engine

PURPOSE:
  Exposes the quota engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees                    List all employees
    POST   /api/employees                    Create employee (bootstraps record)
    GET    /api/employees/{id}               Get employee details
    GET    /api/employees/{id}/entitlement   Remaining balances (?as_of=YYYY-MM-DD)
    GET    /api/employees/{id}/records       Annual record history
    GET    /api/employees/{id}/entries       Usage ledger (?year=&kind=)
    POST   /api/employees/{id}/entries       Log a usage entry

  Entries:
    PUT    /api/entries/{id}                 Amend a usage entry
    DELETE /api/entries/{id}                 Remove a usage entry

  Plans:
    GET    /api/plans                        List quota plans
    POST   /api/plans                        Create quota plan
    GET    /api/plans/{id}                   Get quota plan

  Admin:
    POST   /api/admin/rollover               Trigger year-end rollover sweep

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (engine, stores)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Employee, plan, entry, or annual record not found
  - 409: Conflict (duplicate rollover, duplicate id)
  - 422: Record exists but its quota plan cannot be resolved
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - quota/engine.go: Domain logic
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sunthorn/leave-engine/quota"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *quota.Engine
}

// NewHandler creates a new handler around the quota engine.
func NewHandler(engine *quota.Engine) *Handler {
	return &Handler{Engine: engine}
}

func (h *Handler) store() quota.Store { return h.Engine.Store() }

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	users, err := h.store().ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(users))
	for i, u := range users {
		dtos[i] = toEmployeeDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := quota.UserID(chi.URLParam(r, "id"))

	user, err := h.store().GetUser(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*user))
}

// CreateEmployee creates a new employee and bootstraps an annual record
// for the hire year so ledger writes have a home immediately.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	hireDate, err := quota.ParseDate(req.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hire_date format (use YYYY-MM-DD)", err)
		return
	}

	ctx := r.Context()
	user := quota.User{
		ID:       quota.UserID(req.ID),
		Name:     req.Name,
		Email:    req.Email,
		HireDate: hireDate,
	}
	if err := h.store().SaveUser(ctx, user); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}

	// Onboarding opens the hire-year record. A missing plan is surfaced
	// but doesn't abort: the employee exists, the sweep can retry.
	result := h.Engine.EnsureRecord(ctx, user.ID, hireDate.Year())
	if result.Failed() {
		writeJSON(w, http.StatusCreated, map[string]any{
			"employee": toEmployeeDTO(user),
			"record":   toRolloverResultDTO(result),
		})
		return
	}

	writeJSON(w, http.StatusCreated, toEmployeeDTO(user))
}

// =============================================================================
// ENTITLEMENT HANDLERS
// =============================================================================

// GetEntitlement returns remaining balances for an employee as of a date.
// Defaults to today; override with ?as_of=YYYY-MM-DD.
func (h *Handler) GetEntitlement(w http.ResponseWriter, r *http.Request) {
	userID := quota.UserID(chi.URLParam(r, "id"))

	asOf := quota.Today()
	if s := r.URL.Query().Get("as_of"); s != "" {
		parsed, err := quota.ParseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
			return
		}
		asOf = parsed
	}

	snapshot, err := h.Engine.Snapshot(r.Context(), userID, asOf)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntitlementDTO(snapshot))
}

// ListRecords returns all annual records for an employee.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	userID := quota.UserID(chi.URLParam(r, "id"))

	records, err := h.store().ListRecords(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list annual records", err)
		return
	}

	dtos := make([]AnnualRecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toAnnualRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// ListEntries returns usage entries for an employee.
// Query params: year (default: current), kind (optional filter).
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	userID := quota.UserID(chi.URLParam(r, "id"))

	year := quota.Today().Year()
	if s := r.URL.Query().Get("year"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = parsed
	}

	ctx := r.Context()
	var entries []quota.Entry
	var err error
	if s := r.URL.Query().Get("kind"); s != "" {
		kind := quota.EntryKind(s)
		if !kind.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown entry kind %q", s), nil)
			return
		}
		entries, err = h.store().EntriesByKind(ctx, userID, year, kind)
	} else {
		entries, err = h.store().EntriesByYear(ctx, userID, year)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list entries", err)
		return
	}

	writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

// CreateEntry logs a usage entry for an employee. The owning annual record
// must already exist; its counter is re-derived in the same transaction.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	userID := quota.UserID(chi.URLParam(r, "id"))

	entry, ok := h.decodeEntry(w, r, userID)
	if !ok {
		return
	}

	logged, err := h.Engine.LogEntry(r.Context(), entry)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(logged))
}

// UpdateEntry amends an existing usage entry. Every counter the change
// touches is re-derived.
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id := quota.EntryID(chi.URLParam(r, "id"))

	// The owner never changes on amendment; the engine pins it from the
	// stored entry, so an empty user id here is fine.
	entry, ok := h.decodeEntry(w, r, "")
	if !ok {
		return
	}
	entry.ID = id

	if err := h.Engine.AmendEntry(r.Context(), entry); err != nil {
		writeDomainError(w, err)
		return
	}

	updated, err := h.store().GetEntry(r.Context(), id)
	if err != nil || updated == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(*updated))
}

// DeleteEntry removes a usage entry and re-derives the counter it fed.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := quota.EntryID(chi.URLParam(r, "id"))

	if err := h.Engine.RemoveEntry(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) decodeEntry(w http.ResponseWriter, r *http.Request, userID quota.UserID) (quota.Entry, bool) {
	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return quota.Entry{}, false
	}

	date, err := quota.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return quota.Entry{}, false
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return quota.Entry{}, false
	}

	kind := quota.EntryKind(req.Kind)
	return quota.Entry{
		UserID: userID,
		Kind:   kind,
		Date:   date,
		Amount: quota.Amount{Value: amount, Unit: kind.Unit()},
		Note:   req.Note,
	}, true
}

// =============================================================================
// PLAN HANDLERS
// =============================================================================

// ListPlans returns all quota plans, newest first.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.store().ListPlans(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list plans", err)
		return
	}

	dtos := make([]PlanDTO, len(plans))
	for i, p := range plans {
		dtos[i] = toPlanDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePlan creates a new quota plan.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" || req.Year == 0 {
		writeError(w, http.StatusBadRequest, "id, name and year are required", nil)
		return
	}

	vacation, err := decimal.NewFromString(req.VacationDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid vacation_days", err)
		return
	}
	medical, err := decimal.NewFromString(req.MedicalExpenseBaht)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid medical_expense_baht", err)
		return
	}
	if vacation.IsNegative() || medical.IsNegative() {
		writeError(w, http.StatusBadRequest, "Entitlements cannot be negative", nil)
		return
	}

	plan := quota.QuotaPlan{
		ID:                 quota.PlanID(req.ID),
		Name:               req.Name,
		Year:               req.Year,
		VacationDays:       vacation,
		MedicalExpenseBaht: medical,
		CreatedAt:          time.Now().UTC(),
	}
	if err := h.store().SavePlan(r.Context(), plan); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create plan", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanDTO(plan))
}

// GetPlan returns a single quota plan.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	id := quota.PlanID(chi.URLParam(r, "id"))

	plan, err := h.store().GetPlan(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get plan", err)
		return
	}
	if plan == nil {
		writeError(w, http.StatusNotFound, "Plan not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(*plan))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerRollover runs the year-end sweep. Defaults to the current year;
// a user_id restricts the sweep to one employee. Re-running is safe:
// already-migrated employees report "skipped".
func (h *Handler) TriggerRollover(w http.ResponseWriter, r *http.Request) {
	var req RolloverRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	year := req.Year
	if year == 0 {
		year = quota.Today().Year()
	}

	ctx := r.Context()
	var results []quota.RolloverResult
	if req.UserID != "" {
		results = []quota.RolloverResult{
			h.Engine.EnsureRecord(ctx, quota.UserID(req.UserID), year),
		}
	} else {
		var err error
		results, err = h.Engine.RunYearEndRollover(ctx, year)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to run rollover sweep", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, toRolloverSweepDTO(year, results))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quota.ErrMissingQuotaPlan):
		writeError(w, http.StatusUnprocessableEntity, "Quota plan cannot be resolved", err)
	case errors.Is(err, quota.ErrDuplicateRollover):
		writeError(w, http.StatusConflict, "Annual record already exists", err)
	case quota.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case quota.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid entry", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
