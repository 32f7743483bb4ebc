/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNT FORMATTING:
  Day and baht amounts travel as decimal strings ("18.5", "-2"), never as
  floats. Rounding happens here, at the display boundary, two fractional
  digits. The engine itself carries exact decimals.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - quota/calculator.go: EntitlementSnapshot source type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/sunthorn/leave-engine/quota"
)

// displayPlaces is the fractional precision amounts are rounded to at the
// API boundary.
const displayPlaces = 2

func displayAmount(d decimal.Decimal) string {
	return d.Round(displayPlaces).String()
}

// =============================================================================
// EMPLOYEE TYPES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	HireDate  string `json:"hire_date"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the request to create an employee.
type CreateEmployeeRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	HireDate string `json:"hire_date"`
}

func toEmployeeDTO(u quota.User) EmployeeDTO {
	dto := EmployeeDTO{
		ID:       string(u.ID),
		Name:     u.Name,
		Email:    u.Email,
		HireDate: u.HireDate.String(),
	}
	if !u.CreatedAt.IsZero() {
		dto.CreatedAt = u.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// ENTITLEMENT TYPES
// =============================================================================

// EntitlementDTO is the full balance view for one employee as of a date.
type EntitlementDTO struct {
	UserID string `json:"user_id"`
	Year   int    `json:"year"`
	AsOf   string `json:"as_of"`
	PlanID string `json:"plan_id"`

	ProRatedVacationDays string `json:"pro_rated_vacation_days"`
	RemainingVacation    string `json:"remaining_vacation_days"`
	ProRatedMedicalBaht  string `json:"pro_rated_medical_baht"`
	RemainingMedical     string `json:"remaining_medical_baht"`

	RolloverVacationDays   string `json:"rollover_vacation_days"`
	WorkedOnHolidayDays    string `json:"worked_on_holiday_days"`
	UsedVacationDays       string `json:"used_vacation_days"`
	UsedSickLeaveDays      string `json:"used_sick_leave_days"`
	UsedMedicalExpenseBaht string `json:"used_medical_expense_baht"`
	WorkedDays             string `json:"worked_days"`
}

func toEntitlementDTO(s quota.EntitlementSnapshot) EntitlementDTO {
	return EntitlementDTO{
		UserID:               string(s.UserID),
		Year:                 s.Year,
		AsOf:                 s.AsOf.String(),
		PlanID:               string(s.PlanID),
		ProRatedVacationDays: displayAmount(s.ProRatedVacationDays),
		RemainingVacation:    displayAmount(s.RemainingVacation.Value),
		ProRatedMedicalBaht:  displayAmount(s.ProRatedMedicalBaht),
		RemainingMedical:     displayAmount(s.RemainingMedical.Value),

		RolloverVacationDays:   displayAmount(s.Record.RolloverVacationDays),
		WorkedOnHolidayDays:    displayAmount(s.Record.WorkedOnHolidayDays),
		UsedVacationDays:       displayAmount(s.Record.UsedVacationDays),
		UsedSickLeaveDays:      displayAmount(s.Record.UsedSickLeaveDays),
		UsedMedicalExpenseBaht: displayAmount(s.Record.UsedMedicalExpenseBaht),
		WorkedDays:             displayAmount(s.Record.WorkedDays),
	}
}

// AnnualRecordDTO represents one (employee, year) aggregate.
type AnnualRecordDTO struct {
	UserID                 string `json:"user_id"`
	Year                   int    `json:"year"`
	PlanID                 string `json:"plan_id"`
	RolloverVacationDays   string `json:"rollover_vacation_days"`
	WorkedOnHolidayDays    string `json:"worked_on_holiday_days"`
	UsedVacationDays       string `json:"used_vacation_days"`
	UsedSickLeaveDays      string `json:"used_sick_leave_days"`
	UsedMedicalExpenseBaht string `json:"used_medical_expense_baht"`
	WorkedDays             string `json:"worked_days"`
}

func toAnnualRecordDTO(r quota.AnnualRecord) AnnualRecordDTO {
	return AnnualRecordDTO{
		UserID:                 string(r.UserID),
		Year:                   r.Year,
		PlanID:                 string(r.QuotaPlanID),
		RolloverVacationDays:   displayAmount(r.RolloverVacationDays),
		WorkedOnHolidayDays:    displayAmount(r.WorkedOnHolidayDays),
		UsedVacationDays:       displayAmount(r.UsedVacationDays),
		UsedSickLeaveDays:      displayAmount(r.UsedSickLeaveDays),
		UsedMedicalExpenseBaht: displayAmount(r.UsedMedicalExpenseBaht),
		WorkedDays:             displayAmount(r.WorkedDays),
	}
}

// =============================================================================
// LEDGER TYPES
// =============================================================================

// EntryDTO represents a usage ledger entry.
type EntryDTO struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Kind      string `json:"kind"`
	Date      string `json:"date"`
	Amount    string `json:"amount"`
	Unit      string `json:"unit"`
	Note      string `json:"note,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateEntryRequest is the request to log a usage entry.
type CreateEntryRequest struct {
	Kind   string `json:"kind"`
	Date   string `json:"date"`
	Amount string `json:"amount"`
	Note   string `json:"note,omitempty"`
}

func toEntryDTO(e quota.Entry) EntryDTO {
	dto := EntryDTO{
		ID:     string(e.ID),
		UserID: string(e.UserID),
		Kind:   string(e.Kind),
		Date:   e.Date.String(),
		Amount: e.Amount.Value.String(),
		Unit:   string(e.Kind.Unit()),
		Note:   e.Note,
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toEntryDTOs(entries []quota.Entry) []EntryDTO {
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	return dtos
}

// =============================================================================
// PLAN TYPES
// =============================================================================

// PlanDTO represents a quota plan.
type PlanDTO struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Year               int    `json:"year"`
	VacationDays       string `json:"vacation_days"`
	MedicalExpenseBaht string `json:"medical_expense_baht"`
	CreatedAt          string `json:"created_at,omitempty"`
}

// CreatePlanRequest is the request to create a quota plan.
type CreatePlanRequest struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Year               int    `json:"year"`
	VacationDays       string `json:"vacation_days"`
	MedicalExpenseBaht string `json:"medical_expense_baht"`
}

func toPlanDTO(p quota.QuotaPlan) PlanDTO {
	dto := PlanDTO{
		ID:                 string(p.ID),
		Name:               p.Name,
		Year:               p.Year,
		VacationDays:       p.VacationDays.String(),
		MedicalExpenseBaht: p.MedicalExpenseBaht.String(),
	}
	if !p.CreatedAt.IsZero() {
		dto.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// ROLLOVER TYPES
// =============================================================================

// RolloverRequestDTO is the request to trigger the year-end sweep.
type RolloverRequestDTO struct {
	// Year the sweep creates records FOR (openings come from year-1).
	Year int `json:"year"`

	// UserID limits the sweep to one employee. Empty = whole roster.
	UserID string `json:"user_id,omitempty"`
}

// RolloverResultDTO is one employee's transition in a sweep.
type RolloverResultDTO struct {
	UserID       string `json:"user_id"`
	Year         int    `json:"year"`
	Outcome      string `json:"outcome"`
	RolloverDays string `json:"rollover_days,omitempty"`
	Error        string `json:"error,omitempty"`
}

// RolloverSweepDTO summarizes a whole sweep.
type RolloverSweepDTO struct {
	Year    int                 `json:"year"`
	Total   int                 `json:"total"`
	Failed  int                 `json:"failed"`
	Results []RolloverResultDTO `json:"results"`
}

func toRolloverResultDTO(r quota.RolloverResult) RolloverResultDTO {
	dto := RolloverResultDTO{
		UserID:  string(r.UserID),
		Year:    r.Year,
		Outcome: string(r.Outcome),
	}
	switch r.Outcome {
	case quota.OutcomeBootstrapped, quota.OutcomeRolledOver:
		dto.RolloverDays = displayAmount(r.RolloverDays)
	}
	if r.Err != nil {
		dto.Error = r.Err.Error()
	}
	return dto
}

func toRolloverSweepDTO(year int, results []quota.RolloverResult) RolloverSweepDTO {
	sweep := RolloverSweepDTO{
		Year:    year,
		Total:   len(results),
		Results: make([]RolloverResultDTO, len(results)),
	}
	for i, r := range results {
		sweep.Results[i] = toRolloverResultDTO(r)
		if r.Failed() {
			sweep.Failed++
		}
	}
	return sweep
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}
