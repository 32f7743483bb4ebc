/*
Package sqlite provides a SQLite-backed implementation of the quota
storage interfaces.

PURPOSE:
  Implements quota.Store and quota.TxRunner using SQLite. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

KEY TABLES:
  quota_plans:    Yearly entitlement schedules (immutable once referenced)
  annual_records: One aggregate per (user, year); derived usage counters
  usage_entries:  The usage ledger (leave, medical, holiday work)
  employees:      The roster the rollover sweep iterates

INVARIANT ENFORCEMENT:
  annual_records has PRIMARY KEY (user_id, year). An INSERT for an
  existing pair fails, which the store surfaces as
  quota.ErrDuplicateRollover - the database-level backstop that keeps
  year-end rollover idempotent even if two sweeps race.

DECIMALS:
  All day and baht amounts are stored as TEXT in decimal string form and
  parsed back with shopspring/decimal. No floats touch the schema.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and a single writer at a time proceeds.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := quota.NewEngine(store)

SEE ALSO:
  - quota/store.go: Interface definitions
  - quota/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sunthorn/leave-engine/quota"
)

// Store implements quota.Store and quota.TxRunner using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ quota.Store = (*Store)(nil)
var _ quota.TxRunner = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Quota plans (reference data, immutable once referenced)
	CREATE TABLE IF NOT EXISTS quota_plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		year INTEGER NOT NULL,
		vacation_days TEXT NOT NULL,
		medical_expense_baht TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_plans_year
		ON quota_plans(year, created_at DESC);

	-- Annual records: one aggregate per (user, year).
	-- The primary key doubles as the rollover idempotency backstop.
	CREATE TABLE IF NOT EXISTS annual_records (
		user_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		quota_plan_id TEXT NOT NULL,
		rollover_vacation_days TEXT NOT NULL,
		worked_on_holiday_days TEXT NOT NULL,
		used_vacation_days TEXT NOT NULL,
		used_sick_leave_days TEXT NOT NULL,
		used_medical_expense_baht TEXT NOT NULL,
		worked_days TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, year)
	);

	-- Usage ledger
	CREATE TABLE IF NOT EXISTS usage_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		amount_unit TEXT NOT NULL,
		note TEXT,
		created_at TEXT NOT NULL
	);

	-- Recompute scan (hot path): all entries of one kind for a user-year
	CREATE INDEX IF NOT EXISTS idx_entries_user_kind_date
		ON usage_entries(user_id, kind, entry_date);
	CREATE INDEX IF NOT EXISTS idx_entries_user_date
		ON usage_entries(user_id, entry_date);

	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		hire_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier abstracts *sql.DB and *sql.Tx so the same statement helpers
// serve both direct calls and WithTx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// PLAN STORE
// =============================================================================

const planColumns = "id, name, year, vacation_days, medical_expense_baht, created_at"

func (s *Store) SavePlan(ctx context.Context, plan quota.QuotaPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return savePlan(ctx, s.db, plan)
}

func savePlan(ctx context.Context, q querier, plan quota.QuotaPlan) error {
	createdAt := plan.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO quota_plans (id, name, year, vacation_days, medical_expense_baht, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.Name, plan.Year,
		plan.VacationDays.String(), plan.MedicalExpenseBaht.String(),
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}

func (s *Store) GetPlan(ctx context.Context, id quota.PlanID) (*quota.QuotaPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPlan(ctx, s.db, id)
}

func getPlan(ctx context.Context, q querier, id quota.PlanID) (*quota.QuotaPlan, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+planColumns+" FROM quota_plans WHERE id = ?", id)
	return scanPlan(row.Scan)
}

func (s *Store) PlanForYear(ctx context.Context, year int) (*quota.QuotaPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return planForYear(ctx, s.db, year)
}

func planForYear(ctx context.Context, q querier, year int) (*quota.QuotaPlan, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+planColumns+" FROM quota_plans WHERE year = ? ORDER BY created_at DESC, rowid DESC LIMIT 1",
		year)
	return scanPlan(row.Scan)
}

func (s *Store) LatestPlan(ctx context.Context) (*quota.QuotaPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return latestPlan(ctx, s.db)
}

func latestPlan(ctx context.Context, q querier) (*quota.QuotaPlan, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+planColumns+" FROM quota_plans ORDER BY created_at DESC, rowid DESC LIMIT 1")
	return scanPlan(row.Scan)
}

func (s *Store) ListPlans(ctx context.Context) ([]quota.QuotaPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPlans(ctx, s.db)
}

func listPlans(ctx context.Context, q querier) ([]quota.QuotaPlan, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+planColumns+" FROM quota_plans ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var plans []quota.QuotaPlan
	for rows.Next() {
		p, err := scanPlan(rows.Scan)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

func scanPlan(scan func(dest ...any) error) (*quota.QuotaPlan, error) {
	var (
		p         quota.QuotaPlan
		vacation  string
		medical   string
		createdAt string
	)
	err := scan(&p.ID, &p.Name, &p.Year, &vacation, &medical, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan plan: %w", err)
	}
	p.VacationDays = quota.MustParseDecimal(vacation)
	p.MedicalExpenseBaht = quota.MustParseDecimal(medical)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// =============================================================================
// RECORD STORE
// =============================================================================

const recordColumns = `user_id, year, quota_plan_id, rollover_vacation_days,
	worked_on_holiday_days, used_vacation_days, used_sick_leave_days,
	used_medical_expense_baht, worked_days`

func (s *Store) GetRecord(ctx context.Context, userID quota.UserID, year int) (*quota.AnnualRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRecord(ctx, s.db, userID, year)
}

func getRecord(ctx context.Context, q querier, userID quota.UserID, year int) (*quota.AnnualRecord, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM annual_records WHERE user_id = ? AND year = ?",
		userID, year)
	return scanRecord(row.Scan)
}

func (s *Store) CreateRecord(ctx context.Context, rec quota.AnnualRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createRecord(ctx, s.db, rec)
}

func createRecord(ctx context.Context, q querier, rec quota.AnnualRecord) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := q.ExecContext(ctx, `
		INSERT INTO annual_records
		(user_id, year, quota_plan_id, rollover_vacation_days, worked_on_holiday_days,
		 used_vacation_days, used_sick_leave_days, used_medical_expense_baht, worked_days,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID, rec.Year, rec.QuotaPlanID,
		rec.RolloverVacationDays.String(), rec.WorkedOnHolidayDays.String(),
		rec.UsedVacationDays.String(), rec.UsedSickLeaveDays.String(),
		rec.UsedMedicalExpenseBaht.String(), rec.WorkedDays.String(),
		now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return quota.ErrDuplicateRollover
		}
		return fmt.Errorf("failed to create annual record: %w", err)
	}
	return nil
}

func (s *Store) SaveRecord(ctx context.Context, rec quota.AnnualRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveRecord(ctx, s.db, rec)
}

func saveRecord(ctx context.Context, q querier, rec quota.AnnualRecord) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := q.ExecContext(ctx, `
		INSERT INTO annual_records
		(user_id, year, quota_plan_id, rollover_vacation_days, worked_on_holiday_days,
		 used_vacation_days, used_sick_leave_days, used_medical_expense_baht, worked_days,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, year) DO UPDATE SET
			quota_plan_id = excluded.quota_plan_id,
			rollover_vacation_days = excluded.rollover_vacation_days,
			worked_on_holiday_days = excluded.worked_on_holiday_days,
			used_vacation_days = excluded.used_vacation_days,
			used_sick_leave_days = excluded.used_sick_leave_days,
			used_medical_expense_baht = excluded.used_medical_expense_baht,
			worked_days = excluded.worked_days,
			updated_at = excluded.updated_at`,
		rec.UserID, rec.Year, rec.QuotaPlanID,
		rec.RolloverVacationDays.String(), rec.WorkedOnHolidayDays.String(),
		rec.UsedVacationDays.String(), rec.UsedSickLeaveDays.String(),
		rec.UsedMedicalExpenseBaht.String(), rec.WorkedDays.String(),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save annual record: %w", err)
	}
	return nil
}

func (s *Store) ListRecords(ctx context.Context, userID quota.UserID) ([]quota.AnnualRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRecords(ctx, s.db, userID)
}

func listRecords(ctx context.Context, q querier, userID quota.UserID) ([]quota.AnnualRecord, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM annual_records WHERE user_id = ? ORDER BY year ASC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query annual records: %w", err)
	}
	defer rows.Close()

	var recs []quota.AnnualRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func scanRecord(scan func(dest ...any) error) (*quota.AnnualRecord, error) {
	var (
		rec                                                 quota.AnnualRecord
		rollover, holiday, vacation, sick, medical, worked string
	)
	err := scan(&rec.UserID, &rec.Year, &rec.QuotaPlanID,
		&rollover, &holiday, &vacation, &sick, &medical, &worked)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan annual record: %w", err)
	}
	rec.RolloverVacationDays = quota.MustParseDecimal(rollover)
	rec.WorkedOnHolidayDays = quota.MustParseDecimal(holiday)
	rec.UsedVacationDays = quota.MustParseDecimal(vacation)
	rec.UsedSickLeaveDays = quota.MustParseDecimal(sick)
	rec.UsedMedicalExpenseBaht = quota.MustParseDecimal(medical)
	rec.WorkedDays = quota.MustParseDecimal(worked)
	return &rec, nil
}

// =============================================================================
// ENTRY STORE
// =============================================================================

const entryColumns = "id, user_id, kind, entry_date, amount, amount_unit, note, created_at"

func (s *Store) InsertEntry(ctx context.Context, e quota.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertEntry(ctx, s.db, e)
}

func insertEntry(ctx context.Context, q querier, e quota.Entry) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO usage_entries (id, user_id, kind, entry_date, amount, amount_unit, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Kind, e.Date.String(),
		e.Amount.Value.String(), string(e.Kind.Unit()),
		nullString(e.Note), createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id quota.EntryID) (*quota.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEntry(ctx, s.db, id)
}

func getEntry(ctx context.Context, q querier, id quota.EntryID) (*quota.Entry, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM usage_entries WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query entry: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	e, err := scanEntry(rows)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) UpdateEntry(ctx context.Context, e quota.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateEntry(ctx, s.db, e)
}

func updateEntry(ctx context.Context, q querier, e quota.Entry) error {
	res, err := q.ExecContext(ctx, `
		UPDATE usage_entries
		SET kind = ?, entry_date = ?, amount = ?, amount_unit = ?, note = ?
		WHERE id = ?`,
		e.Kind, e.Date.String(), e.Amount.Value.String(),
		string(e.Kind.Unit()), nullString(e.Note), e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return quota.ErrEntryNotFound
	}
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, id quota.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteEntry(ctx, s.db, id)
}

func deleteEntry(ctx context.Context, q querier, id quota.EntryID) error {
	res, err := q.ExecContext(ctx, "DELETE FROM usage_entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return quota.ErrEntryNotFound
	}
	return nil
}

func (s *Store) EntriesByYear(ctx context.Context, userID quota.UserID, year int) ([]quota.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entriesByYear(ctx, s.db, userID, year)
}

func entriesByYear(ctx context.Context, q querier, userID quota.UserID, year int) ([]quota.Entry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM usage_entries
		WHERE user_id = ? AND entry_date >= ? AND entry_date <= ?
		ORDER BY entry_date ASC, created_at ASC`,
		userID, yearStart(year), yearEnd(year))
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (s *Store) EntriesByKind(ctx context.Context, userID quota.UserID, year int, kind quota.EntryKind) ([]quota.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entriesByKind(ctx, s.db, userID, year, kind)
}

func entriesByKind(ctx context.Context, q querier, userID quota.UserID, year int, kind quota.EntryKind) ([]quota.Entry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM usage_entries
		WHERE user_id = ? AND kind = ? AND entry_date >= ? AND entry_date <= ?
		ORDER BY entry_date ASC, created_at ASC`,
		userID, kind, yearStart(year), yearEnd(year))
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

func collectEntries(rows *sql.Rows) ([]quota.Entry, error) {
	var entries []quota.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (quota.Entry, error) {
	var (
		e         quota.Entry
		date      string
		amount    string
		unit      string
		note      sql.NullString
		createdAt string
	)
	err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &date, &amount, &unit, &note, &createdAt)
	if err != nil {
		return e, fmt.Errorf("failed to scan entry: %w", err)
	}
	e.Date, err = quota.ParseDate(date)
	if err != nil {
		return e, err
	}
	e.Amount = quota.Amount{Value: quota.MustParseDecimal(amount), Unit: quota.Unit(unit)}
	e.Note = note.String
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return e, nil
}

func yearStart(year int) string { return fmt.Sprintf("%04d-01-01", year) }
func yearEnd(year int) string   { return fmt.Sprintf("%04d-12-31", year) }

// =============================================================================
// USER STORE
// =============================================================================

func (s *Store) SaveUser(ctx context.Context, u quota.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveUser(ctx, s.db, u)
}

func saveUser(ctx context.Context, q querier, u quota.User) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO employees (id, name, email, hire_date, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			hire_date = excluded.hire_date`,
		u.ID, u.Name, nullString(u.Email), u.HireDate.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id quota.UserID) (*quota.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getUser(ctx, s.db, id)
}

func getUser(ctx context.Context, q querier, id quota.UserID) (*quota.User, error) {
	var (
		u         quota.User
		email     sql.NullString
		hireDate  string
		createdAt string
	)
	err := q.QueryRowContext(ctx,
		"SELECT id, name, email, hire_date, created_at FROM employees WHERE id = ?", id,
	).Scan(&u.ID, &u.Name, &email, &hireDate, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan employee: %w", err)
	}
	u.Email = email.String
	u.HireDate, _ = quota.ParseDate(hireDate)
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]quota.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listUsers(ctx, s.db)
}

func listUsers(ctx context.Context, q querier) ([]quota.User, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, name, email, hire_date, created_at FROM employees ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var users []quota.User
	for rows.Next() {
		var (
			u         quota.User
			email     sql.NullString
			hireDate  string
			createdAt string
		)
		if err := rows.Scan(&u.ID, &u.Name, &email, &hireDate, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		u.Email = email.String
		u.HireDate, _ = quota.ParseDate(hireDate)
		u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		users = append(users, u)
	}
	return users, rows.Err()
}

// =============================================================================
// TRANSACTIONS (quota.TxRunner)
// =============================================================================

// WithTx executes fn within a database transaction. The ledger-write plus
// counter-recompute path runs through here so both commit or fail together.
func (s *Store) WithTx(ctx context.Context, fn func(quota.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes every call through the open transaction.
type txStore struct {
	tx *sql.Tx
}

var _ quota.Store = (*txStore)(nil)

func (ts *txStore) SavePlan(ctx context.Context, plan quota.QuotaPlan) error {
	return savePlan(ctx, ts.tx, plan)
}

func (ts *txStore) GetPlan(ctx context.Context, id quota.PlanID) (*quota.QuotaPlan, error) {
	return getPlan(ctx, ts.tx, id)
}

func (ts *txStore) PlanForYear(ctx context.Context, year int) (*quota.QuotaPlan, error) {
	return planForYear(ctx, ts.tx, year)
}

func (ts *txStore) LatestPlan(ctx context.Context) (*quota.QuotaPlan, error) {
	return latestPlan(ctx, ts.tx)
}

func (ts *txStore) ListPlans(ctx context.Context) ([]quota.QuotaPlan, error) {
	return listPlans(ctx, ts.tx)
}

func (ts *txStore) GetRecord(ctx context.Context, userID quota.UserID, year int) (*quota.AnnualRecord, error) {
	return getRecord(ctx, ts.tx, userID, year)
}

func (ts *txStore) CreateRecord(ctx context.Context, rec quota.AnnualRecord) error {
	return createRecord(ctx, ts.tx, rec)
}

func (ts *txStore) SaveRecord(ctx context.Context, rec quota.AnnualRecord) error {
	return saveRecord(ctx, ts.tx, rec)
}

func (ts *txStore) ListRecords(ctx context.Context, userID quota.UserID) ([]quota.AnnualRecord, error) {
	return listRecords(ctx, ts.tx, userID)
}

func (ts *txStore) InsertEntry(ctx context.Context, e quota.Entry) error {
	return insertEntry(ctx, ts.tx, e)
}

func (ts *txStore) GetEntry(ctx context.Context, id quota.EntryID) (*quota.Entry, error) {
	return getEntry(ctx, ts.tx, id)
}

func (ts *txStore) UpdateEntry(ctx context.Context, e quota.Entry) error {
	return updateEntry(ctx, ts.tx, e)
}

func (ts *txStore) DeleteEntry(ctx context.Context, id quota.EntryID) error {
	return deleteEntry(ctx, ts.tx, id)
}

func (ts *txStore) EntriesByYear(ctx context.Context, userID quota.UserID, year int) ([]quota.Entry, error) {
	return entriesByYear(ctx, ts.tx, userID, year)
}

func (ts *txStore) EntriesByKind(ctx context.Context, userID quota.UserID, year int, kind quota.EntryKind) ([]quota.Entry, error) {
	return entriesByKind(ctx, ts.tx, userID, year, kind)
}

func (ts *txStore) SaveUser(ctx context.Context, u quota.User) error {
	return saveUser(ctx, ts.tx, u)
}

func (ts *txStore) GetUser(ctx context.Context, id quota.UserID) (*quota.User, error) {
	return getUser(ctx, ts.tx, id)
}

func (ts *txStore) ListUsers(ctx context.Context) ([]quota.User, error) {
	return listUsers(ctx, ts.tx)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (contains(err.Error(), "UNIQUE constraint failed") ||
		contains(err.Error(), "duplicate key"))
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
