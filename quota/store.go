/*
store.go - Persistence interfaces for the quota engine

PURPOSE:
  Defines the contract between the engine and the database. The engine is
  storage-agnostic: the SQLite store is the production path and the memory
  store backs tests.

KEY INTERFACES:
  PlanStore:   Quota plan reference data (immutable once referenced)
  RecordStore: AnnualRecord aggregates, one per (user, year)
  EntryStore:  The usage ledger
  UserStore:   Employee roster (for the rollover sweep)
  TxRunner:    Optional transactional wrapper for the resync write path

CONSISTENCY CONTRACT:
  - CreateRecord is insert-only and must fail with ErrDuplicateRollover if
    a record for the (user, year) already exists. This is the storage-level
    backstop that makes the rollover sweep idempotent even under races.
  - SaveRecord is a full replace of the derived counters, used by the
    recompute-from-ledger step. It never merges.
  - Entry queries must return entries ordered by date so recomputation is
    deterministic.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - quota/store/memory.go:  In-memory for testing
*/
package quota

import (
	"context"
	"time"
)

// =============================================================================
// USER - Employee roster entry
// =============================================================================

type User struct {
	ID        UserID
	Name      string
	Email     string
	HireDate  Date
	CreatedAt time.Time
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// PlanStore persists quota plans.
type PlanStore interface {
	// SavePlan inserts a plan. Plans referenced by records are immutable;
	// administrators create new plans instead of editing.
	SavePlan(ctx context.Context, plan QuotaPlan) error

	// GetPlan returns the plan by id, or nil if absent.
	GetPlan(ctx context.Context, id PlanID) (*QuotaPlan, error)

	// PlanForYear returns the most recently created plan for the year,
	// or nil if none is configured.
	PlanForYear(ctx context.Context, year int) (*QuotaPlan, error)

	// LatestPlan returns the most recently created plan of any year,
	// or nil if no plans exist.
	LatestPlan(ctx context.Context) (*QuotaPlan, error)

	// ListPlans returns all plans, newest first.
	ListPlans(ctx context.Context) ([]QuotaPlan, error)
}

// RecordStore persists AnnualRecord aggregates.
type RecordStore interface {
	// GetRecord returns the record for (userID, year), or nil if absent.
	GetRecord(ctx context.Context, userID UserID, year int) (*AnnualRecord, error)

	// CreateRecord inserts a new record. Returns ErrDuplicateRollover if a
	// record for the (user, year) already exists.
	CreateRecord(ctx context.Context, rec AnnualRecord) error

	// SaveRecord upserts a record, replacing all derived counters.
	SaveRecord(ctx context.Context, rec AnnualRecord) error

	// ListRecords returns all records for a user, oldest year first.
	ListRecords(ctx context.Context, userID UserID) ([]AnnualRecord, error)
}

// EntryStore persists usage ledger entries.
type EntryStore interface {
	InsertEntry(ctx context.Context, e Entry) error

	// GetEntry returns the entry by id, or nil if absent.
	GetEntry(ctx context.Context, id EntryID) (*Entry, error)

	UpdateEntry(ctx context.Context, e Entry) error
	DeleteEntry(ctx context.Context, id EntryID) error

	// EntriesByYear returns a user's entries within a calendar year,
	// ordered by date.
	EntriesByYear(ctx context.Context, userID UserID, year int) ([]Entry, error)

	// EntriesByKind returns a user's entries of one kind within a calendar
	// year, ordered by date. This is the recompute scan.
	EntriesByKind(ctx context.Context, userID UserID, year int, kind EntryKind) ([]Entry, error)
}

// UserStore persists the employee roster.
type UserStore interface {
	SaveUser(ctx context.Context, u User) error

	// GetUser returns the employee by id, or nil if absent.
	GetUser(ctx context.Context, id UserID) (*User, error)

	// ListUsers returns all employees. The rollover sweep iterates this.
	ListUsers(ctx context.Context) ([]User, error)
}

// Store bundles everything the engine needs.
type Store interface {
	PlanStore
	RecordStore
	EntryStore
	UserStore
}

// TxRunner is implemented by stores that can run a function atomically.
// The engine uses it so a ledger write and the counter recompute it
// triggers commit or fail together.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(Store) error) error
}
