/*
engine.go - Usage ledger synchronization and entitlement queries

PURPOSE:
  The Engine binds the stores together and enforces the one correctness
  rule everything else leans on: every usage ledger write (create, amend,
  remove) atomically re-derives the owning AnnualRecord's counter by
  re-summing the ledger. Counters are replaced, never nudged, so an edit
  or deletion can never leave the aggregate drifted from ground truth.

CONCURRENCY:
  Mutations are serialized per (user, year) with a keyed mutex. Two
  concurrent writers for the same record cannot both read-modify-write a
  stale aggregate; operations on different users or years proceed in
  parallel. When the store supports transactions, the entry write and the
  counter replace commit together.

LIFECYCLE RULES:
  A ledger write requires an existing AnnualRecord for the entry's
  (user, year) and fails with RecordNotFound otherwise. Records are
  created only by onboarding and the rollover sweep (see rollover.go),
  never as a side effect of logging usage.

SEE ALSO:
  - calculator.go: The pure math the queries expose
  - rollover.go: EnsureRecord and the year-end sweep
*/
package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine is the quota and rollover engine over a Store.
type Engine struct {
	store Store
	locks recordLocks
}

// NewEngine creates an engine over the given store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Store exposes the underlying store for read-only collaborators.
func (e *Engine) Store() Store { return e.store }

// withTx runs fn atomically when the store supports it.
func (e *Engine) withTx(ctx context.Context, fn func(Store) error) error {
	if tx, ok := e.store.(TxRunner); ok {
		return tx.WithTx(ctx, fn)
	}
	return fn(e.store)
}

// =============================================================================
// LEDGER WRITES - each one re-synchronizes the owning AnnualRecord
// =============================================================================

// LogEntry appends a usage entry and re-derives the affected counter.
// The owning AnnualRecord must already exist.
func (e *Engine) LogEntry(ctx context.Context, entry Entry) (Entry, error) {
	if err := validateEntry(entry); err != nil {
		return Entry{}, err
	}
	if entry.ID == "" {
		entry.ID = EntryID(fmt.Sprintf("entry-%d", time.Now().UnixNano()))
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	unlock := e.locks.lock(recordKey{entry.UserID, entry.Year()})
	defer unlock()

	err := e.withTx(ctx, func(s Store) error {
		if err := requireRecord(ctx, s, entry.UserID, entry.Year()); err != nil {
			return err
		}
		if err := s.InsertEntry(ctx, entry); err != nil {
			return err
		}
		return resyncCounter(ctx, s, entry.UserID, entry.Year(), entry.Kind)
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// AmendEntry replaces an existing entry and re-derives every counter the
// change touches. The entry may move to a different date, year, or kind;
// its owner never changes.
func (e *Engine) AmendEntry(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEntry)
	}

	existing, err := e.store.GetEntry(ctx, entry.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrEntryNotFound
	}
	entry.UserID = existing.UserID
	entry.CreatedAt = existing.CreatedAt

	if err := validateEntry(entry); err != nil {
		return err
	}

	oldKey := recordKey{existing.UserID, existing.Year()}
	newKey := recordKey{entry.UserID, entry.Year()}
	unlock := e.locks.lockPair(oldKey, newKey)
	defer unlock()

	return e.withTx(ctx, func(s Store) error {
		if err := requireRecord(ctx, s, existing.UserID, existing.Year()); err != nil {
			return err
		}
		if newKey != oldKey {
			if err := requireRecord(ctx, s, entry.UserID, entry.Year()); err != nil {
				return err
			}
		}
		if err := s.UpdateEntry(ctx, entry); err != nil {
			return err
		}
		// Re-derive every (record, kind) pair the amendment touched.
		if err := resyncCounter(ctx, s, existing.UserID, existing.Year(), existing.Kind); err != nil {
			return err
		}
		if newKey != oldKey || entry.Kind != existing.Kind {
			return resyncCounter(ctx, s, entry.UserID, entry.Year(), entry.Kind)
		}
		return nil
	})
}

// RemoveEntry deletes an entry and re-derives the counter it fed. After
// removal the counter equals what it would be had the entry never existed.
func (e *Engine) RemoveEntry(ctx context.Context, id EntryID) error {
	existing, err := e.store.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrEntryNotFound
	}

	unlock := e.locks.lock(recordKey{existing.UserID, existing.Year()})
	defer unlock()

	return e.withTx(ctx, func(s Store) error {
		if err := requireRecord(ctx, s, existing.UserID, existing.Year()); err != nil {
			return err
		}
		if err := s.DeleteEntry(ctx, id); err != nil {
			return err
		}
		return resyncCounter(ctx, s, existing.UserID, existing.Year(), existing.Kind)
	})
}

// resyncCounter recomputes one counter from the ledger and replaces it on
// the record. Always a full re-sum of the (user, year, kind) scan, never an
// incremental add or subtract.
func resyncCounter(ctx context.Context, s Store, userID UserID, year int, kind EntryKind) error {
	rec, err := s.GetRecord(ctx, userID, year)
	if err != nil {
		return err
	}
	if rec == nil {
		return &RecordNotFoundError{UserID: userID, Year: year}
	}

	entries, err := s.EntriesByKind(ctx, userID, year, kind)
	if err != nil {
		return err
	}
	sum := decimal.Zero
	for _, en := range entries {
		sum = sum.Add(en.Amount.Value)
	}

	rec.SetCounter(kind, sum)
	return s.SaveRecord(ctx, *rec)
}

func requireRecord(ctx context.Context, s Store, userID UserID, year int) error {
	rec, err := s.GetRecord(ctx, userID, year)
	if err != nil {
		return err
	}
	if rec == nil {
		return &RecordNotFoundError{UserID: userID, Year: year}
	}
	return nil
}

func validateEntry(entry Entry) error {
	if entry.UserID == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidEntry)
	}
	if !entry.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, entry.Kind)
	}
	if entry.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidEntry)
	}
	if !entry.Amount.Value.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidEntry)
	}
	if entry.Amount.Unit != "" && entry.Amount.Unit != entry.Kind.Unit() {
		return fmt.Errorf("%w: %s entries are denominated in %s, got %s",
			ErrInvalidEntry, entry.Kind, entry.Kind.Unit(), entry.Amount.Unit)
	}
	return nil
}

// =============================================================================
// ENTITLEMENT QUERIES - read-only
// =============================================================================

// RemainingVacation returns the signed vacation balance for the user as of
// the given date. Fails with MissingQuotaPlan if the record's plan cannot
// be resolved.
func (e *Engine) RemainingVacation(ctx context.Context, userID UserID, asOf Date) (Amount, error) {
	rec, plan, err := e.recordAndPlan(ctx, userID, asOf.Year())
	if err != nil {
		return Amount{}, err
	}
	return RemainingVacation(*rec, plan, asOf)
}

// RemainingMedical returns the signed medical-expense balance for the user
// as of the given date.
func (e *Engine) RemainingMedical(ctx context.Context, userID UserID, asOf Date) (Amount, error) {
	rec, plan, err := e.recordAndPlan(ctx, userID, asOf.Year())
	if err != nil {
		return Amount{}, err
	}
	return RemainingMedical(*rec, plan, asOf)
}

// Snapshot returns the full entitlement view for the user as of the given
// date: record, plan, and both derived balances from one consistent read.
func (e *Engine) Snapshot(ctx context.Context, userID UserID, asOf Date) (EntitlementSnapshot, error) {
	rec, plan, err := e.recordAndPlan(ctx, userID, asOf.Year())
	if err != nil {
		return EntitlementSnapshot{}, err
	}
	return BuildSnapshot(*rec, plan, asOf)
}

func (e *Engine) recordAndPlan(ctx context.Context, userID UserID, year int) (*AnnualRecord, *QuotaPlan, error) {
	rec, err := e.store.GetRecord(ctx, userID, year)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, &RecordNotFoundError{UserID: userID, Year: year}
	}
	if rec.QuotaPlanID == "" {
		return nil, nil, &MissingQuotaPlanError{UserID: userID, Year: year}
	}
	plan, err := e.store.GetPlan(ctx, rec.QuotaPlanID)
	if err != nil {
		return nil, nil, err
	}
	if plan == nil {
		return nil, nil, &MissingQuotaPlanError{UserID: userID, Year: year, PlanID: rec.QuotaPlanID}
	}
	return rec, plan, nil
}

// =============================================================================
// PER-(USER, YEAR) MUTUAL EXCLUSION
// =============================================================================

type recordKey struct {
	UserID UserID
	Year   int
}

// recordLocks hands out one mutex per (user, year). Mutexes are created on
// demand and kept for the life of the engine; the population is bounded by
// employees x years.
type recordLocks struct {
	mu   sync.Mutex
	held map[recordKey]*sync.Mutex
}

func (l *recordLocks) get(k recordKey) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[recordKey]*sync.Mutex)
	}
	m, ok := l.held[k]
	if !ok {
		m = &sync.Mutex{}
		l.held[k] = m
	}
	return m
}

func (l *recordLocks) lock(k recordKey) func() {
	m := l.get(k)
	m.Lock()
	return m.Unlock
}

// lockPair locks two keys in a stable order to avoid deadlock when an
// amendment moves an entry between years.
func (l *recordLocks) lockPair(a, b recordKey) func() {
	if a == b {
		return l.lock(a)
	}
	if b.UserID < a.UserID || (b.UserID == a.UserID && b.Year < a.Year) {
		a, b = b, a
	}
	ua := l.lock(a)
	ub := l.lock(b)
	return func() {
		ub()
		ua()
	}
}
