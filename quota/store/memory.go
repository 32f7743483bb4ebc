// Package store provides an in-memory quota.Store implementation
// (for testing/dev).
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/sunthorn/leave-engine/quota"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	plans   map[quota.PlanID]planRow
	records map[recordKey]quota.AnnualRecord
	entries map[quota.EntryID]quota.Entry
	users   map[quota.UserID]quota.User
	planSeq int
}

type planRow struct {
	plan quota.QuotaPlan
	seq  int // insertion order, breaks CreatedAt ties
}

type recordKey struct {
	UserID quota.UserID
	Year   int
}

func NewMemory() *Memory {
	return &Memory{
		plans:   make(map[quota.PlanID]planRow),
		records: make(map[recordKey]quota.AnnualRecord),
		entries: make(map[quota.EntryID]quota.Entry),
		users:   make(map[quota.UserID]quota.User),
	}
}

var _ quota.Store = (*Memory)(nil)
var _ quota.TxRunner = (*Memory)(nil)

// =============================================================================
// PLANS
// =============================================================================

func (m *Memory) SavePlan(_ context.Context, plan quota.QuotaPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.planSeq++
	m.plans[plan.ID] = planRow{plan: plan, seq: m.planSeq}
	return nil
}

func (m *Memory) GetPlan(_ context.Context, id quota.PlanID) (*quota.QuotaPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getPlanLocked(id), nil
}

func (m *Memory) getPlanLocked(id quota.PlanID) *quota.QuotaPlan {
	row, ok := m.plans[id]
	if !ok {
		return nil
	}
	p := row.plan
	return &p
}

func (m *Memory) PlanForYear(_ context.Context, year int) (*quota.QuotaPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.newestPlanLocked(func(p quota.QuotaPlan) bool { return p.Year == year }), nil
}

func (m *Memory) LatestPlan(_ context.Context) (*quota.QuotaPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.newestPlanLocked(func(quota.QuotaPlan) bool { return true }), nil
}

func (m *Memory) newestPlanLocked(match func(quota.QuotaPlan) bool) *quota.QuotaPlan {
	best := -1
	var found quota.QuotaPlan
	for _, row := range m.plans {
		if match(row.plan) && row.seq > best {
			best = row.seq
			found = row.plan
		}
	}
	if best < 0 {
		return nil
	}
	return &found
}

func (m *Memory) ListPlans(_ context.Context) ([]quota.QuotaPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]planRow, 0, len(m.plans))
	for _, row := range m.plans {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	plans := make([]quota.QuotaPlan, len(rows))
	for i, row := range rows {
		plans[i] = row.plan
	}
	return plans, nil
}

// =============================================================================
// ANNUAL RECORDS
// =============================================================================

func (m *Memory) GetRecord(_ context.Context, userID quota.UserID, year int) (*quota.AnnualRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getRecordLocked(userID, year), nil
}

func (m *Memory) getRecordLocked(userID quota.UserID, year int) *quota.AnnualRecord {
	rec, ok := m.records[recordKey{userID, year}]
	if !ok {
		return nil
	}
	r := rec
	return &r
}

func (m *Memory) CreateRecord(_ context.Context, rec quota.AnnualRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createRecordLocked(rec)
}

func (m *Memory) createRecordLocked(rec quota.AnnualRecord) error {
	k := recordKey{rec.UserID, rec.Year}
	if _, exists := m.records[k]; exists {
		return quota.ErrDuplicateRollover
	}
	m.records[k] = rec
	return nil
}

func (m *Memory) SaveRecord(_ context.Context, rec quota.AnnualRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[recordKey{rec.UserID, rec.Year}] = rec
	return nil
}

func (m *Memory) ListRecords(_ context.Context, userID quota.UserID) ([]quota.AnnualRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var recs []quota.AnnualRecord
	for k, rec := range m.records {
		if k.UserID == userID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Year < recs[j].Year })
	return recs, nil
}

// =============================================================================
// USAGE ENTRIES
// =============================================================================

func (m *Memory) InsertEntry(_ context.Context, e quota.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return nil
}

func (m *Memory) GetEntry(_ context.Context, id quota.EntryID) (*quota.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getEntryLocked(id), nil
}

func (m *Memory) getEntryLocked(id quota.EntryID) *quota.Entry {
	e, ok := m.entries[id]
	if !ok {
		return nil
	}
	cp := e
	return &cp
}

func (m *Memory) UpdateEntry(_ context.Context, e quota.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.ID]; !ok {
		return quota.ErrEntryNotFound
	}
	m.entries[e.ID] = e
	return nil
}

func (m *Memory) DeleteEntry(_ context.Context, id quota.EntryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return quota.ErrEntryNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *Memory) EntriesByYear(_ context.Context, userID quota.UserID, year int) ([]quota.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entriesLocked(userID, year, ""), nil
}

func (m *Memory) EntriesByKind(_ context.Context, userID quota.UserID, year int, kind quota.EntryKind) ([]quota.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entriesLocked(userID, year, kind), nil
}

func (m *Memory) entriesLocked(userID quota.UserID, year int, kind quota.EntryKind) []quota.Entry {
	var out []quota.Entry
	for _, e := range m.entries {
		if e.UserID != userID || e.Year() != year {
			continue
		}
		if kind != "" && e.Kind != kind {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// =============================================================================
// USERS
// =============================================================================

func (m *Memory) SaveUser(_ context.Context, u quota.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id quota.UserID) (*quota.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := u
	return &cp, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]quota.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]quota.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// =============================================================================
// TRANSACTIONS - snapshot + rollback on error
// =============================================================================

// WithTx executes fn within a simulated transaction: state is snapshotted
// up front and restored if fn fails.
func (m *Memory) WithTx(_ context.Context, fn func(quota.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	plans   map[quota.PlanID]planRow
	records map[recordKey]quota.AnnualRecord
	entries map[quota.EntryID]quota.Entry
	users   map[quota.UserID]quota.User
	planSeq int
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		plans:   make(map[quota.PlanID]planRow, len(m.plans)),
		records: make(map[recordKey]quota.AnnualRecord, len(m.records)),
		entries: make(map[quota.EntryID]quota.Entry, len(m.entries)),
		users:   make(map[quota.UserID]quota.User, len(m.users)),
		planSeq: m.planSeq,
	}
	for k, v := range m.plans {
		s.plans[k] = v
	}
	for k, v := range m.records {
		s.records[k] = v
	}
	for k, v := range m.entries {
		s.entries[k] = v
	}
	for k, v := range m.users {
		s.users[k] = v
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.plans = s.plans
	m.records = s.records
	m.entries = s.entries
	m.users = s.users
	m.planSeq = s.planSeq
}

// txView exposes the parent's state without re-locking; the parent mutex
// is held for the duration of WithTx.
type txView struct {
	parent *Memory
}

var _ quota.Store = (*txView)(nil)

func (tv *txView) SavePlan(_ context.Context, plan quota.QuotaPlan) error {
	tv.parent.planSeq++
	tv.parent.plans[plan.ID] = planRow{plan: plan, seq: tv.parent.planSeq}
	return nil
}

func (tv *txView) GetPlan(_ context.Context, id quota.PlanID) (*quota.QuotaPlan, error) {
	return tv.parent.getPlanLocked(id), nil
}

func (tv *txView) PlanForYear(_ context.Context, year int) (*quota.QuotaPlan, error) {
	return tv.parent.newestPlanLocked(func(p quota.QuotaPlan) bool { return p.Year == year }), nil
}

func (tv *txView) LatestPlan(_ context.Context) (*quota.QuotaPlan, error) {
	return tv.parent.newestPlanLocked(func(quota.QuotaPlan) bool { return true }), nil
}

func (tv *txView) ListPlans(ctx context.Context) ([]quota.QuotaPlan, error) {
	var plans []quota.QuotaPlan
	for _, row := range tv.parent.plans {
		plans = append(plans, row.plan)
	}
	return plans, nil
}

func (tv *txView) GetRecord(_ context.Context, userID quota.UserID, year int) (*quota.AnnualRecord, error) {
	return tv.parent.getRecordLocked(userID, year), nil
}

func (tv *txView) CreateRecord(_ context.Context, rec quota.AnnualRecord) error {
	return tv.parent.createRecordLocked(rec)
}

func (tv *txView) SaveRecord(_ context.Context, rec quota.AnnualRecord) error {
	tv.parent.records[recordKey{rec.UserID, rec.Year}] = rec
	return nil
}

func (tv *txView) ListRecords(_ context.Context, userID quota.UserID) ([]quota.AnnualRecord, error) {
	var recs []quota.AnnualRecord
	for k, rec := range tv.parent.records {
		if k.UserID == userID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Year < recs[j].Year })
	return recs, nil
}

func (tv *txView) InsertEntry(_ context.Context, e quota.Entry) error {
	tv.parent.entries[e.ID] = e
	return nil
}

func (tv *txView) GetEntry(_ context.Context, id quota.EntryID) (*quota.Entry, error) {
	return tv.parent.getEntryLocked(id), nil
}

func (tv *txView) UpdateEntry(_ context.Context, e quota.Entry) error {
	if _, ok := tv.parent.entries[e.ID]; !ok {
		return quota.ErrEntryNotFound
	}
	tv.parent.entries[e.ID] = e
	return nil
}

func (tv *txView) DeleteEntry(_ context.Context, id quota.EntryID) error {
	if _, ok := tv.parent.entries[id]; !ok {
		return quota.ErrEntryNotFound
	}
	delete(tv.parent.entries, id)
	return nil
}

func (tv *txView) EntriesByYear(_ context.Context, userID quota.UserID, year int) ([]quota.Entry, error) {
	return tv.parent.entriesLocked(userID, year, ""), nil
}

func (tv *txView) EntriesByKind(_ context.Context, userID quota.UserID, year int, kind quota.EntryKind) ([]quota.Entry, error) {
	return tv.parent.entriesLocked(userID, year, kind), nil
}

func (tv *txView) SaveUser(_ context.Context, u quota.User) error {
	tv.parent.users[u.ID] = u
	return nil
}

func (tv *txView) GetUser(_ context.Context, id quota.UserID) (*quota.User, error) {
	u, ok := tv.parent.users[id]
	if !ok {
		return nil, nil
	}
	cp := u
	return &cp, nil
}

func (tv *txView) ListUsers(_ context.Context) ([]quota.User, error) {
	var users []quota.User
	for _, u := range tv.parent.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}
