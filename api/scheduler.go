/*
scheduler.go - Automated year-end rollover scheduler

PURPOSE:
  Periodically sweeps the roster and ensures every employee has an
  AnnualRecord for the current year. New Year's boundary crossings,
  missed sweeps after downtime, and newly hired employees are all
  handled by the same idempotent sweep.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Sweeps immediately on Start, then on every tick
  - A skipped employee already has this year's record: no-op
  - One employee's failure (usually a missing quota plan) never stops
    the sweep for the rest of the roster

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)
  - Now: Clock source, injectable for tests (default: time.Now)

USAGE:
  scheduler := NewRolloverScheduler(engine)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerRollover endpoint (manual sweep)
  - quota/rollover.go: EnsureRecord / RunYearEndRollover
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sunthorn/leave-engine/quota"
)

// RolloverScheduler keeps annual records current across year boundaries.
type RolloverScheduler struct {
	Engine        *quota.Engine
	CheckInterval time.Duration
	Enabled       bool

	// Now is the clock the sweep derives the target year from.
	Now func() time.Time

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRolloverScheduler creates a new scheduler.
func NewRolloverScheduler(engine *quota.Engine) *RolloverScheduler {
	return &RolloverScheduler{
		Engine:        engine,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Now:           time.Now,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler. The first sweep runs immediately so a
// server restarted in January reconciles without waiting for a tick.
func (rs *RolloverScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *RolloverScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *RolloverScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.sweep()

	for {
		select {
		case <-rs.ticker.C:
			rs.sweep()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RolloverScheduler) sweep() {
	ctx := context.Background()
	year := rs.Now().Year()

	results, err := rs.Engine.RunYearEndRollover(ctx, year)
	if err != nil {
		log.Printf("[Scheduler] Error sweeping roster for %d: %v", year, err)
		return
	}

	var rolled, bootstrapped, skipped, failed int
	for _, r := range results {
		switch r.Outcome {
		case quota.OutcomeRolledOver:
			rolled++
			log.Printf("[Scheduler] Rolled over %s into %d: carried=%s",
				r.UserID, r.Year, r.RolloverDays.String())
		case quota.OutcomeBootstrapped:
			bootstrapped++
			log.Printf("[Scheduler] Bootstrapped %s for %d", r.UserID, r.Year)
		case quota.OutcomeSkipped:
			skipped++
		case quota.OutcomeFailed:
			failed++
			log.Printf("[Scheduler] Failed rollover for %s/%d: %v", r.UserID, r.Year, r.Err)
		}
	}

	if rolled > 0 || bootstrapped > 0 || failed > 0 {
		log.Printf("[Scheduler] Sweep for %d completed: %d rolled over, %d bootstrapped, %d skipped, %d failed",
			year, rolled, bootstrapped, skipped, failed)
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (rs *RolloverScheduler) RunNow() {
	rs.sweep()
}

// GetNextRunTime returns when the next scheduled sweep will occur.
func (rs *RolloverScheduler) GetNextRunTime() time.Time {
	return rs.Now().Add(rs.CheckInterval)
}
