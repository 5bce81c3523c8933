/*
scheduler.go - Automated month generation scheduler

PURPOSE:
  Periodically makes sure the current and the next month have been
  generated, so calendar sync and reminders always have events to work
  with even if nobody opened the month in the UI.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Uses Ledger.EnsureMonth: an already generated month is left untouched
    (payments and links stay as they are)
  - Never regenerates; regeneration is an explicit user action

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)
  - Lookahead: Months ahead of the current one to generate (default: 1)

USAGE:
  scheduler := NewMonthScheduler(handler.Ledger, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RegenerateMonth endpoint (manual regeneration)
  - engine/ledger.go: EnsureMonth
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/cashflow-planner/engine"
)

// MonthScheduler keeps upcoming months generated.
type MonthScheduler struct {
	Ledger        engine.Ledger
	Logger        *zap.Logger
	CheckInterval time.Duration
	Enabled       bool
	Lookahead     int
	Now           func() time.Time

	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	lastRun time.Time
}

// NewMonthScheduler creates a new scheduler.
func NewMonthScheduler(ledger engine.Ledger, logger *zap.Logger) *MonthScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonthScheduler{
		Ledger:        ledger,
		Logger:        logger.Named("scheduler"),
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Lookahead:     1,
		Now:           time.Now,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (ms *MonthScheduler) Start() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if !ms.Enabled {
		ms.Logger.Info("disabled, not starting")
		return
	}
	if ms.ticker != nil {
		return
	}

	ms.ticker = time.NewTicker(ms.CheckInterval)
	ms.wg.Add(1)

	go ms.run()

	ms.Logger.Info("started", zap.Duration("interval", ms.CheckInterval))
}

// Stop stops the scheduler and waits for an in-flight check.
func (ms *MonthScheduler) Stop() {
	ms.mu.Lock()
	ticker := ms.ticker
	ms.ticker = nil
	ms.mu.Unlock()

	if ticker != nil {
		ticker.Stop()
		close(ms.stop)
		ms.wg.Wait()
		ms.Logger.Info("stopped")
	}
}

func (ms *MonthScheduler) run() {
	defer ms.wg.Done()

	// Run immediately on start
	ms.RunNow(context.Background())

	for {
		select {
		case <-ms.ticker.C:
			ms.RunNow(context.Background())
		case <-ms.stop:
			return
		}
	}
}

// RunNow ensures the current month and the lookahead months exist and
// returns the months it checked.
func (ms *MonthScheduler) RunNow(ctx context.Context) []engine.Month {
	now := ms.Now()
	current := engine.DateOf(now).YearMonth()

	var checked []engine.Month
	for i := 0; i <= ms.Lookahead; i++ {
		m := current.Add(i)
		events, err := ms.Ledger.EnsureMonth(ctx, m)
		if err != nil {
			schedulerRuns.WithLabelValues("error").Inc()
			ms.Logger.Error("failed to ensure month", zap.String("month", m.Key()), zap.Error(err))
			continue
		}
		schedulerRuns.WithLabelValues("ok").Inc()
		checked = append(checked, m)
		ms.Logger.Debug("month ready", zap.String("month", m.Key()), zap.Int("events", len(events)))
	}

	ms.mu.Lock()
	ms.lastRun = now
	ms.mu.Unlock()

	return checked
}

// LastRun returns when the last check started (zero if never).
func (ms *MonthScheduler) LastRun() time.Time {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.lastRun
}

// GetNextRunTime returns when the next scheduled check will occur.
func (ms *MonthScheduler) GetNextRunTime() time.Time {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.lastRun.IsZero() {
		return ms.Now()
	}
	return ms.lastRun.Add(ms.CheckInterval)
}
