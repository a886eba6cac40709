/*
scheduler.go - Periodic drift audit

PURPOSE:
  The payment-posting side stores due amounts, statuses and an advance
  audit trail. This scheduler periodically recomputes all of it from the
  raw amounts for every student and reports where stored and derived
  state disagree. It never repairs data.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - One pass loads every student snapshot and runs the ledger, cash and
    advance audit checks the statements use
  - Discrepancies are logged and counted per check in prometheus
  - A student whose data fails integrity checks is logged and skipped

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewDriftScheduler(store, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - billing/ledger.go, billing/audit.go: the checks
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/rent-billing/billing"
	"github.com/warp/rent-billing/generic"
	"github.com/warp/rent-billing/metrics"
	"go.uber.org/zap"
)

// DriftScheduler runs the drift audit on an interval.
type DriftScheduler struct {
	Store         billing.Store
	Logger        *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// DriftReport summarizes one audit pass.
type DriftReport struct {
	StudentsChecked int
	StudentsFailed  []generic.StudentID
	Discrepancies   map[generic.StudentID][]billing.Discrepancy
}

// NewDriftScheduler creates a new scheduler.
func NewDriftScheduler(store billing.Store, logger *zap.Logger) *DriftScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DriftScheduler{
		Store:         store,
		Logger:        logger,
		CheckInterval: time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler.
func (ds *DriftScheduler) Start() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if !ds.Enabled || ds.CheckInterval <= 0 {
		ds.Logger.Info("drift audit disabled")
		return
	}

	ds.stop = make(chan struct{})
	ds.ticker = time.NewTicker(ds.CheckInterval)
	ds.wg.Add(1)
	go ds.run()

	ds.Logger.Info("drift audit started", zap.Duration("interval", ds.CheckInterval))
}

// Stop stops the scheduler and waits for a running pass to finish.
func (ds *DriftScheduler) Stop() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.ticker != nil {
		ds.ticker.Stop()
		close(ds.stop)
		ds.wg.Wait()
		ds.ticker = nil
		ds.Logger.Info("drift audit stopped")
	}
}

func (ds *DriftScheduler) run() {
	defer ds.wg.Done()

	// Run immediately on start
	ds.RunNow(context.Background())

	for {
		select {
		case <-ds.ticker.C:
			ds.RunNow(context.Background())
		case <-ds.stop:
			return
		}
	}
}

// RunNow performs one audit pass over every student.
func (ds *DriftScheduler) RunNow(ctx context.Context) DriftReport {
	report := DriftReport{Discrepancies: map[generic.StudentID][]billing.Discrepancy{}}

	profiles, err := ds.Store.ListProfiles(ctx)
	if err != nil {
		ds.Logger.Error("drift audit: list students", zap.Error(err))
		return report
	}

	for _, p := range profiles {
		found, err := ds.auditStudent(ctx, p.StudentID)
		report.StudentsChecked++
		if err != nil {
			report.StudentsFailed = append(report.StudentsFailed, p.StudentID)
			ds.Logger.Warn("drift audit: student skipped", zap.String("student_id", string(p.StudentID)), zap.Error(err))
			continue
		}
		if len(found) == 0 {
			continue
		}
		report.Discrepancies[p.StudentID] = found

		counts := map[string]int{}
		for _, d := range found {
			counts[d.Check]++
		}
		for check, n := range counts {
			metrics.AddDiscrepancies(check, n)
		}
		ds.Logger.Warn("drift audit: discrepancies found",
			zap.String("student_id", string(p.StudentID)),
			zap.Int("count", len(found)),
		)
	}

	ds.Logger.Info("drift audit completed",
		zap.Int("students", report.StudentsChecked),
		zap.Int("failed", len(report.StudentsFailed)),
		zap.Int("with_discrepancies", len(report.Discrepancies)),
	)
	return report
}

func (ds *DriftScheduler) auditStudent(ctx context.Context, id generic.StudentID) ([]billing.Discrepancy, error) {
	snap, err := ds.Store.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := snap.Profile.Validate(); err != nil {
		return nil, err
	}
	ledger, found, err := billing.Normalize(snap.Entries)
	if err != nil {
		return nil, err
	}
	rec, err := ledger.Reconcile(snap.Extras)
	if err != nil {
		return nil, err
	}
	found = append(found, rec.Drift...)
	found = append(found, ledger.CheckJoiningDate(snap.Profile.JoiningDate)...)
	found = append(found, ledger.CheckAdvanceAudit(snap.Profile.TotalAdvance, snap.Audit)...)
	return found, nil
}
