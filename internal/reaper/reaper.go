// Package reaper removes quiz sessions that outlived their retention window
// and periodically reports session counts.
package reaper

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/golang/glog"

	"github.com/abhisek/codequiz/internal/metrics"
	"github.com/abhisek/codequiz/internal/quiz"
)

// Store is the subset of the session store the reaper walks.
type Store interface {
	ScanActive(ctx context.Context) iter.Seq2[*quiz.Session, error]
	Expired(s *quiz.Session, now time.Time) bool
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	Stats(ctx context.Context) (quiz.Stats, error)
}

// AuditPruner drops LLM audit rows older than a cutoff.
type AuditPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config controls the reaper schedule.
type Config struct {
	// SweepInterval is the delay between sweeps.
	SweepInterval time.Duration

	// ReportHour is the local hour (0-23) of the daily report.
	ReportHour int

	// AuditRetention is how long LLM audit rows are kept. Zero disables pruning.
	AuditRetention time.Duration

	Now func() time.Time
}

// DefaultConfig sweeps every 15 minutes and reports at 02:00.
func DefaultConfig() Config {
	return Config{
		SweepInterval:  15 * time.Minute,
		ReportHour:     2,
		AuditRetention: 30 * 24 * time.Hour,
	}
}

// Reaper sweeps expired sessions on a schedule.
type Reaper struct {
	store  Store
	audit  AuditPruner
	config Config
}

// New creates a Reaper. audit may be nil.
func New(store Store, audit AuditPruner, cfg Config) *Reaper {
	def := DefaultConfig()
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.ReportHour < 0 || cfg.ReportHour > 23 {
		cfg.ReportHour = def.ReportHour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Reaper{store: store, audit: audit, config: cfg}
}

// Result summarizes one sweep.
type Result struct {
	Before   int
	After    int
	Scanned  int
	Deleted  int
	Failed   int
	Duration time.Duration
}

// Sweep deletes every stored session that is past its retention window.
// Sessions written between the scan and the delete may be removed or kept;
// either outcome is acceptable because the store's TTL reclaims them too.
func (r *Reaper) Sweep(ctx context.Context) (Result, error) {
	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	var res Result
	before, err := r.store.Count(ctx)
	if err != nil {
		return res, fmt.Errorf("count sessions: %w", err)
	}
	res.Before = before

	now := r.config.Now()
	for s, err := range r.store.ScanActive(ctx) {
		if err != nil {
			return res, fmt.Errorf("scan sessions: %w", err)
		}
		res.Scanned++
		if !r.store.Expired(s, now) {
			continue
		}
		if err := r.store.Delete(ctx, s.SessionID); err != nil {
			glog.Warningf("reaper: delete %s: %v", s.SessionID, err)
			res.Failed++
			continue
		}
		glog.V(2).Infof("reaper: deleted expired session %s", s.SessionID)
		res.Deleted++
	}
	metrics.SessionsReaped.Add(float64(res.Deleted))

	after, err := r.store.Count(ctx)
	if err != nil {
		return res, fmt.Errorf("count sessions: %w", err)
	}
	res.After = after
	res.Duration = time.Since(start)

	if delta := res.Before - res.After; delta != 0 {
		glog.Infof("reaper: cleaned up %d sessions (%d -> %d)", delta, res.Before, res.After)
	} else {
		glog.V(1).Infof("reaper: nothing to clean up (%d sessions)", res.After)
	}
	return res, nil
}

// Report logs the session counts, exports them as gauges and prunes old
// LLM audit rows.
func (r *Reaper) Report(ctx context.Context) (quiz.Stats, error) {
	st, err := r.store.Stats(ctx)
	if err != nil {
		return quiz.Stats{}, fmt.Errorf("session stats: %w", err)
	}

	metrics.SessionsByState.WithLabelValues("active").Set(float64(st.Active))
	metrics.SessionsByState.WithLabelValues("completed").Set(float64(st.Completed))
	metrics.SessionsByState.WithLabelValues("expired").Set(float64(st.Expired))
	glog.Infof("daily session stats: total=%d active=%d completed=%d expired=%d",
		st.Total, st.Active, st.Completed, st.Expired)

	if r.audit != nil && r.config.AuditRetention > 0 {
		cutoff := r.config.Now().Add(-r.config.AuditRetention)
		n, err := r.audit.PruneBefore(ctx, cutoff)
		if err != nil {
			glog.Warningf("reaper: prune LLM audit log: %v", err)
		} else if n > 0 {
			glog.Infof("reaper: pruned %d LLM audit rows older than %s", n, cutoff.Format(time.DateOnly))
		}
	}
	return st, nil
}

// Run sweeps every SweepInterval and reports daily at ReportHour until ctx
// is cancelled. Errors in a cycle are logged and the schedule continues.
func (r *Reaper) Run(ctx context.Context) error {
	glog.Infof("reaper: sweeping every %s, reporting daily at %02d:00", r.config.SweepInterval, r.config.ReportHour)

	ticker := time.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()

	report := time.NewTimer(r.untilReport())
	defer report.Stop()

	for {
		select {
		case <-ctx.Done():
			glog.Info("reaper: stopped")
			return nil
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				glog.Errorf("reaper: sweep failed: %v", err)
			}
		case <-report.C:
			if _, err := r.Report(ctx); err != nil {
				glog.Errorf("reaper: report failed: %v", err)
			}
			report.Reset(r.untilReport())
		}
	}
}

func (r *Reaper) untilReport() time.Duration {
	now := r.config.Now()
	return NextReport(now, r.config.ReportHour).Sub(now)
}

// NextReport returns the first time strictly after now at hour:00 in now's
// location.
func NextReport(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, 0, 0, 0, now.Location())
	}
	return next
}
