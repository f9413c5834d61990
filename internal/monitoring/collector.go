// Package monitoring collects batch-job health metrics and raises alerts
// when runs fail, error rates climb, or the sweep goes stale.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/axservices/credibility-engine/internal/model"
	"github.com/axservices/credibility-engine/internal/store"
)

// MetricsSnapshot holds a point-in-time view of batch-job health.
type MetricsSnapshot struct {
	// Badge sweep metrics (within lookback window).
	SweepRuns      int `json:"sweep_runs"`
	SweepFailed    int `json:"sweep_failed"`
	SweepProcessed int `json:"sweep_processed"`
	SweepExpired   int `json:"sweep_expired"`
	SweepGranted   int `json:"sweep_granted"`
	SweepErrors    int `json:"sweep_errors"`

	// Score recompute metrics (within lookback window).
	RecomputeRuns      int `json:"recompute_runs"`
	RecomputeFailed    int `json:"recompute_failed"`
	RecomputeProcessed int `json:"recompute_processed"`
	RecomputeErrors    int `json:"recompute_errors"`

	// LastSweepAt is the finish time of the newest completed sweep, zero
	// when none completed inside the window.
	LastSweepAt time.Time `json:"last_sweep_at"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// ErrorRate returns the per-item error fraction across both jobs.
func (s *MetricsSnapshot) ErrorRate() float64 {
	items := s.SweepProcessed + s.SweepErrors + s.RecomputeProcessed + s.RecomputeErrors
	if items == 0 {
		return 0
	}
	return float64(s.SweepErrors+s.RecomputeErrors) / float64(items)
}

// Collector gathers job-run metrics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of job health over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := snap.CollectedAt.Add(-time.Duration(lookbackHours) * time.Hour)
	runs, err := c.store.RecentJobRuns(ctx, cutoff)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list job runs")
	}

	for i := range runs {
		r := &runs[i]
		switch r.Job {
		case model.JobBadgeSweep:
			snap.SweepRuns++
			snap.SweepProcessed += r.Processed
			snap.SweepExpired += r.Expired
			snap.SweepGranted += r.Granted
			snap.SweepErrors += r.Errors
			if r.Status == model.JobFailed {
				snap.SweepFailed++
			} else if r.FinishedAt.After(snap.LastSweepAt) {
				snap.LastSweepAt = r.FinishedAt
			}
		case model.JobScoreRecompute:
			snap.RecomputeRuns++
			snap.RecomputeProcessed += r.Processed
			snap.RecomputeErrors += r.Errors
			if r.Status == model.JobFailed {
				snap.RecomputeFailed++
			}
		}
	}

	return snap, nil
}
