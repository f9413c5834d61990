// Package batch implements the scheduled maintenance jobs that keep badge
// state and cached scores fresh across the whole provider population. Both
// jobs page through providers on a stable id cursor, commit one batched
// write per page, and are safe to rerun from the start after a crash.
package batch

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/axservices/credibility-engine/internal/model"
	"github.com/axservices/credibility-engine/internal/store"
)

// scored is a provider score pending a cache refresh after the page
// commit lands.
type scored struct {
	providerID string
	score      int
}

// newLimiter builds the commit pacer. A non-positive rate disables pacing.
func newLimiter(commitsPerSecond float64) *rate.Limiter {
	if commitsPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(commitsPerSecond), 1)
}

// applyGrouped commits the mutation groups in chunks no larger than the
// store's write-batch limit, pacing each commit through the limiter. A
// group holds one provider's mutations (award flips plus the badge-set
// update that mirrors them) and is never split across commits: a chunk
// flushes early when the next group would not fit, so a failure between
// chunks leaves every provider either fully updated or untouched.
func applyGrouped(ctx context.Context, st store.Store, limiter *rate.Limiter, groups [][]store.Mutation) error {
	var chunk []store.Mutation
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if err := st.Apply(ctx, chunk); err != nil {
			return err
		}
		chunk = chunk[:0]
		return nil
	}

	for _, g := range groups {
		if len(chunk)+len(g) > store.MaxBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
		chunk = append(chunk, g...)
	}
	return flush()
}

// recordRun persists the job summary. Recording is best-effort: a summary
// write failure never fails the job itself.
func recordRun(ctx context.Context, st store.Store, run *model.JobRun) {
	if err := st.RecordJobRun(ctx, run); err != nil {
		zap.L().Warn("failed to record job run",
			zap.String("job", run.Job),
			zap.Error(err),
		)
	}
}
