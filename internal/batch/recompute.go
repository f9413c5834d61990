package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/axservices/credibility-engine/internal/cache"
	"github.com/axservices/credibility-engine/internal/config"
	"github.com/axservices/credibility-engine/internal/credibility"
	"github.com/axservices/credibility-engine/internal/model"
	"github.com/axservices/credibility-engine/internal/store"
)

// Recomputer is the weekly full score recompute: every provider's score is
// recalculated from current factors, badges untouched. Drift from config
// changes or missed events heals here.
type Recomputer struct {
	store store.Store
	svc   *credibility.Service
	cache *cache.ScoreCache
	cfg   config.BatchConfig
	now   func() time.Time
}

// NewRecomputer builds the recompute job. cache may be nil.
func NewRecomputer(st store.Store, svc *credibility.Service, sc *cache.ScoreCache, cfg config.BatchConfig) *Recomputer {
	return &Recomputer{store: st, svc: svc, cache: sc, cfg: cfg, now: time.Now}
}

// Run executes one recompute over the full provider population.
// Per-provider failures are counted and the loop continues.
func (r *Recomputer) Run(ctx context.Context) (*model.JobRun, error) {
	run := &model.JobRun{
		ID:        uuid.NewString(),
		Job:       model.JobScoreRecompute,
		Status:    model.JobComplete,
		StartedAt: r.now(),
	}
	limiter := newLimiter(r.cfg.CommitsPerSecond)

	afterID := ""
	for {
		page, err := r.store.ProviderPage(ctx, afterID, r.cfg.PageSize)
		if err != nil {
			return r.finish(ctx, run, err)
		}
		if len(page) == 0 {
			break
		}
		run.Pages++
		afterID = page[len(page)-1].ID

		var (
			mu      sync.Mutex
			groups  [][]store.Mutation
			refresh []scored

			processed, errs atomic.Int64
		)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.cfg.MaxConcurrent)
		for i := range page {
			p := &page[i]
			g.Go(func() error {
				score, err := r.svc.ScoreOf(gctx, p)
				if err != nil {
					errs.Add(1)
					zap.L().Warn("recompute: provider scoring failed",
						zap.String("provider_id", p.ID),
						zap.Error(err),
					)
					return nil
				}
				processed.Add(1)
				if score == p.CredibilityScore {
					return nil
				}

				mu.Lock()
				groups = append(groups, []store.Mutation{store.UpdateScore{ProviderID: p.ID, Score: score}})
				refresh = append(refresh, scored{providerID: p.ID, score: score})
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return r.finish(ctx, run, err)
		}

		if err := applyGrouped(ctx, r.store, limiter, groups); err != nil {
			return r.finish(ctx, run, err)
		}
		for _, s := range refresh {
			r.cache.SetScore(ctx, s.providerID, s.score)
		}

		run.Processed += int(processed.Load())
		run.Errors += int(errs.Load())
	}

	return r.finish(ctx, run, nil)
}

func (r *Recomputer) finish(ctx context.Context, run *model.JobRun, err error) (*model.JobRun, error) {
	run.FinishedAt = r.now()
	if err != nil {
		run.Status = model.JobFailed
	}
	recordRun(ctx, r.store, run)

	zap.L().Info("score recompute finished",
		zap.String("status", string(run.Status)),
		zap.Int("pages", run.Pages),
		zap.Int("processed", run.Processed),
		zap.Int("errors", run.Errors),
		zap.Duration("took", run.FinishedAt.Sub(run.StartedAt)),
	)
	return run, err
}
