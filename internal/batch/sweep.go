package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/axservices/credibility-engine/internal/badge"
	"github.com/axservices/credibility-engine/internal/cache"
	"github.com/axservices/credibility-engine/internal/config"
	"github.com/axservices/credibility-engine/internal/credibility"
	"github.com/axservices/credibility-engine/internal/model"
	"github.com/axservices/credibility-engine/internal/store"
)

// Sweeper is the daily dynamic-badge sweep: every provider holding at
// least one badge gets a full lifecycle evaluation, and each page's
// mutations commit as one batched write.
type Sweeper struct {
	store store.Store
	svc   *credibility.Service
	cache *cache.ScoreCache
	cfg   config.BatchConfig
	now   func() time.Time
}

// NewSweeper builds the sweep job. cache may be nil.
func NewSweeper(st store.Store, svc *credibility.Service, sc *cache.ScoreCache, cfg config.BatchConfig) *Sweeper {
	return &Sweeper{store: st, svc: svc, cache: sc, cfg: cfg, now: time.Now}
}

// Run executes one sweep over the full provider population. Per-provider
// failures are counted and skipped; a page commit failure aborts the run
// with all previously committed pages intact.
func (s *Sweeper) Run(ctx context.Context) (*model.JobRun, error) {
	run := &model.JobRun{
		ID:        uuid.NewString(),
		Job:       model.JobBadgeSweep,
		Status:    model.JobComplete,
		StartedAt: s.now(),
	}
	limiter := newLimiter(s.cfg.CommitsPerSecond)

	afterID := ""
	for {
		page, err := s.store.ProviderPage(ctx, afterID, s.cfg.PageSize)
		if err != nil {
			return s.finish(ctx, run, err)
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

			processed, expired, granted, errs atomic.Int64
		)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.MaxConcurrent)
		for i := range page {
			p := &page[i]
			if len(p.BadgeIDs) == 0 {
				continue
			}
			g.Go(func() error {
				plan, err := s.svc.PlanBadges(gctx, p, badge.ScopeAll)
				if err != nil {
					errs.Add(1)
					zap.L().Warn("sweep: provider evaluation failed",
						zap.String("provider_id", p.ID),
						zap.Error(err),
					)
					return nil
				}
				processed.Add(1)
				if len(plan.Mutations) == 0 {
					return nil
				}
				expired.Add(int64(len(plan.Decision.Expired)))
				granted.Add(int64(len(plan.Decision.Granted)))

				// One group per provider keeps its award flips and badge-set
				// update in the same commit.
				mu.Lock()
				groups = append(groups, plan.Mutations)
				refresh = append(refresh, scored{providerID: p.ID, score: plan.Score})
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return s.finish(ctx, run, err)
		}

		if err := applyGrouped(ctx, s.store, limiter, groups); err != nil {
			return s.finish(ctx, run, err)
		}
		for _, r := range refresh {
			s.cache.SetScore(ctx, r.providerID, r.score)
		}

		run.Processed += int(processed.Load())
		run.Expired += int(expired.Load())
		run.Granted += int(granted.Load())
		run.Errors += int(errs.Load())
	}

	return s.finish(ctx, run, nil)
}

func (s *Sweeper) finish(ctx context.Context, run *model.JobRun, err error) (*model.JobRun, error) {
	run.FinishedAt = s.now()
	if err != nil {
		run.Status = model.JobFailed
	}
	recordRun(ctx, s.store, run)

	zap.L().Info("badge sweep finished",
		zap.String("status", string(run.Status)),
		zap.Int("pages", run.Pages),
		zap.Int("processed", run.Processed),
		zap.Int("expired", run.Expired),
		zap.Int("granted", run.Granted),
		zap.Int("errors", run.Errors),
		zap.Duration("took", run.FinishedAt.Sub(run.StartedAt)),
	)
	return run, err
}
