package batch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axservices/credibility-engine/internal/badge"
	"github.com/axservices/credibility-engine/internal/config"
	"github.com/axservices/credibility-engine/internal/credibility"
	"github.com/axservices/credibility-engine/internal/model"
	"github.com/axservices/credibility-engine/internal/scorer"
	"github.com/axservices/credibility-engine/internal/store"
)

var jobNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newJobEnv(t *testing.T) (*store.SQLiteStore, *credibility.Service) {
	t.Helper()
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	svc := credibility.New(st, badge.DefaultCatalog(), nil, scorer.DefaultConfig()).
		WithClock(func() time.Time { return jobNow })
	return st, svc
}

func jobConfig() config.BatchConfig {
	return config.BatchConfig{PageSize: 10, MaxConcurrent: 4}
}

func seed(t *testing.T, st *store.SQLiteStore, p *model.Provider) {
	t.Helper()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = jobNow.AddDate(-1, 0, 0)
	}
	p.UpdatedAt = jobNow
	require.NoError(t, st.PutProvider(context.Background(), p))
}

func TestSweeperExpiresDynamicBadges(t *testing.T) {
	st, svc := newJobEnv(t)
	ctx := context.Background()

	cat := svc.Catalog()

	// 25 badge holders across 3 pages, each with a trending-now award that
	// lapsed yesterday, plus badge-less providers the sweep must skip.
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("p%03d", i)
		seed(t, st, &model.Provider{
			ID:       id,
			Tier:     model.TierStandard,
			BadgeIDs: []string{badge.TrendingNow},
		})
		award := cat.NewAward(id, badge.TrendingNow, jobNow.AddDate(0, 0, -8))
		require.NoError(t, st.Apply(ctx, []store.Mutation{store.InsertAward{Award: award}}))
	}
	for i := 0; i < 5; i++ {
		seed(t, st, &model.Provider{ID: fmt.Sprintf("z%03d", i), Tier: model.TierStandard})
	}

	s := NewSweeper(st, svc, nil, jobConfig())
	s.now = func() time.Time { return jobNow }

	run, err := s.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, model.JobComplete, run.Status)
	assert.Equal(t, 3, run.Pages)
	assert.Equal(t, 25, run.Processed)
	assert.Equal(t, 25, run.Expired)
	assert.Zero(t, run.Errors)

	p, err := st.GetProvider(ctx, "p000")
	require.NoError(t, err)
	assert.Empty(t, p.BadgeIDs)

	awards, err := st.ActiveAwards(ctx, "p000")
	require.NoError(t, err)
	assert.Empty(t, awards)

	runs, err := st.RecentJobRuns(ctx, jobNow.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.JobBadgeSweep, runs[0].Job)
}

func TestSweeperUnchangedStateIsNoOp(t *testing.T) {
	st, svc := newJobEnv(t)
	ctx := context.Background()

	seed(t, st, &model.Provider{
		ID:       "p1",
		Tier:     model.TierStandard,
		Stats:    model.ProviderStats{CompletedBookings: 12},
		BadgeIDs: []string{badge.FirstBooking, badge.Milestone10},
	})
	cat := svc.Catalog()
	require.NoError(t, st.Apply(ctx, []store.Mutation{
		store.InsertAward{Award: cat.NewAward("p1", badge.FirstBooking, jobNow.AddDate(0, -1, 0))},
		store.InsertAward{Award: cat.NewAward("p1", badge.Milestone10, jobNow.AddDate(0, -1, 0))},
	}))

	s := NewSweeper(st, svc, nil, jobConfig())
	s.now = func() time.Time { return jobNow }

	run, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Processed)
	assert.Zero(t, run.Expired)
	assert.Zero(t, run.Granted)

	p, err := st.GetProvider(ctx, "p1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{badge.FirstBooking, badge.Milestone10}, p.BadgeIDs)
}

func TestRecomputerHealsScoreDrift(t *testing.T) {
	st, svc := newJobEnv(t)
	ctx := context.Background()

	// Stored scores are stale; the job rewrites them from current factors.
	for i := 0; i < 15; i++ {
		seed(t, st, &model.Provider{
			ID:               fmt.Sprintf("p%03d", i),
			Tier:             model.TierVerified,
			CredibilityScore: 1,
		})
	}

	r := NewRecomputer(st, svc, nil, jobConfig())
	r.now = func() time.Time { return jobNow }

	run, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.JobComplete, run.Status)
	assert.Equal(t, 2, run.Pages)
	assert.Equal(t, 15, run.Processed)
	assert.Zero(t, run.Errors)

	p, err := st.GetProvider(ctx, "p000")
	require.NoError(t, err)
	assert.NotEqual(t, 1, p.CredibilityScore)

	// A second run finds nothing to rewrite but still processes everyone.
	run, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, run.Processed)
}

func TestApplyGroupedSplitsOversizedBatch(t *testing.T) {
	st, _ := newJobEnv(t)
	ctx := context.Background()

	n := store.MaxBatchSize + 50
	groups := make([][]store.Mutation, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("p%04d", i)
		seed(t, st, &model.Provider{ID: id, Tier: model.TierStandard})
		groups = append(groups, []store.Mutation{store.UpdateScore{ProviderID: id, Score: 30}})
	}

	require.NoError(t, applyGrouped(ctx, st, nil, groups))

	p, err := st.GetProvider(ctx, fmt.Sprintf("p%04d", n-1))
	require.NoError(t, err)
	assert.Equal(t, 30, p.CredibilityScore)
}

// brittleStore fails the nth Apply call and records every committed batch
// size, letting tests observe where the chunk boundaries land.
type brittleStore struct {
	store.Store
	calls      int
	failOnCall int
	batchSizes []int
}

func (b *brittleStore) Apply(ctx context.Context, muts []store.Mutation) error {
	b.calls++
	if b.calls == b.failOnCall {
		return fmt.Errorf("commit %d: connection reset", b.calls)
	}
	b.batchSizes = append(b.batchSizes, len(muts))
	return b.Store.Apply(ctx, muts)
}

func TestApplyGroupedKeepsProviderGroupsIntact(t *testing.T) {
	st, svc := newJobEnv(t)
	ctx := context.Background()
	cat := svc.Catalog()

	// One provider whose lifecycle update is a two-mutation pair: expire the
	// lapsed trending-now award, then rewrite the badge set that mirrors it.
	seed(t, st, &model.Provider{
		ID:       "px",
		Tier:     model.TierStandard,
		BadgeIDs: []string{badge.TrendingNow},
	})
	award := cat.NewAward("px", badge.TrendingNow, jobNow.AddDate(0, 0, -8))
	require.NoError(t, st.Apply(ctx, []store.Mutation{store.InsertAward{Award: award}}))

	// Filler groups sized so the pair lands exactly on the batch limit: a
	// blind split would put the expiry in commit one and the badge-set
	// rewrite in commit two.
	groups := make([][]store.Mutation, 0, store.MaxBatchSize)
	for i := 0; i < store.MaxBatchSize-1; i++ {
		id := fmt.Sprintf("f%04d", i)
		seed(t, st, &model.Provider{ID: id, Tier: model.TierStandard})
		groups = append(groups, []store.Mutation{store.UpdateScore{ProviderID: id, Score: 10}})
	}
	groups = append(groups, []store.Mutation{
		store.ExpireAward{AwardID: award.ID},
		store.UpdateBadgeSet{ProviderID: "px", BadgeIDs: nil, Score: 10},
	})

	// First commit lands, second fails mid-run.
	bs := &brittleStore{Store: st, failOnCall: 2}
	err := applyGrouped(ctx, bs, nil, groups)
	require.Error(t, err)
	assert.Equal(t, []int{store.MaxBatchSize - 1}, bs.batchSizes)

	// px was entirely in the failed commit, so both halves of its state
	// survive together: the award is still active and the badge set still
	// lists it.
	awards, err := st.ActiveAwards(ctx, "px")
	require.NoError(t, err)
	require.Len(t, awards, 1)
	assert.Equal(t, badge.TrendingNow, awards[0].BadgeID)

	p, err := st.GetProvider(ctx, "px")
	require.NoError(t, err)
	assert.Contains(t, p.BadgeIDs, badge.TrendingNow)

	// Rerunning against a healthy store finishes the page.
	require.NoError(t, applyGrouped(ctx, st, nil, groups))
	awards, err = st.ActiveAwards(ctx, "px")
	require.NoError(t, err)
	assert.Empty(t, awards)
}
