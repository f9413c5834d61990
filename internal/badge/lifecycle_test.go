package badge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axservices/credibility-engine/internal/model"
)

var evalNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func provider(completed int) *model.Provider {
	return &model.Provider{
		ID:        "p1",
		Tier:      model.TierStandard,
		Stats:     model.ProviderStats{CompletedBookings: completed},
		CreatedAt: evalNow.AddDate(-1, 0, 0),
	}
}

func activeAward(c *Catalog, badgeID string, assignedAt time.Time) model.BadgeAward {
	return c.NewAward("p1", badgeID, assignedAt)
}

func TestEvaluateGrantsMilestones(t *testing.T) {
	c := DefaultCatalog()
	p := provider(10)

	d := c.Evaluate(EvalInput{Now: evalNow, Provider: p, Scope: ScopeAll})

	assert.True(t, d.HasChanges)
	assert.Contains(t, d.Granted, FirstBooking)
	assert.Contains(t, d.Granted, Milestone10)
	assert.NotContains(t, d.Granted, Milestone50)
	assert.Empty(t, d.Expired)
	assert.ElementsMatch(t, d.Granted, d.BadgeIDs)
}

func TestEvaluateIdempotent(t *testing.T) {
	c := DefaultCatalog()
	p := provider(10)

	first := c.Evaluate(EvalInput{Now: evalNow, Provider: p, Scope: ScopeAll})
	require.True(t, first.HasChanges)

	// Simulate the apply: awards inserted, badge set denormalized.
	var awards []model.BadgeAward
	for _, id := range first.Granted {
		awards = append(awards, activeAward(c, id, evalNow))
	}
	p.BadgeIDs = first.BadgeIDs

	second := c.Evaluate(EvalInput{Now: evalNow, Provider: p, ActiveAwards: awards, Scope: ScopeAll})
	assert.False(t, second.HasChanges)
	assert.Empty(t, second.Granted)
	assert.Empty(t, second.Expired)
}

func TestEvaluateExpiresDynamicBadge(t *testing.T) {
	c := DefaultCatalog()
	p := provider(5)

	// Trending-now granted 8 days ago with a 7-day TTL is past expiry, and
	// the provider has no recent bookings to re-earn it.
	award := activeAward(c, TrendingNow, evalNow.AddDate(0, 0, -8))
	require.NotNil(t, award.ExpiresAt)
	p.BadgeIDs = []string{TrendingNow}

	d := c.Evaluate(EvalInput{
		Now:          evalNow,
		Provider:     p,
		ActiveAwards: []model.BadgeAward{award},
		Scope:        ScopeDynamic,
	})

	assert.True(t, d.HasChanges)
	assert.Equal(t, []string{TrendingNow}, d.Expired)
	assert.NotContains(t, d.BadgeIDs, TrendingNow)
}

func TestExpiredBadgeNotRegrantedSameRun(t *testing.T) {
	c := DefaultCatalog()
	p := provider(5)

	// Eligibility still holds (2 bookings in last 7d) but the award just
	// lapsed; the grant waits for the next run.
	award := activeAward(c, TrendingNow, evalNow.AddDate(0, 0, -8))
	p.BadgeIDs = []string{TrendingNow}

	d := c.Evaluate(EvalInput{
		Now:          evalNow,
		Provider:     p,
		ActiveAwards: []model.BadgeAward{award},
		Activity:     Activity{CompletedLast7d: 2},
		Scope:        ScopeDynamic,
	})

	assert.Contains(t, d.Expired, TrendingNow)
	assert.NotContains(t, d.Granted, TrendingNow)

	// Expired and Granted stay disjoint.
	for _, id := range d.Granted {
		assert.NotContains(t, d.Expired, id)
	}
}

func TestEvaluateScopeFiltering(t *testing.T) {
	c := DefaultCatalog()
	p := provider(20)
	act := Activity{
		CompletedLast7d: 3,
		RecentRatings:   []int{5, 5, 5, 5, 5},
		DistinctClients: 10,
		RepeatClients:   4,
	}

	booking := c.Evaluate(EvalInput{Now: evalNow, Provider: p, Activity: act, Scope: ScopeBooking})
	assert.Contains(t, booking.Granted, Milestone10)
	assert.NotContains(t, booking.Granted, FiveStarStreak)
	assert.NotContains(t, booking.Granted, TrendingNow)

	review := c.Evaluate(EvalInput{Now: evalNow, Provider: p, Activity: act, Scope: ScopeReview})
	assert.Contains(t, review.Granted, FiveStarStreak)
	assert.Contains(t, review.Granted, ClientFavorite)
	assert.NotContains(t, review.Granted, Milestone10)
}

func TestFiveStarStreak(t *testing.T) {
	assert.False(t, fiveStarStreak([]int{5, 5, 5, 5}))
	assert.False(t, fiveStarStreak([]int{5, 5, 4, 5, 5}))
	assert.True(t, fiveStarStreak([]int{5, 5, 5, 5, 5}))
	// Only the newest five count.
	assert.True(t, fiveStarStreak([]int{5, 5, 5, 5, 5, 1, 2}))
}

func TestFastResponderRule(t *testing.T) {
	c := DefaultCatalog()

	p := provider(3)
	p.Stats.ResponseRate = 85
	p.Stats.AvgResponseTimeHours = 1.5

	d := c.Evaluate(EvalInput{Now: evalNow, Provider: p, Scope: ScopeBooking})
	assert.Contains(t, d.Granted, FastResponder)

	// No response data yet never qualifies.
	p.Stats.AvgResponseTimeHours = 0
	d = c.Evaluate(EvalInput{Now: evalNow, Provider: p, Scope: ScopeBooking})
	assert.NotContains(t, d.Granted, FastResponder)
}

func TestNewThisWeekWindow(t *testing.T) {
	c := DefaultCatalog()

	p := provider(0)
	p.CreatedAt = evalNow.AddDate(0, 0, -10)
	d := c.Evaluate(EvalInput{Now: evalNow, Provider: p, Scope: ScopeDynamic})
	assert.Contains(t, d.Granted, NewThisWeek)

	p.CreatedAt = evalNow.AddDate(0, 0, -20)
	d = c.Evaluate(EvalInput{Now: evalNow, Provider: p, Scope: ScopeDynamic})
	assert.NotContains(t, d.Granted, NewThisWeek)
}

func TestEvaluateRepairsDriftedBadgeSet(t *testing.T) {
	c := DefaultCatalog()
	p := provider(0)
	// Denormalized set claims a badge with no backing award.
	p.BadgeIDs = []string{FirstBooking}

	d := c.Evaluate(EvalInput{Now: evalNow, Provider: p, Scope: ScopeDynamic})
	assert.True(t, d.HasChanges)
	assert.Empty(t, d.BadgeIDs)
}

func TestBadgeIDsSorted(t *testing.T) {
	c := DefaultCatalog()
	p := provider(100)
	p.Stats.ResponseRate = 95
	p.Stats.AvgResponseTimeHours = 1

	d := c.Evaluate(EvalInput{Now: evalNow, Provider: p, Scope: ScopeAll})
	assert.IsIncreasing(t, d.BadgeIDs)
}
