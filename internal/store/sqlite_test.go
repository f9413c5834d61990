package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axservices/credibility-engine/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testProvider(id string) *model.Provider {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &model.Provider{
		ID:          id,
		DisplayName: "Test Provider",
		Tier:        model.TierStandard,
		CreatedAt:   now.AddDate(0, -3, 0),
		UpdatedAt:   now,
	}
}

func TestSQLiteProviderRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	last := time.Date(2026, 2, 20, 9, 30, 0, 0, time.UTC)
	p := testProvider("p1")
	p.Tier = model.TierVerified
	p.Stats = model.ProviderStats{
		CompletedBookings:    12,
		PositiveReviewCount:  8,
		ResponseRate:         92.5,
		AvgResponseTimeHours: 1.25,
		LastCompletedAt:      &last,
		DistinctClients90d:   5,
	}
	p.Counts = model.ProviderCounts{AXVerifiedCredits: 4, ClientConfirmedCredits: 2, SelfReportedCredits: 1}
	p.BadgeIDs = []string{"first-booking", "milestone-10-bookings"}
	p.CredibilityScore = 87

	require.NoError(t, s.PutProvider(ctx, p))

	got, err := s.GetProvider(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p.Tier, got.Tier)
	assert.Equal(t, p.Stats.CompletedBookings, got.Stats.CompletedBookings)
	assert.Equal(t, p.Stats.ResponseRate, got.Stats.ResponseRate)
	require.NotNil(t, got.Stats.LastCompletedAt)
	assert.True(t, got.Stats.LastCompletedAt.Equal(last))
	assert.Equal(t, p.BadgeIDs, got.BadgeIDs)
	assert.Equal(t, 87, got.CredibilityScore)

	// Upsert overwrites.
	p.CredibilityScore = 90
	require.NoError(t, s.PutProvider(ctx, p))
	got, err = s.GetProvider(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 90, got.CredibilityScore)
}

func TestSQLiteGetProviderNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetProvider(context.Background(), "nope")
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLiteProviderPage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.NoError(t, s.PutProvider(ctx, testProvider(fmt.Sprintf("p%03d", i))))
	}

	var seen []string
	afterID := ""
	pages := 0
	for {
		page, err := s.ProviderPage(ctx, afterID, 10)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		pages++
		for _, p := range page {
			seen = append(seen, p.ID)
		}
		afterID = page[len(page)-1].ID
	}

	assert.Equal(t, 3, pages)
	assert.Len(t, seen, 25)
	assert.IsIncreasing(t, seen)
}

func TestSQLiteUpdateProviderTx(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutProvider(ctx, testProvider("p1")))

	p, err := s.UpdateProviderTx(ctx, "p1", func(p *model.Provider) error {
		p.Stats.CompletedBookings = 7
		p.CredibilityScore = 42
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, p.Stats.CompletedBookings)

	got, err := s.GetProvider(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 42, got.CredibilityScore)

	// fn error rolls back.
	boom := eris.New("boom")
	_, err = s.UpdateProviderTx(ctx, "p1", func(p *model.Provider) error {
		p.CredibilityScore = 0
		return boom
	})
	require.Error(t, err)
	got, err = s.GetProvider(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 42, got.CredibilityScore)
}

func TestSQLiteBookingsAndCredit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.PutProvider(ctx, testProvider("p1")))

	completed := now.AddDate(0, 0, -2)
	b := &model.Booking{
		ID:          "b1",
		ProviderID:  "p1",
		ClientID:    "c1",
		Status:      model.BookingCompleted,
		IsPaid:      true,
		CompletedAt: &completed,
		CreatedAt:   now.AddDate(0, 0, -10),
	}
	require.NoError(t, s.PutBooking(ctx, b))

	old := now.AddDate(0, 0, -120)
	require.NoError(t, s.PutBooking(ctx, &model.Booking{
		ID: "b2", ProviderID: "p1", ClientID: "c2",
		Status: model.BookingCompleted, IsPaid: true,
		CompletedAt: &old, CreatedAt: old,
	}))

	recent, err := s.CompletedBookingsSince(ctx, "p1", now.AddDate(0, 0, -90))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "b1", recent[0].ID)

	p, err := s.CreditBooking(ctx, "b1", func(b *model.Booking, p *model.Provider) error {
		b.CreditAwarded = true
		p.Stats.CompletedBookings++
		p.Counts.ClientConfirmedCredits++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stats.CompletedBookings)

	got, err := s.GetBooking(ctx, "b1")
	require.NoError(t, err)
	assert.True(t, got.CreditAwarded)
}

func TestSQLiteRecentReviewsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.PutReview(ctx, &model.Review{
			ID:         fmt.Sprintf("r%d", i),
			BookingID:  fmt.Sprintf("b%d", i),
			ProviderID: "p1",
			ClientID:   "c1",
			Rating:     4 + i%2,
			Visible:    i != 2, // r2 hidden
			Status:     model.ReviewApproved,
			CreatedAt:  now.AddDate(0, 0, -i),
		}))
	}

	reviews, err := s.RecentReviews(ctx, "p1", now.AddDate(0, 0, -90), 10)
	require.NoError(t, err)
	require.Len(t, reviews, 4)
	assert.Equal(t, "r0", reviews[0].ID)
	for _, r := range reviews {
		assert.NotEqual(t, "r2", r.ID)
	}
}

func TestSQLiteApplyMutations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.PutProvider(ctx, testProvider("p1")))

	exp := now.AddDate(0, 0, 7)
	award := model.BadgeAward{
		ID:         "a1",
		ProviderID: "p1",
		BadgeID:    "trending-now",
		Status:     model.AwardActive,
		AssignedAt: now,
		ExpiresAt:  &exp,
		Metadata:   map[string]string{"source": "sweep"},
	}

	err := s.Apply(ctx, []Mutation{
		InsertAward{Award: award},
		UpdateBadgeSet{ProviderID: "p1", BadgeIDs: []string{"trending-now"}, Score: 33},
	})
	require.NoError(t, err)

	awards, err := s.ActiveAwards(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, awards, 1)
	assert.Equal(t, "trending-now", awards[0].BadgeID)
	assert.Equal(t, "sweep", awards[0].Metadata["source"])
	require.NotNil(t, awards[0].ExpiresAt)

	p, err := s.GetProvider(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"trending-now"}, p.BadgeIDs)
	assert.Equal(t, 33, p.CredibilityScore)

	err = s.Apply(ctx, []Mutation{
		ExpireAward{AwardID: "a1"},
		UpdateBadgeSet{ProviderID: "p1", BadgeIDs: nil, Score: 25},
		UpdateScore{ProviderID: "p1", Score: 25},
	})
	require.NoError(t, err)

	awards, err = s.ActiveAwards(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, awards)

	p, err = s.GetProvider(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, p.BadgeIDs)
	assert.Equal(t, 25, p.CredibilityScore)
}

func TestSQLiteApplyUniqueActiveAward(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.PutProvider(ctx, testProvider("p1")))

	first := model.BadgeAward{ID: "a1", ProviderID: "p1", BadgeID: "first-booking", Status: model.AwardActive, AssignedAt: now}
	dup := model.BadgeAward{ID: "a2", ProviderID: "p1", BadgeID: "first-booking", Status: model.AwardActive, AssignedAt: now}

	require.NoError(t, s.Apply(ctx, []Mutation{InsertAward{Award: first}}))
	// A second active award for the same badge violates the partial unique
	// index.
	assert.Error(t, s.Apply(ctx, []Mutation{InsertAward{Award: dup}}))
}

func TestValidateBatch(t *testing.T) {
	muts := make([]Mutation, MaxBatchSize)
	for i := range muts {
		muts[i] = UpdateScore{ProviderID: "p", Score: i}
	}
	assert.NoError(t, ValidateBatch(muts))

	muts = append(muts, UpdateScore{ProviderID: "p", Score: 0})
	assert.True(t, eris.Is(ValidateBatch(muts), ErrBatchTooLarge))
}

func TestSQLiteJobRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordJobRun(ctx, &model.JobRun{
		ID: "j1", Job: model.JobBadgeSweep, Status: model.JobComplete,
		Pages: 3, Processed: 120, Expired: 4, Granted: 9,
		StartedAt: now.Add(-time.Hour), FinishedAt: now,
	}))
	require.NoError(t, s.RecordJobRun(ctx, &model.JobRun{
		ID: "j2", Job: model.JobScoreRecompute, Status: model.JobFailed,
		StartedAt: now.AddDate(0, 0, -10), FinishedAt: now.AddDate(0, 0, -10),
	}))

	runs, err := s.RecentJobRuns(ctx, now.AddDate(0, 0, -2))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "j1", runs[0].ID)
	assert.Equal(t, 9, runs[0].Granted)
}
