package scorer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axservices/credibility-engine/internal/model"
)

func intPtr(n int) *int { return &n }

func baseFactors() Factors {
	return Factors{
		Tier:                 model.TierStandard,
		CompletedBookings:    12,
		PositiveReviewCount:  8,
		DistinctClients90d:   5,
		DaysSinceLastBooking: intPtr(3),
	}
}

func TestComputeScoreDeterminism(t *testing.T) {
	cfg := DefaultConfig()
	f := baseFactors()
	f.AXVerifiedCredits = 7
	f.ClientConfirmedCredits = 3

	first := ComputeScore(f, cfg)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ComputeScore(f, cfg))
	}
}

func TestComputeScoreNonNegative(t *testing.T) {
	cfg := DefaultConfig()
	f := Factors{
		Tier:                 model.TierStandard,
		DaysSinceLastBooking: intPtr(400),
	}
	// Tier base 10 minus heavy inactivity penalty 40 would go negative.
	assert.Equal(t, 0, ComputeScore(f, cfg))
}

func TestInactivityPenalty(t *testing.T) {
	cfg := DefaultConfig()

	active := baseFactors()
	stale := baseFactors()
	stale.DaysSinceLastBooking = intPtr(200)

	assert.Greater(t, ComputeScore(active, cfg), ComputeScore(stale, cfg))
}

func TestNilDaysSinceIsNeutral(t *testing.T) {
	cfg := DefaultConfig()

	neutral := baseFactors()
	neutral.DaysSinceLastBooking = nil
	recent := baseFactors()

	// The recency boost applies only when a last booking exists.
	assert.Greater(t, ComputeScore(recent, cfg), ComputeScore(neutral, cfg))
	assert.GreaterOrEqual(t, ComputeScore(neutral, cfg), 0)
}

func TestMonotonicity(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		bump func(f *Factors)
	}{
		{"positive reviews", func(f *Factors) { f.PositiveReviewCount += 5 }},
		{"distinct clients", func(f *Factors) { f.DistinctClients90d += 3 }},
		{"verified credits", func(f *Factors) { f.AXVerifiedCredits += 10 }},
		{"client credits", func(f *Factors) { f.ClientConfirmedCredits += 10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := baseFactors()
			after := baseFactors()
			tt.bump(&after)
			assert.GreaterOrEqual(t, ComputeScore(after, cfg), ComputeScore(before, cfg))
		})
	}
}

func TestTierOrdering(t *testing.T) {
	cfg := DefaultConfig()

	standard := baseFactors()
	verified := baseFactors()
	verified.Tier = model.TierVerified
	signature := baseFactors()
	signature.Tier = model.TierSignature

	assert.Greater(t, ComputeScore(signature, cfg), ComputeScore(verified, cfg))
	assert.Greater(t, ComputeScore(verified, cfg), ComputeScore(standard, cfg))
}

func TestDiminishingReturns(t *testing.T) {
	cfg := DefaultConfig()

	at := Factors{Tier: model.TierStandard, AXVerifiedCredits: 30}    // raw 90
	twice := Factors{Tier: model.TierStandard, AXVerifiedCredits: 60} // raw 180

	base := creditComponent(Factors{}, cfg)
	require.Zero(t, base)

	lo := creditComponent(at, cfg)
	hi := creditComponent(twice, cfg)
	assert.Greater(t, hi, lo)
	// Doubling credits above the threshold adds less than double.
	assert.Less(t, hi, 2*lo)
}

func TestCreditComponentBelowThresholdIsLinear(t *testing.T) {
	cfg := DefaultConfig()
	f := Factors{ClientConfirmedCredits: 10} // raw 15, below threshold 50
	assert.InDelta(t, 15.0, creditComponent(f, cfg), 1e-9)
}

func TestDistinctClientBonusCaps(t *testing.T) {
	caps := DefaultConfig().DistinctClientCaps

	assert.Zero(t, distinctClientBonus(0, caps))
	assert.InDelta(t, 8.0, distinctClientBonus(2, caps), 1e-9)
	// 10-client cap: 25 distinct clients score the same as 10.
	assert.Equal(t, distinctClientBonus(10, caps), distinctClientBonus(25, caps))
	assert.LessOrEqual(t, distinctClientBonus(1000, caps), caps.MaxImpact)
}

func TestResponseRateTiers(t *testing.T) {
	tiers := DefaultConfig().ResponseRateTiers

	tests := []struct {
		rate float64
		want float64
	}{
		{99, 15},
		{95, 15},
		{90, 10},
		{75, 5},
		{50, 0},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, responseRateBonus(tt.rate, tiers), "rate %.0f", tt.rate)
	}
}

func TestResponseRateZeroThresholdTier(t *testing.T) {
	// A lowest tier configured at threshold 0 catches every provider,
	// including those with no response data yet.
	tiers := DefaultConfig().ResponseRateTiers
	tiers.DecentMin = 0
	tiers.DecentBonus = 5

	assert.Equal(t, 5.0, responseRateBonus(0, tiers))
	assert.Equal(t, 5.0, responseRateBonus(40, tiers))
	assert.Equal(t, tiers.GoodBonus, responseRateBonus(tiers.GoodMin, tiers))
}

func TestResponseTimeTiers(t *testing.T) {
	tiers := DefaultConfig().ResponseTimeTiers

	tests := []struct {
		hours float64
		want  float64
	}{
		{0.5, 15},
		{1, 15},
		{3, 10},
		{10, 5},
		{24, 0},
		{0, 0}, // no data yet
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, responseTimeBonus(tt.hours, tiers), "hours %.1f", tt.hours)
	}
}

func TestBadgeImpacts(t *testing.T) {
	cfg := DefaultConfig()

	plain := baseFactors()
	badged := baseFactors()
	badged.ActiveBadges = []model.BadgeDefinition{
		{ID: "a", ScoreImpact: 10},
		{ID: "b", ScoreImpact: 5},
	}

	assert.Equal(t, ComputeScore(plain, cfg)+15, ComputeScore(badged, cfg))
}

func TestExtractFactors(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	last := now.AddDate(0, 0, -3)

	p := &model.Provider{
		ID:   "p1",
		Tier: model.TierVerified,
		Stats: model.ProviderStats{
			CompletedBookings:   12,
			PositiveReviewCount: 8,
			ResponseRate:        92,
			LastCompletedAt:     &last,
			DistinctClients90d:  5,
		},
		Counts:    model.ProviderCounts{AXVerifiedCredits: 4, SelfReportedCredits: 2},
		CreatedAt: now.AddDate(0, -6, 0),
	}

	f := ExtractFactors(p, nil, now)
	assert.Equal(t, model.TierVerified, f.Tier)
	assert.Equal(t, 4, f.AXVerifiedCredits)
	assert.Equal(t, 2, f.SelfReportedCredits)
	assert.Equal(t, 12, f.CompletedBookings)
	require.NotNil(t, f.DaysSinceLastBooking)
	assert.Equal(t, 3, *f.DaysSinceLastBooking)
	assert.Greater(t, f.AccountAgeDays, 170)

	p.Stats.LastCompletedAt = nil
	f = ExtractFactors(p, nil, now)
	assert.Nil(t, f.DaysSinceLastBooking)
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, ValidateConfig(DefaultConfig()))

	bad := DefaultConfig()
	bad.CreditMultipliers.SelfReported = 9 // above ax-verified
	assert.Error(t, ValidateConfig(bad))
}
