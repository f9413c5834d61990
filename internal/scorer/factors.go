package scorer

import (
	"time"

	"github.com/axservices/credibility-engine/internal/model"
)

// Factors is the ephemeral input to the scoring function. It is recomputed
// on every scoring call and never persisted.
type Factors struct {
	Tier                   model.Tier
	AXVerifiedCredits      int
	ClientConfirmedCredits int
	SelfReportedCredits    int
	DistinctClients90d     int
	PositiveReviewCount    int
	CompletedBookings      int
	ResponseRate           float64
	AvgResponseTimeHours   float64
	ActiveBadges           []model.BadgeDefinition
	AccountAgeDays         int

	// DaysSinceLastBooking is nil when the provider has never completed a
	// booking; the recency modifier is then neutral.
	DaysSinceLastBooking *int
}

// ExtractFactors maps a provider record plus its resolved active badge
// definitions into scoring factors, deriving the two time-based factors
// from the given clock value. Zero-valued stats and counts are fine.
func ExtractFactors(p *model.Provider, activeBadges []model.BadgeDefinition, now time.Time) Factors {
	f := Factors{
		Tier:                   p.Tier,
		AXVerifiedCredits:      p.Counts.AXVerifiedCredits,
		ClientConfirmedCredits: p.Counts.ClientConfirmedCredits,
		SelfReportedCredits:    p.Counts.SelfReportedCredits,
		DistinctClients90d:     p.Stats.DistinctClients90d,
		PositiveReviewCount:    p.Stats.PositiveReviewCount,
		CompletedBookings:      p.Stats.CompletedBookings,
		ResponseRate:           p.Stats.ResponseRate,
		AvgResponseTimeHours:   p.Stats.AvgResponseTimeHours,
		ActiveBadges:           activeBadges,
		AccountAgeDays:         daysBetween(p.CreatedAt, now),
	}
	if p.Stats.LastCompletedAt != nil {
		d := daysBetween(*p.Stats.LastCompletedAt, now)
		f.DaysSinceLastBooking = &d
	}
	return f
}

// daysBetween returns whole days from a to b, never negative.
func daysBetween(a, b time.Time) int {
	d := int(b.Sub(a).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
