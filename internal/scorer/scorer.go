// Package scorer implements the pure credibility scoring function and the
// factor extraction that feeds it.
package scorer

import (
	"math"

	"github.com/axservices/credibility-engine/internal/config"
)

// ComputeScore combines the extracted factors into a single credibility
// score. Pure, deterministic, and total: no I/O, no clock reads, no panics
// on out-of-range input. Missing optional factors score as zero/neutral.
// The result is clamped to a non-negative integer (rounded half away from
// zero from the float accumulation).
func ComputeScore(f Factors, cfg config.CredibilityConfig) int {
	total := cfg.TierWeights[string(f.Tier)]

	total += creditComponent(f, cfg)
	total += distinctClientBonus(f.DistinctClients90d, cfg.DistinctClientCaps)
	total += float64(f.PositiveReviewCount) * cfg.PositiveReviewWeight

	for _, b := range f.ActiveBadges {
		total += b.ScoreImpact
	}

	total += responseRateBonus(f.ResponseRate, cfg.ResponseRateTiers)
	total += responseTimeBonus(f.AvgResponseTimeHours, cfg.ResponseTimeTiers)
	total += recencyModifier(f.DaysSinceLastBooking, cfg.Recency)

	if total < 0 {
		return 0
	}
	return int(math.Round(total))
}

// creditComponent weights credits by provenance and compresses the sum
// above the diminishing-returns threshold with log scaling, so doubling a
// large credit count adds less than double.
func creditComponent(f Factors, cfg config.CredibilityConfig) float64 {
	m := cfg.CreditMultipliers
	raw := float64(f.AXVerifiedCredits)*m.AXVerified +
		float64(f.ClientConfirmedCredits)*m.ClientConfirmed +
		float64(f.SelfReportedCredits)*m.SelfReported

	dr := cfg.DiminishingReturns
	if dr.Threshold <= 0 || raw <= dr.Threshold {
		return raw
	}
	return dr.Threshold + math.Log1p(raw-dr.Threshold)*dr.LogScaling
}

// distinctClientBonus rewards breadth of recent clientele, capped both by
// the counted-client cap and the absolute max impact.
func distinctClientBonus(distinct int, caps config.DistinctClientCaps) float64 {
	if distinct <= 0 {
		return 0
	}
	n := distinct
	if caps.Cap > 0 && n > caps.Cap {
		n = caps.Cap
	}
	bonus := float64(n) * caps.PerClientScore
	if caps.MaxImpact > 0 && bonus > caps.MaxImpact {
		bonus = caps.MaxImpact
	}
	return bonus
}

// responseRateBonus selects at most one tier by descending threshold.
func responseRateBonus(rate float64, tiers config.ResponseRateTiers) float64 {
	switch {
	case rate >= tiers.ExcellentMin:
		return tiers.ExcellentBonus
	case rate >= tiers.GoodMin:
		return tiers.GoodBonus
	case rate >= tiers.DecentMin:
		return tiers.DecentBonus
	default:
		return 0
	}
}

// responseTimeBonus selects at most one tier by ascending threshold. A zero
// average means no response data yet and scores neutral.
func responseTimeBonus(avgHours float64, tiers config.ResponseTimeTiers) float64 {
	if avgHours <= 0 {
		return 0
	}
	switch {
	case avgHours <= tiers.FastMaxHours:
		return tiers.FastBonus
	case avgHours <= tiers.GoodMaxHours:
		return tiers.GoodBonus
	case avgHours <= tiers.OKMaxHours:
		return tiers.OKBonus
	default:
		return 0
	}
}

// recencyModifier boosts recent activity and penalizes long inactivity.
// A nil daysSince (provider has never completed a booking) is neutral.
func recencyModifier(daysSince *int, r config.RecencyConfig) float64 {
	if daysSince == nil {
		return 0
	}
	d := *daysSince
	switch {
	case d <= r.VeryRecentDays:
		return r.VeryRecentBoost
	case d <= r.RecentDays:
		return r.RecentBoost
	case d <= r.SomewhatRecentDays:
		return r.SomewhatRecentBoost
	case r.HeavyPenaltyDays > 0 && d > r.HeavyPenaltyDays:
		return -r.HeavyPenalty
	case r.InactivityDays > 0 && d > r.InactivityDays:
		return -r.InactivityPenalty
	default:
		return 0
	}
}
