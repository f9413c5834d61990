package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/axservices/credibility-engine/internal/config"
)

// DefaultConfig returns the default credibility weights. These mirror the
// viper defaults in the config package and are the constants used when no
// deployment override is present.
func DefaultConfig() config.CredibilityConfig {
	return config.CredibilityConfig{
		TierWeights: map[string]float64{
			"standard":  10,
			"verified":  30,
			"signature": 60,
		},
		CreditMultipliers: config.CreditMultipliers{
			AXVerified:      3.0,
			ClientConfirmed: 1.5,
			SelfReported:    0.5,
		},
		DistinctClientCaps: config.DistinctClientCaps{
			Cap:            10,
			PerClientScore: 4,
			MaxImpact:      40,
		},
		DiminishingReturns: config.DiminishingReturns{
			Threshold:  50,
			LogScaling: 15,
		},
		ResponseRateTiers: config.ResponseRateTiers{
			ExcellentMin: 95, ExcellentBonus: 15,
			GoodMin: 85, GoodBonus: 10,
			DecentMin: 70, DecentBonus: 5,
		},
		ResponseTimeTiers: config.ResponseTimeTiers{
			FastMaxHours: 1, FastBonus: 15,
			GoodMaxHours: 4, GoodBonus: 10,
			OKMaxHours: 12, OKBonus: 5,
		},
		Recency: config.RecencyConfig{
			VeryRecentDays: 7, VeryRecentBoost: 15,
			RecentDays: 30, RecentBoost: 10,
			SomewhatRecentDays: 90, SomewhatRecentBoost: 5,
			InactivityDays: 180, InactivityPenalty: 20,
			HeavyPenaltyDays: 365, HeavyPenalty: 40,
		},
		PositiveReviewWeight: 2.0,
	}
}

// ValidateConfig checks that a CredibilityConfig is internally consistent.
func ValidateConfig(c config.CredibilityConfig) error {
	var errs []string

	for tier, w := range c.TierWeights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("tier_weights.%s must be >= 0", tier))
		}
	}

	m := c.CreditMultipliers
	if m.AXVerified < 0 || m.ClientConfirmed < 0 || m.SelfReported < 0 {
		errs = append(errs, "credit multipliers must be >= 0")
	}
	if m.AXVerified < m.ClientConfirmed || m.ClientConfirmed < m.SelfReported {
		errs = append(errs, "credit multipliers must satisfy ax_verified >= client_confirmed >= self_reported")
	}

	caps := c.DistinctClientCaps
	if caps.Cap < 0 {
		errs = append(errs, "distinct_client_caps.cap must be >= 0")
	}
	if caps.PerClientScore < 0 {
		errs = append(errs, "distinct_client_caps.per_client_score must be >= 0")
	}
	if caps.MaxImpact < 0 {
		errs = append(errs, "distinct_client_caps.max_impact must be >= 0")
	}

	if c.DiminishingReturns.Threshold < 0 {
		errs = append(errs, "diminishing_returns.threshold must be >= 0")
	}
	if c.DiminishingReturns.LogScaling < 0 {
		errs = append(errs, "diminishing_returns.log_scaling must be >= 0")
	}

	rr := c.ResponseRateTiers
	if rr.ExcellentMin < rr.GoodMin || rr.GoodMin < rr.DecentMin {
		errs = append(errs, "response rate tiers must descend: excellent_min >= good_min >= decent_min")
	}

	rt := c.ResponseTimeTiers
	if rt.FastMaxHours > rt.GoodMaxHours || rt.GoodMaxHours > rt.OKMaxHours {
		errs = append(errs, "response time tiers must ascend: fast_max_hours <= good_max_hours <= ok_max_hours")
	}

	r := c.Recency
	if r.VeryRecentDays > r.RecentDays || r.RecentDays > r.SomewhatRecentDays {
		errs = append(errs, "recency windows must ascend: very_recent <= recent <= somewhat_recent")
	}
	if r.InactivityDays > 0 && r.SomewhatRecentDays > r.InactivityDays {
		errs = append(errs, "recency.inactivity_days must be >= somewhat_recent_days")
	}
	if r.HeavyPenaltyDays > 0 && r.InactivityDays > r.HeavyPenaltyDays {
		errs = append(errs, "recency.heavy_penalty_days must be >= inactivity_days")
	}
	if r.InactivityPenalty < 0 || r.HeavyPenalty < 0 {
		errs = append(errs, "recency penalties must be >= 0 (they are subtracted)")
	}
	if r.HeavyPenalty < r.InactivityPenalty {
		errs = append(errs, "recency.heavy_penalty must be >= inactivity_penalty")
	}

	if c.PositiveReviewWeight < 0 {
		errs = append(errs, "positive_review_weight must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
