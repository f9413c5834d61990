package config

import "github.com/spf13/viper"

// CredibilityConfig holds all tunable scoring weights. It is passed
// explicitly into the scoring function; swapping it changes outcomes for
// subsequent computations only, never retroactively.
type CredibilityConfig struct {
	TierWeights        map[string]float64 `yaml:"tier_weights" mapstructure:"tier_weights"`
	CreditMultipliers  CreditMultipliers  `yaml:"credit_multipliers" mapstructure:"credit_multipliers"`
	DistinctClientCaps DistinctClientCaps `yaml:"distinct_client_caps" mapstructure:"distinct_client_caps"`
	DiminishingReturns DiminishingReturns `yaml:"diminishing_returns" mapstructure:"diminishing_returns"`
	ResponseRateTiers  ResponseRateTiers  `yaml:"response_rate_tiers" mapstructure:"response_rate_tiers"`
	ResponseTimeTiers  ResponseTimeTiers  `yaml:"response_time_tiers" mapstructure:"response_time_tiers"`
	Recency            RecencyConfig      `yaml:"recency" mapstructure:"recency"`

	PositiveReviewWeight float64 `yaml:"positive_review_weight" mapstructure:"positive_review_weight"`
}

// CreditMultipliers weights credits by provenance. Platform-verified work
// counts more than client-confirmed, which counts more than self-reported.
type CreditMultipliers struct {
	AXVerified      float64 `yaml:"ax_verified" mapstructure:"ax_verified"`
	ClientConfirmed float64 `yaml:"client_confirmed" mapstructure:"client_confirmed"`
	SelfReported    float64 `yaml:"self_reported" mapstructure:"self_reported"`
}

// DistinctClientCaps bounds the 90-day distinct-client bonus.
type DistinctClientCaps struct {
	Cap            int     `yaml:"cap" mapstructure:"cap"`
	PerClientScore float64 `yaml:"per_client_score" mapstructure:"per_client_score"`
	MaxImpact      float64 `yaml:"max_impact" mapstructure:"max_impact"`
}

// DiminishingReturns compresses the credit component above Threshold via
// log scaling so high-volume providers do not dominate linearly.
type DiminishingReturns struct {
	Threshold  float64 `yaml:"threshold" mapstructure:"threshold"`
	LogScaling float64 `yaml:"log_scaling" mapstructure:"log_scaling"`
}

// ResponseRateTiers selects at most one bonus by descending response-rate
// threshold (percent).
type ResponseRateTiers struct {
	ExcellentMin   float64 `yaml:"excellent_min" mapstructure:"excellent_min"`
	ExcellentBonus float64 `yaml:"excellent_bonus" mapstructure:"excellent_bonus"`
	GoodMin        float64 `yaml:"good_min" mapstructure:"good_min"`
	GoodBonus      float64 `yaml:"good_bonus" mapstructure:"good_bonus"`
	DecentMin      float64 `yaml:"decent_min" mapstructure:"decent_min"`
	DecentBonus    float64 `yaml:"decent_bonus" mapstructure:"decent_bonus"`
}

// ResponseTimeTiers selects at most one bonus by ascending average
// response time (hours).
type ResponseTimeTiers struct {
	FastMaxHours float64 `yaml:"fast_max_hours" mapstructure:"fast_max_hours"`
	FastBonus    float64 `yaml:"fast_bonus" mapstructure:"fast_bonus"`
	GoodMaxHours float64 `yaml:"good_max_hours" mapstructure:"good_max_hours"`
	GoodBonus    float64 `yaml:"good_bonus" mapstructure:"good_bonus"`
	OKMaxHours   float64 `yaml:"ok_max_hours" mapstructure:"ok_max_hours"`
	OKBonus      float64 `yaml:"ok_bonus" mapstructure:"ok_bonus"`
}

// RecencyConfig boosts recently active providers and penalizes inactivity.
// Thresholds are days since the last completed booking.
type RecencyConfig struct {
	VeryRecentDays      int     `yaml:"very_recent_days" mapstructure:"very_recent_days"`
	VeryRecentBoost     float64 `yaml:"very_recent_boost" mapstructure:"very_recent_boost"`
	RecentDays          int     `yaml:"recent_days" mapstructure:"recent_days"`
	RecentBoost         float64 `yaml:"recent_boost" mapstructure:"recent_boost"`
	SomewhatRecentDays  int     `yaml:"somewhat_recent_days" mapstructure:"somewhat_recent_days"`
	SomewhatRecentBoost float64 `yaml:"somewhat_recent_boost" mapstructure:"somewhat_recent_boost"`
	InactivityDays      int     `yaml:"inactivity_days" mapstructure:"inactivity_days"`
	InactivityPenalty   float64 `yaml:"inactivity_penalty" mapstructure:"inactivity_penalty"`
	HeavyPenaltyDays    int     `yaml:"heavy_penalty_days" mapstructure:"heavy_penalty_days"`
	HeavyPenalty        float64 `yaml:"heavy_penalty" mapstructure:"heavy_penalty"`
}

// setCredibilityDefaults registers the default scoring constants. The shape
// is fixed; the constants are deliberately tunable per deployment.
func setCredibilityDefaults(v *viper.Viper) {
	v.SetDefault("credibility.tier_weights", map[string]float64{
		"standard":  10,
		"verified":  30,
		"signature": 60,
	})
	v.SetDefault("credibility.credit_multipliers.ax_verified", 3.0)
	v.SetDefault("credibility.credit_multipliers.client_confirmed", 1.5)
	v.SetDefault("credibility.credit_multipliers.self_reported", 0.5)
	v.SetDefault("credibility.distinct_client_caps.cap", 10)
	v.SetDefault("credibility.distinct_client_caps.per_client_score", 4)
	v.SetDefault("credibility.distinct_client_caps.max_impact", 40)
	v.SetDefault("credibility.diminishing_returns.threshold", 50)
	v.SetDefault("credibility.diminishing_returns.log_scaling", 15)
	v.SetDefault("credibility.response_rate_tiers.excellent_min", 95)
	v.SetDefault("credibility.response_rate_tiers.excellent_bonus", 15)
	v.SetDefault("credibility.response_rate_tiers.good_min", 85)
	v.SetDefault("credibility.response_rate_tiers.good_bonus", 10)
	v.SetDefault("credibility.response_rate_tiers.decent_min", 70)
	v.SetDefault("credibility.response_rate_tiers.decent_bonus", 5)
	v.SetDefault("credibility.response_time_tiers.fast_max_hours", 1)
	v.SetDefault("credibility.response_time_tiers.fast_bonus", 15)
	v.SetDefault("credibility.response_time_tiers.good_max_hours", 4)
	v.SetDefault("credibility.response_time_tiers.good_bonus", 10)
	v.SetDefault("credibility.response_time_tiers.ok_max_hours", 12)
	v.SetDefault("credibility.response_time_tiers.ok_bonus", 5)
	v.SetDefault("credibility.recency.very_recent_days", 7)
	v.SetDefault("credibility.recency.very_recent_boost", 15)
	v.SetDefault("credibility.recency.recent_days", 30)
	v.SetDefault("credibility.recency.recent_boost", 10)
	v.SetDefault("credibility.recency.somewhat_recent_days", 90)
	v.SetDefault("credibility.recency.somewhat_recent_boost", 5)
	v.SetDefault("credibility.recency.inactivity_days", 180)
	v.SetDefault("credibility.recency.inactivity_penalty", 20)
	v.SetDefault("credibility.recency.heavy_penalty_days", 365)
	v.SetDefault("credibility.recency.heavy_penalty", 40)
	v.SetDefault("credibility.positive_review_weight", 2.0)
}
