package model

import "time"

// Tier is the platform verification tier of a service provider.
type Tier string

const (
	TierStandard  Tier = "standard"
	TierVerified  Tier = "verified"
	TierSignature Tier = "signature"
)

// ProviderStats holds the rolling activity metrics that feed the
// credibility score. Mutated only by event triggers and batch jobs.
type ProviderStats struct {
	CompletedBookings    int        `json:"completed_bookings"`
	PositiveReviewCount  int        `json:"positive_review_count"`
	ResponseRate         float64    `json:"response_rate"`
	AvgResponseTimeHours float64    `json:"avg_response_time_hours"`
	LastCompletedAt      *time.Time `json:"last_completed_at,omitempty"`
	DistinctClients90d   int        `json:"distinct_clients_90d"`
}

// ProviderCounts holds credit tallies by provenance. Platform-verified
// credits carry more scoring weight than client-confirmed ones.
type ProviderCounts struct {
	AXVerifiedCredits      int `json:"ax_verified_credits"`
	ClientConfirmedCredits int `json:"client_confirmed_credits"`
	SelfReportedCredits    int `json:"self_reported_credits"`
}

// Provider is one service provider record (artist, producer, engineer,
// videographer, studio). BadgeIDs is a denormalized cache of the badge ids
// with a currently active award; the badge_awards ledger is the source of
// truth and the lifecycle apply-path keeps both in sync transactionally.
type Provider struct {
	ID               string         `json:"id"`
	DisplayName      string         `json:"display_name"`
	Tier             Tier           `json:"tier"`
	Stats            ProviderStats  `json:"stats"`
	Counts           ProviderCounts `json:"counts"`
	BadgeIDs         []string       `json:"badge_ids"`
	CredibilityScore int            `json:"credibility_score"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// HasBadge reports whether the provider's denormalized badge set contains
// the given badge id.
func (p *Provider) HasBadge(badgeID string) bool {
	for _, id := range p.BadgeIDs {
		if id == badgeID {
			return true
		}
	}
	return false
}
