// Package badge holds the badge catalog and the lifecycle decision logic
// that grants and expires awards.
package badge

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/axservices/credibility-engine/internal/model"
)

// Catalog badge ids.
const (
	TrendingNow    = "trending-now"
	RisingTalent   = "rising-talent"
	NewThisWeek    = "new-this-week"
	FirstBooking   = "first-booking"
	Milestone10    = "milestone-10-bookings"
	Milestone50    = "milestone-50-bookings"
	Milestone100   = "milestone-100-bookings"
	FiveStarStreak = "five-star-streak"
	ClientFavorite = "client-favorite"
	FastResponder  = "fast-responder"
)

// Catalog is the static table of badge definitions.
type Catalog struct {
	defs map[string]model.BadgeDefinition
}

// DefaultCatalog returns the built-in badge definitions.
func DefaultCatalog() *Catalog {
	day := 24 * time.Hour
	defs := []model.BadgeDefinition{
		{ID: TrendingNow, Name: "Trending Now", Description: "2+ completed bookings in the last 7 days", Type: model.BadgeDynamic, ScoreImpact: 8, TTL: 7 * day},
		{ID: RisingTalent, Name: "Rising Talent", Description: "3+ completed bookings in the first 90 days", Type: model.BadgeDynamic, ScoreImpact: 10, TTL: 30 * day},
		{ID: NewThisWeek, Name: "New This Week", Description: "Joined within the last two weeks", Type: model.BadgeDynamic, ScoreImpact: 5, TTL: 14 * day},
		{ID: FirstBooking, Name: "First Booking", Description: "Completed a first booking", Type: model.BadgeAchievement, ScoreImpact: 5},
		{ID: Milestone10, Name: "10 Bookings", Description: "Completed 10 bookings", Type: model.BadgeAchievement, ScoreImpact: 10},
		{ID: Milestone50, Name: "50 Bookings", Description: "Completed 50 bookings", Type: model.BadgeAchievement, ScoreImpact: 15},
		{ID: Milestone100, Name: "100 Bookings", Description: "Completed 100 bookings", Type: model.BadgeAchievement, ScoreImpact: 25},
		{ID: FiveStarStreak, Name: "Five-Star Streak", Description: "Last 5 reviews all rated 5 stars", Type: model.BadgePerformance, ScoreImpact: 12},
		{ID: ClientFavorite, Name: "Client Favorite", Description: "30%+ of recent clients book again", Type: model.BadgePerformance, ScoreImpact: 10},
		{ID: FastResponder, Name: "Fast Responder", Description: "Responds to 80%+ of inquiries within 2 hours", Type: model.BadgePerformance, ScoreImpact: 8},
	}

	m := make(map[string]model.BadgeDefinition, len(defs))
	for _, d := range defs {
		m[d.ID] = d
	}
	return &Catalog{defs: m}
}

// Get returns the definition for a badge id.
func (c *Catalog) Get(id string) (model.BadgeDefinition, bool) {
	d, ok := c.defs[id]
	return d, ok
}

// Resolve maps badge ids to their definitions, skipping unknown ids.
func (c *Catalog) Resolve(ids []string) []model.BadgeDefinition {
	out := make([]model.BadgeDefinition, 0, len(ids))
	for _, id := range ids {
		if d, ok := c.defs[id]; ok {
			out = append(out, d)
		}
	}
	return out
}

// NewAward creates an active award for the given badge, with the expiry
// derived from the definition's TTL (nil for permanent badges).
func (c *Catalog) NewAward(providerID, badgeID string, now time.Time) model.BadgeAward {
	a := model.BadgeAward{
		ID:         uuid.NewString(),
		ProviderID: providerID,
		BadgeID:    badgeID,
		Status:     model.AwardActive,
		AssignedAt: now,
	}
	if d, ok := c.defs[badgeID]; ok && d.TTL > 0 {
		exp := now.Add(d.TTL)
		a.ExpiresAt = &exp
	}
	return a
}

// ApplyOverrides merges definitions from a YAML file into the catalog.
// Entries replace matching ids; unknown ids are added as-is. Used for
// per-deployment tuning of display metadata and score impacts.
func (c *Catalog) ApplyOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "badge: read catalog overrides %s", path)
	}

	var overrides []model.BadgeDefinition
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return eris.Wrapf(err, "badge: parse catalog overrides %s", path)
	}

	for _, d := range overrides {
		if d.ID == "" {
			return eris.Errorf("badge: catalog override without id in %s", path)
		}
		c.defs[d.ID] = d
	}
	return nil
}
