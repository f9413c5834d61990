package model

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// BadgeType classifies how a badge is retained once granted.
type BadgeType string

const (
	// BadgeAchievement is permanent once granted (cumulative threshold).
	BadgeAchievement BadgeType = "achievement"
	// BadgePerformance persists while the underlying metric holds.
	BadgePerformance BadgeType = "performance"
	// BadgeDynamic carries an explicit expiry and is re-evaluated by the
	// daily sweep.
	BadgeDynamic BadgeType = "dynamic"
)

// BadgeDefinition is an immutable catalog entry. TTL is zero for badges
// without an expiry; dynamic badges always set it.
type BadgeDefinition struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description" yaml:"description"`
	Type        BadgeType     `json:"type" yaml:"type"`
	ScoreImpact float64       `json:"score_impact" yaml:"score_impact"`
	TTL         time.Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
}

// UnmarshalYAML accepts TTL as a Go duration string ("72h"), the form
// catalog override files use.
func (d *BadgeDefinition) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		ID          string    `yaml:"id"`
		Name        string    `yaml:"name"`
		Description string    `yaml:"description"`
		Type        BadgeType `yaml:"type"`
		ScoreImpact float64   `yaml:"score_impact"`
		TTL         string    `yaml:"ttl"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	d.ID = raw.ID
	d.Name = raw.Name
	d.Description = raw.Description
	d.Type = raw.Type
	d.ScoreImpact = raw.ScoreImpact
	if raw.TTL != "" {
		ttl, err := time.ParseDuration(raw.TTL)
		if err != nil {
			return fmt.Errorf("badge %s: invalid ttl %q: %w", raw.ID, raw.TTL, err)
		}
		d.TTL = ttl
	}
	return nil
}

// AwardStatus is the lifecycle state of a badge award.
type AwardStatus string

const (
	AwardActive  AwardStatus = "active"
	AwardExpired AwardStatus = "expired"
)

// BadgeAward is one grant event in the audit/TTL ledger. A provider has at
// most one active award per badge id at any time.
type BadgeAward struct {
	ID         string            `json:"id"`
	ProviderID string            `json:"provider_id"`
	BadgeID    string            `json:"badge_id"`
	Status     AwardStatus       `json:"status"`
	AssignedAt time.Time         `json:"assigned_at"`
	ExpiresAt  *time.Time        `json:"expires_at,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Expired reports whether the award's expiry has passed as of now.
// Awards without an expiry never expire.
func (a *BadgeAward) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}
