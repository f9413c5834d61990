package badge

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axservices/credibility-engine/internal/model"
)

func TestDefaultCatalogComplete(t *testing.T) {
	c := DefaultCatalog()

	for _, id := range []string{
		TrendingNow, RisingTalent, NewThisWeek,
		FirstBooking, Milestone10, Milestone50, Milestone100,
		FiveStarStreak, ClientFavorite, FastResponder,
	} {
		d, ok := c.Get(id)
		require.True(t, ok, "missing %s", id)
		assert.Greater(t, d.ScoreImpact, 0.0, id)
	}

	// Dynamic badges always carry a TTL; achievements never do.
	trending, _ := c.Get(TrendingNow)
	assert.Equal(t, model.BadgeDynamic, trending.Type)
	assert.Positive(t, trending.TTL)

	milestone, _ := c.Get(Milestone10)
	assert.Equal(t, model.BadgeAchievement, milestone.Type)
	assert.Zero(t, milestone.TTL)
}

func TestNewAward(t *testing.T) {
	c := DefaultCatalog()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	dynamic := c.NewAward("p1", TrendingNow, now)
	assert.NotEmpty(t, dynamic.ID)
	assert.Equal(t, model.AwardActive, dynamic.Status)
	require.NotNil(t, dynamic.ExpiresAt)
	assert.Equal(t, now.Add(7*24*time.Hour), *dynamic.ExpiresAt)

	permanent := c.NewAward("p1", Milestone10, now)
	assert.Nil(t, permanent.ExpiresAt)
	assert.False(t, permanent.Expired(now.AddDate(10, 0, 0)))
}

func TestResolveSkipsUnknownIDs(t *testing.T) {
	c := DefaultCatalog()
	defs := c.Resolve([]string{FirstBooking, "retired-badge", Milestone10})
	require.Len(t, defs, 2)
	assert.Equal(t, FirstBooking, defs[0].ID)
}

func TestApplyOverrides(t *testing.T) {
	c := DefaultCatalog()

	path := filepath.Join(t.TempDir(), "badges.yaml")
	data := `
- id: trending-now
  name: On Fire
  type: dynamic
  score_impact: 20
  ttl: 72h
- id: seasonal-special
  name: Seasonal Special
  type: dynamic
  score_impact: 3
  ttl: 168h
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	require.NoError(t, c.ApplyOverrides(path))

	d, ok := c.Get(TrendingNow)
	require.True(t, ok)
	assert.Equal(t, "On Fire", d.Name)
	assert.Equal(t, 20.0, d.ScoreImpact)
	assert.Equal(t, 72*time.Hour, d.TTL)

	_, ok = c.Get("seasonal-special")
	assert.True(t, ok)
}

func TestApplyOverridesRejectsMissingID(t *testing.T) {
	c := DefaultCatalog()
	path := filepath.Join(t.TempDir(), "badges.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- name: nameless\n"), 0o644))
	assert.Error(t, c.ApplyOverrides(path))
}
