package badge

import (
	"sort"
	"time"

	"github.com/axservices/credibility-engine/internal/model"
)

// Scope selects which eligibility rule groups an evaluation runs. Expiry of
// already-active awards is always checked regardless of scope.
type Scope uint8

const (
	// ScopeBooking covers booking-count and response-metric rules.
	ScopeBooking Scope = 1 << iota
	// ScopeReview covers review-derived rules.
	ScopeReview
	// ScopeDynamic covers the time-boxed activity rules.
	ScopeDynamic
)

// ScopeAll runs every rule group.
const ScopeAll = ScopeBooking | ScopeReview | ScopeDynamic

// Activity is the recent-activity snapshot a caller reads from storage
// before evaluating. All I/O stays at that boundary; Evaluate itself is
// pure.
type Activity struct {
	CompletedLast7d  int
	CompletedLast30d int
	// DistinctClients and RepeatClients are over the trailing 90 days.
	// A repeat client has 2+ completed bookings with this provider.
	DistinctClients int
	RepeatClients   int
	// RecentRatings holds ratings of visible reviews in the trailing 90
	// days, newest first.
	RecentRatings []int
}

// EvalInput is one provider's state snapshot for a lifecycle evaluation.
type EvalInput struct {
	Now          time.Time
	Provider     *model.Provider
	ActiveAwards []model.BadgeAward
	Activity     Activity
	Scope        Scope
}

// Decision is the transition result of one lifecycle evaluation: which
// badge ids expired, which were newly granted, and the resulting
// denormalized badge set. Expired and Granted are disjoint; a badge whose
// award expires in this run becomes eligible again only on a later run.
// Applying the corresponding award and provider mutations atomically is
// the caller's responsibility.
type Decision struct {
	Expired    []string
	Granted    []string
	BadgeIDs   []string
	HasChanges bool
}

// Evaluate runs the badge state machine for one provider: active awards
// past their expiry move to expired, and rules whose eligibility is newly
// met grant new awards. Running it twice on unchanged state is a no-op the
// second time.
func (c *Catalog) Evaluate(in EvalInput) Decision {
	var d Decision

	// Expiry pass: active -> expired is the only transition out of active.
	expiring := make(map[string]bool)
	activeIDs := make(map[string]bool, len(in.ActiveAwards))
	for i := range in.ActiveAwards {
		a := &in.ActiveAwards[i]
		activeIDs[a.BadgeID] = true
		if a.Expired(in.Now) {
			expiring[a.BadgeID] = true
			d.Expired = append(d.Expired, a.BadgeID)
		}
	}

	// Grant pass: a rule grants only when no active award exists for the
	// badge and the badge did not just expire in this same run.
	for _, id := range c.eligible(in) {
		if activeIDs[id] || expiring[id] {
			continue
		}
		if _, known := c.defs[id]; !known {
			continue
		}
		d.Granted = append(d.Granted, id)
		activeIDs[id] = true
	}

	// Rebuild the denormalized set from the surviving awards plus grants.
	for id := range activeIDs {
		if !expiring[id] {
			d.BadgeIDs = append(d.BadgeIDs, id)
		}
	}
	sort.Strings(d.BadgeIDs)
	sort.Strings(d.Expired)
	sort.Strings(d.Granted)

	d.HasChanges = len(d.Expired) > 0 || len(d.Granted) > 0 ||
		!sameSet(d.BadgeIDs, in.Provider.BadgeIDs)
	return d
}

// eligible returns the badge ids whose rules match the snapshot, filtered
// by scope. Rules never consult storage.
func (c *Catalog) eligible(in EvalInput) []string {
	var ids []string
	p := in.Provider
	act := in.Activity
	ageDays := int(in.Now.Sub(p.CreatedAt).Hours() / 24)

	if in.Scope&ScopeDynamic != 0 {
		if act.CompletedLast7d >= 2 {
			ids = append(ids, TrendingNow)
		}
		if act.CompletedLast30d >= 3 && ageDays <= 90 {
			ids = append(ids, RisingTalent)
		}
		if ageDays > 7 && ageDays < 14 {
			ids = append(ids, NewThisWeek)
		}
	}

	if in.Scope&ScopeBooking != 0 {
		if p.Stats.CompletedBookings >= 1 {
			ids = append(ids, FirstBooking)
		}
		if p.Stats.CompletedBookings >= 10 {
			ids = append(ids, Milestone10)
		}
		if p.Stats.CompletedBookings >= 50 {
			ids = append(ids, Milestone50)
		}
		if p.Stats.CompletedBookings >= 100 {
			ids = append(ids, Milestone100)
		}
		if p.Stats.ResponseRate >= 80 && p.Stats.AvgResponseTimeHours > 0 && p.Stats.AvgResponseTimeHours <= 2 {
			ids = append(ids, FastResponder)
		}
	}

	if in.Scope&ScopeReview != 0 {
		if fiveStarStreak(act.RecentRatings) {
			ids = append(ids, FiveStarStreak)
		}
		if p.Stats.CompletedBookings >= 15 && act.DistinctClients > 0 {
			ratio := float64(act.RepeatClients) / float64(act.DistinctClients)
			if ratio >= 0.30 {
				ids = append(ids, ClientFavorite)
			}
		}
	}

	return ids
}

// fiveStarStreak reports whether the most recent 5 ratings are all 5.
func fiveStarStreak(newestFirst []int) bool {
	if len(newestFirst) < 5 {
		return false
	}
	for _, r := range newestFirst[:5] {
		if r != 5 {
			return false
		}
	}
	return true
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			return false
		}
	}
	return true
}
