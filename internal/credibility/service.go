// Package credibility orchestrates scoring, badge lifecycle, and event
// triggers over the store.
package credibility

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/axservices/credibility-engine/internal/badge"
	"github.com/axservices/credibility-engine/internal/cache"
	"github.com/axservices/credibility-engine/internal/config"
	"github.com/axservices/credibility-engine/internal/model"
	"github.com/axservices/credibility-engine/internal/resilience"
	"github.com/axservices/credibility-engine/internal/scorer"
	"github.com/axservices/credibility-engine/internal/store"
)

// ErrEventIgnored marks an event whose preconditions were not met or that
// was already processed. Callers treat it as a successful no-op.
var ErrEventIgnored = eris.New("credibility: event ignored")

// errStaleSnapshot aborts an in-tx rerun whose pre-read scoring inputs may
// no longer match the re-read rows. It is never returned to callers: the
// outer retry catches it, re-reads the inputs, and tries again.
var errStaleSnapshot = eris.New("credibility: stale snapshot")

// snapshotPolicy retries optimistic conflicts and stale-snapshot aborts,
// re-running the whole closure so every attempt reads fresh inputs.
func snapshotPolicy(op string) resilience.Policy {
	policy := resilience.TxPolicy()
	policy.ShouldRetry = func(err error) bool {
		return resilience.IsConflict(err) || eris.Is(err, errStaleSnapshot)
	}
	policy.OnRetry = resilience.RetryLogger(op)
	return policy
}

// Service wires the pure scoring and lifecycle logic to storage and the
// score cache. All clock reads go through now so tests can pin time.
type Service struct {
	store   store.Store
	catalog *badge.Catalog
	cache   *cache.ScoreCache
	cfg     config.CredibilityConfig
	now     func() time.Time
}

// New builds a Service. cache may be nil.
func New(st store.Store, cat *badge.Catalog, sc *cache.ScoreCache, cfg config.CredibilityConfig) *Service {
	return &Service{
		store:   st,
		catalog: cat,
		cache:   sc,
		cfg:     cfg,
		now:     time.Now,
	}
}

// WithClock overrides the service clock. Used in tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Catalog exposes the badge catalog for read-only lookups.
func (s *Service) Catalog() *badge.Catalog { return s.catalog }

// scoreWithBadges computes the provider's score against the given badge id
// set as of now.
func (s *Service) scoreWithBadges(p *model.Provider, badgeIDs []string, now time.Time) int {
	f := scorer.ExtractFactors(p, s.catalog.Resolve(badgeIDs), now)
	return scorer.ComputeScore(f, s.cfg)
}

// activeBadgeIDs filters the award ledger down to badge ids with a live
// award as of now.
func activeBadgeIDs(awards []model.BadgeAward, now time.Time) []string {
	ids := make([]string, 0, len(awards))
	for i := range awards {
		a := &awards[i]
		if a.Status == model.AwardActive && !a.Expired(now) {
			ids = append(ids, a.BadgeID)
		}
	}
	return ids
}

// Score computes the provider's current credibility score without
// persisting anything.
func (s *Service) Score(ctx context.Context, providerID string) (int, error) {
	p, err := s.store.GetProvider(ctx, providerID)
	if err != nil {
		return 0, err
	}
	awards, err := s.store.ActiveAwards(ctx, providerID)
	if err != nil {
		return 0, err
	}
	now := s.now()
	return s.scoreWithBadges(p, activeBadgeIDs(awards, now), now), nil
}

// ScoreOf computes the current score for an already-loaded provider
// snapshot, reading only its award ledger.
func (s *Service) ScoreOf(ctx context.Context, p *model.Provider) (int, error) {
	awards, err := s.store.ActiveAwards(ctx, p.ID)
	if err != nil {
		return 0, err
	}
	now := s.now()
	return s.scoreWithBadges(p, activeBadgeIDs(awards, now), now), nil
}

// RecomputeScore recomputes and persists the provider's score from current
// factors, leaving the badge set untouched.
func (s *Service) RecomputeScore(ctx context.Context, providerID string) (*model.Provider, error) {
	now := s.now()

	p, err := resilience.DoVal(ctx, snapshotPolicy("recompute score"), func(ctx context.Context) (*model.Provider, error) {
		awards, err := s.store.ActiveAwards(ctx, providerID)
		if err != nil {
			return nil, err
		}
		ids := activeBadgeIDs(awards, now)

		fresh := true
		return s.store.UpdateProviderTx(ctx, providerID, func(p *model.Provider) error {
			if !fresh {
				return errStaleSnapshot
			}
			fresh = false
			p.CredibilityScore = s.scoreWithBadges(p, ids, now)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.cache.SetScore(ctx, p.ID, p.CredibilityScore)
	return p, nil
}

// BadgePlan is the evaluated transition for one provider: the lifecycle
// decision, the mutation batch that realizes it, and the score implied by
// the resulting badge set.
type BadgePlan struct {
	Decision  badge.Decision
	Mutations []store.Mutation
	Score     int
}

// PlanBadges evaluates the badge lifecycle for a provider snapshot and
// builds the mutations that realize the decision: one expiry per lapsed
// award, one insert per grant, and a badge-set update carrying the
// recomputed score. An unchanged decision yields no mutations.
func (s *Service) PlanBadges(ctx context.Context, p *model.Provider, scope badge.Scope) (BadgePlan, error) {
	now := s.now()

	awards, err := s.store.ActiveAwards(ctx, p.ID)
	if err != nil {
		return BadgePlan{}, err
	}
	activity, err := s.loadActivity(ctx, p.ID, now)
	if err != nil {
		return BadgePlan{}, err
	}

	d := s.catalog.Evaluate(badge.EvalInput{
		Now:          now,
		Provider:     p,
		ActiveAwards: awards,
		Activity:     activity,
		Scope:        scope,
	})
	plan := BadgePlan{Decision: d, Score: s.scoreWithBadges(p, d.BadgeIDs, now)}
	if !d.HasChanges {
		return plan, nil
	}

	expired := make(map[string]bool, len(d.Expired))
	for _, id := range d.Expired {
		expired[id] = true
	}
	for i := range awards {
		if expired[awards[i].BadgeID] {
			plan.Mutations = append(plan.Mutations, store.ExpireAward{AwardID: awards[i].ID})
		}
	}
	for _, id := range d.Granted {
		plan.Mutations = append(plan.Mutations, store.InsertAward{Award: s.catalog.NewAward(p.ID, id, now)})
	}

	plan.Mutations = append(plan.Mutations, store.UpdateBadgeSet{
		ProviderID: p.ID,
		BadgeIDs:   d.BadgeIDs,
		Score:      plan.Score,
	})
	return plan, nil
}

// AssignBadges runs one badge lifecycle pass for the provider and commits
// the resulting mutations atomically. Concurrent passes over the same
// provider serialize on the one-active-award-per-badge constraint: the
// loser replans against the winner's state and lands as a no-op. With
// force set, the badge-set update commits even when nothing changed.
func (s *Service) AssignBadges(ctx context.Context, providerID string, scope badge.Scope, force bool) (badge.Decision, error) {
	policy := resilience.TxPolicy()
	policy.ShouldRetry = func(err error) bool {
		return resilience.IsConflict(err) || resilience.IsUniqueViolation(err)
	}
	policy.OnRetry = resilience.RetryLogger("assign badges")

	return resilience.DoVal(ctx, policy, func(ctx context.Context) (badge.Decision, error) {
		p, err := s.store.GetProvider(ctx, providerID)
		if err != nil {
			return badge.Decision{}, err
		}

		plan, err := s.PlanBadges(ctx, p, scope)
		if err != nil {
			return badge.Decision{}, err
		}

		muts := plan.Mutations
		if len(muts) == 0 {
			if !force {
				return plan.Decision, nil
			}
			muts = []store.Mutation{store.UpdateBadgeSet{
				ProviderID: p.ID,
				BadgeIDs:   plan.Decision.BadgeIDs,
				Score:      plan.Score,
			}}
		}

		if err := s.store.Apply(ctx, muts); err != nil {
			return badge.Decision{}, err
		}

		s.cache.SetScore(ctx, p.ID, plan.Score)

		if plan.Decision.HasChanges {
			zap.L().Info("badge lifecycle applied",
				zap.String("provider_id", p.ID),
				zap.Strings("expired", plan.Decision.Expired),
				zap.Strings("granted", plan.Decision.Granted),
				zap.Int("score", plan.Score),
			)
		}
		return plan.Decision, nil
	})
}

// IngestBookingCompleted upserts the booking from an event payload and runs
// the booking-completed trigger. The stored credit flag survives replays so
// a redelivered event cannot double count.
func (s *Service) IngestBookingCompleted(ctx context.Context, b *model.Booking) (*model.Provider, badge.Decision, error) {
	existing, err := s.store.GetBooking(ctx, b.ID)
	switch {
	case err == nil:
		b.CreditAwarded = existing.CreditAwarded
	case eris.Is(err, store.ErrNotFound):
	default:
		return nil, badge.Decision{}, err
	}

	if b.Status == model.BookingCompleted && b.CompletedAt == nil {
		now := s.now()
		b.CompletedAt = &now
	}
	if err := s.store.PutBooking(ctx, b); err != nil {
		return nil, badge.Decision{}, err
	}

	return s.HandleBookingCompleted(ctx, b.ID)
}

// HandleBookingCompleted runs the booking-completed trigger: one credit by
// provenance, the completed-booking stat bump, a score recompute, then a
// booking-scoped badge pass. A booking that already awarded its credit, or
// that is unpaid, refunded, or not completed, returns ErrEventIgnored.
func (s *Service) HandleBookingCompleted(ctx context.Context, bookingID string) (*model.Provider, badge.Decision, error) {
	now := s.now()

	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, badge.Decision{}, err
	}
	if err := bookingEligible(b); err != nil {
		return nil, badge.Decision{}, err
	}

	p, err := resilience.DoVal(ctx, snapshotPolicy("credit booking"), func(ctx context.Context) (*model.Provider, error) {
		// Snapshot the inputs the in-tx mutation needs, re-read on every
		// attempt. ActiveAwards feeds the score; the 90-day booking window
		// feeds distinctClients90d.
		awards, err := s.store.ActiveAwards(ctx, b.ProviderID)
		if err != nil {
			return nil, err
		}
		distinct, err := s.distinctClients(ctx, b.ProviderID, now)
		if err != nil {
			return nil, err
		}
		badgeIDs := activeBadgeIDs(awards, now)

		fresh := true
		return s.store.CreditBooking(ctx, bookingID, func(b *model.Booking, p *model.Provider) error {
			// A conflict rerun would score against snapshots that may no
			// longer match the re-read rows; abort to the outer retry.
			if !fresh {
				return errStaleSnapshot
			}
			fresh = false

			// fn reruns against re-read rows, so recheck the guard in-tx.
			if err := bookingEligible(b); err != nil {
				return err
			}

			b.CreditAwarded = true
			p.Stats.CompletedBookings++
			if b.CompletedAt != nil {
				p.Stats.LastCompletedAt = b.CompletedAt
			} else {
				p.Stats.LastCompletedAt = &now
			}
			if b.IsByo {
				p.Counts.AXVerifiedCredits++
			} else {
				p.Counts.ClientConfirmedCredits++
			}
			p.Stats.DistinctClients90d = distinct
			p.CredibilityScore = s.scoreWithBadges(p, badgeIDs, now)
			return nil
		})
	})
	if err != nil {
		return nil, badge.Decision{}, err
	}

	s.cache.SetScore(ctx, p.ID, p.CredibilityScore)
	zap.L().Info("booking credited",
		zap.String("booking_id", bookingID),
		zap.String("provider_id", p.ID),
		zap.Bool("byo", b.IsByo),
		zap.Int("score", p.CredibilityScore),
	)

	d, err := s.AssignBadges(ctx, p.ID, badge.ScopeBooking|badge.ScopeDynamic, false)
	if err != nil {
		return nil, badge.Decision{}, eris.Wrap(err, "credibility: booking badge pass")
	}
	if d.HasChanges {
		p, err = s.store.GetProvider(ctx, p.ID)
		if err != nil {
			return nil, badge.Decision{}, err
		}
	}
	return p, d, nil
}

// bookingEligible checks the booking-completed preconditions.
func bookingEligible(b *model.Booking) error {
	switch {
	case b.Status != model.BookingCompleted:
		return eris.Wrapf(ErrEventIgnored, "booking %s not completed", b.ID)
	case !b.IsPaid:
		return eris.Wrapf(ErrEventIgnored, "booking %s unpaid", b.ID)
	case b.RefundedAt != nil:
		return eris.Wrapf(ErrEventIgnored, "booking %s refunded", b.ID)
	case b.CreditAwarded:
		return eris.Wrapf(ErrEventIgnored, "booking %s already credited", b.ID)
	}
	return nil
}

// IngestReviewCreated stores the review from an event payload and runs the
// review-created trigger. A review id already on record means the event was
// delivered before, so the replay is ignored.
func (s *Service) IngestReviewCreated(ctx context.Context, r *model.Review) (*model.Provider, badge.Decision, error) {
	_, err := s.store.GetReview(ctx, r.ID)
	switch {
	case err == nil:
		return nil, badge.Decision{}, eris.Wrapf(ErrEventIgnored, "review %s already processed", r.ID)
	case eris.Is(err, store.ErrNotFound):
	default:
		return nil, badge.Decision{}, err
	}

	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	if err := s.store.PutReview(ctx, r); err != nil {
		return nil, badge.Decision{}, err
	}

	return s.HandleReviewCreated(ctx, r.ID)
}

// HandleReviewCreated runs the review-created trigger: positive reviews
// (rating >= 4, visible, approved, booking completed) bump the tally and
// the score, then a review-scoped badge pass runs. Anything else returns
// ErrEventIgnored.
func (s *Service) HandleReviewCreated(ctx context.Context, reviewID string) (*model.Provider, badge.Decision, error) {
	now := s.now()

	r, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, badge.Decision{}, err
	}
	switch {
	case r.Rating < 4:
		return nil, badge.Decision{}, eris.Wrapf(ErrEventIgnored, "review %s rating %d below threshold", r.ID, r.Rating)
	case !r.Visible:
		return nil, badge.Decision{}, eris.Wrapf(ErrEventIgnored, "review %s not visible", r.ID)
	case r.Status != model.ReviewApproved:
		return nil, badge.Decision{}, eris.Wrapf(ErrEventIgnored, "review %s not approved", r.ID)
	}

	b, err := s.store.GetBooking(ctx, r.BookingID)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			return nil, badge.Decision{}, eris.Wrapf(ErrEventIgnored, "review %s references unknown booking %s", r.ID, r.BookingID)
		}
		return nil, badge.Decision{}, err
	}
	if b.Status != model.BookingCompleted {
		return nil, badge.Decision{}, eris.Wrapf(ErrEventIgnored, "review %s booking not completed", r.ID)
	}

	p, err := resilience.DoVal(ctx, snapshotPolicy("count review"), func(ctx context.Context) (*model.Provider, error) {
		awards, err := s.store.ActiveAwards(ctx, r.ProviderID)
		if err != nil {
			return nil, err
		}
		badgeIDs := activeBadgeIDs(awards, now)

		fresh := true
		return s.store.UpdateProviderTx(ctx, r.ProviderID, func(p *model.Provider) error {
			if !fresh {
				return errStaleSnapshot
			}
			fresh = false
			p.Stats.PositiveReviewCount++
			p.CredibilityScore = s.scoreWithBadges(p, badgeIDs, now)
			return nil
		})
	})
	if err != nil {
		return nil, badge.Decision{}, err
	}

	s.cache.SetScore(ctx, p.ID, p.CredibilityScore)
	zap.L().Info("positive review counted",
		zap.String("review_id", r.ID),
		zap.String("provider_id", p.ID),
		zap.Int("rating", r.Rating),
		zap.Int("score", p.CredibilityScore),
	)

	d, err := s.AssignBadges(ctx, p.ID, badge.ScopeReview, false)
	if err != nil {
		return nil, badge.Decision{}, eris.Wrap(err, "credibility: review badge pass")
	}
	if d.HasChanges {
		p, err = s.store.GetProvider(ctx, p.ID)
		if err != nil {
			return nil, badge.Decision{}, err
		}
	}
	return p, d, nil
}

// distinctClients counts distinct clients with a completed booking in the
// trailing 90 days.
func (s *Service) distinctClients(ctx context.Context, providerID string, now time.Time) (int, error) {
	bookings, err := s.store.CompletedBookingsSince(ctx, providerID, now.AddDate(0, 0, -90))
	if err != nil {
		return 0, err
	}
	clients := make(map[string]bool, len(bookings))
	for i := range bookings {
		clients[bookings[i].ClientID] = true
	}
	return len(clients), nil
}

// loadActivity builds the recent-activity snapshot for a lifecycle
// evaluation from the trailing 90 days of bookings and reviews.
func (s *Service) loadActivity(ctx context.Context, providerID string, now time.Time) (badge.Activity, error) {
	var act badge.Activity

	bookings, err := s.store.CompletedBookingsSince(ctx, providerID, now.AddDate(0, 0, -90))
	if err != nil {
		return act, err
	}
	cutoff7 := now.AddDate(0, 0, -7)
	cutoff30 := now.AddDate(0, 0, -30)
	perClient := make(map[string]int, len(bookings))
	for i := range bookings {
		b := &bookings[i]
		if b.CompletedAt == nil {
			continue
		}
		if !b.CompletedAt.Before(cutoff7) {
			act.CompletedLast7d++
		}
		if !b.CompletedAt.Before(cutoff30) {
			act.CompletedLast30d++
		}
		perClient[b.ClientID]++
	}
	act.DistinctClients = len(perClient)
	for _, n := range perClient {
		if n >= 2 {
			act.RepeatClients++
		}
	}

	reviews, err := s.store.RecentReviews(ctx, providerID, now.AddDate(0, 0, -90), 25)
	if err != nil {
		return act, err
	}
	act.RecentRatings = make([]int, 0, len(reviews))
	for i := range reviews {
		act.RecentRatings = append(act.RecentRatings, reviews[i].Rating)
	}

	return act, nil
}
