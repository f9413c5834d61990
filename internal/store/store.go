// Package store defines the persistence contract for the credibility
// engine and its Postgres and SQLite drivers.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/axservices/credibility-engine/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = eris.New("store: not found")

// MaxBatchSize is the hard cap on documents per batched write, mirroring
// the storage layer's write-batch limit.
const MaxBatchSize = 500

// ErrBatchTooLarge is returned when a mutation batch exceeds MaxBatchSize.
var ErrBatchTooLarge = eris.Errorf("store: mutation batch exceeds %d documents", MaxBatchSize)

// Mutation is one document write inside an atomic batch.
type Mutation interface {
	mutation()
}

// UpdateScore overwrites a provider's cached credibility score.
type UpdateScore struct {
	ProviderID string
	Score      int
}

// UpdateBadgeSet overwrites a provider's denormalized badge set together
// with the score recomputed from it. Always paired in the same batch with
// the award mutations that justify it.
type UpdateBadgeSet struct {
	ProviderID string
	BadgeIDs   []string
	Score      int
}

// InsertAward creates a new active badge award.
type InsertAward struct {
	Award model.BadgeAward
}

// ExpireAward flips an award's status to expired. Expiring an already
// expired award is a no-op.
type ExpireAward struct {
	AwardID string
}

func (UpdateScore) mutation()    {}
func (UpdateBadgeSet) mutation() {}
func (InsertAward) mutation()    {}
func (ExpireAward) mutation()    {}

// Store is the persistence contract. Point writes that read first
// (UpdateProviderTx, CreditBooking) run as transactional read-modify-write
// with optimistic retry; Apply commits a bounded mutation batch
// atomically.
type Store interface {
	// Providers
	GetProvider(ctx context.Context, id string) (*model.Provider, error)
	PutProvider(ctx context.Context, p *model.Provider) error
	// ProviderPage returns up to limit providers with id > afterID,
	// ordered by id. An empty afterID starts from the beginning.
	ProviderPage(ctx context.Context, afterID string, limit int) ([]model.Provider, error)
	// UpdateProviderTx atomically reads the provider, applies fn, and
	// persists the result. fn runs inside the transaction and may be
	// re-invoked on conflict retry.
	UpdateProviderTx(ctx context.Context, id string, fn func(p *model.Provider) error) (*model.Provider, error)

	// Bookings
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	PutBooking(ctx context.Context, b *model.Booking) error
	// CompletedBookingsSince returns completed bookings for the provider
	// with completed_at >= since.
	CompletedBookingsSince(ctx context.Context, providerID string, since time.Time) ([]model.Booking, error)
	// CreditBooking atomically reads the booking and its provider,
	// applies fn to both, and persists both. Used by the
	// booking-completed trigger so the idempotency flag and the stat
	// mutation land together.
	CreditBooking(ctx context.Context, bookingID string, fn func(b *model.Booking, p *model.Provider) error) (*model.Provider, error)

	// Reviews
	GetReview(ctx context.Context, id string) (*model.Review, error)
	PutReview(ctx context.Context, r *model.Review) error
	// RecentReviews returns visible reviews for the provider with
	// created_at >= since, newest first, up to limit.
	RecentReviews(ctx context.Context, providerID string, since time.Time, limit int) ([]model.Review, error)

	// Badge awards
	ActiveAwards(ctx context.Context, providerID string) ([]model.BadgeAward, error)

	// Apply commits the mutations as one atomic batch of at most
	// MaxBatchSize documents.
	Apply(ctx context.Context, muts []Mutation) error

	// Job observability
	RecordJobRun(ctx context.Context, run *model.JobRun) error
	RecentJobRuns(ctx context.Context, since time.Time) ([]model.JobRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// ValidateBatch checks a mutation batch against the write-batch limit.
func ValidateBatch(muts []Mutation) error {
	if len(muts) > MaxBatchSize {
		return ErrBatchTooLarge
	}
	return nil
}
