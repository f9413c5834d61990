package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/axservices/credibility-engine/internal/model"
	"github.com/axservices/credibility-engine/internal/resilience"
)

// PgxPool is the subset of pgxpool.Pool the store uses. pgxmock satisfies
// it for tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns, minConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	if maxConns > 0 {
		pgxCfg.MaxConns = maxConns
	}
	if minConns > 0 {
		pgxCfg.MinConns = minConns
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool PgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS providers (
	id                      TEXT PRIMARY KEY,
	display_name            TEXT NOT NULL DEFAULT '',
	tier                    TEXT NOT NULL DEFAULT 'standard',
	completed_bookings      INTEGER NOT NULL DEFAULT 0,
	positive_review_count   INTEGER NOT NULL DEFAULT 0,
	response_rate           DOUBLE PRECISION NOT NULL DEFAULT 0,
	avg_response_time_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_completed_at       TIMESTAMPTZ,
	distinct_clients_90d    INTEGER NOT NULL DEFAULT 0,
	ax_verified_credits     INTEGER NOT NULL DEFAULT 0,
	client_confirmed_credits INTEGER NOT NULL DEFAULT 0,
	self_reported_credits   INTEGER NOT NULL DEFAULT 0,
	badge_ids               JSONB NOT NULL DEFAULT '[]',
	credibility_score       INTEGER NOT NULL DEFAULT 0,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS badge_awards (
	id          TEXT PRIMARY KEY,
	provider_id TEXT NOT NULL REFERENCES providers(id),
	badge_id    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'active',
	assigned_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at  TIMESTAMPTZ,
	metadata    JSONB
);

CREATE INDEX IF NOT EXISTS idx_badge_awards_provider_status ON badge_awards(provider_id, status);
CREATE INDEX IF NOT EXISTS idx_badge_awards_status_expires ON badge_awards(status, expires_at);
CREATE UNIQUE INDEX IF NOT EXISTS uq_badge_awards_active ON badge_awards(provider_id, badge_id) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS bookings (
	id             TEXT PRIMARY KEY,
	provider_id    TEXT NOT NULL,
	client_id      TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	is_paid        BOOLEAN NOT NULL DEFAULT false,
	is_byo         BOOLEAN NOT NULL DEFAULT false,
	credit_awarded BOOLEAN NOT NULL DEFAULT false,
	completed_at   TIMESTAMPTZ,
	refunded_at    TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_bookings_provider_completed ON bookings(provider_id, status, completed_at);

CREATE TABLE IF NOT EXISTS reviews (
	id          TEXT PRIMARY KEY,
	booking_id  TEXT NOT NULL,
	provider_id TEXT NOT NULL,
	client_id   TEXT NOT NULL,
	rating      INTEGER NOT NULL,
	visible     BOOLEAN NOT NULL DEFAULT false,
	status      TEXT NOT NULL DEFAULT 'pending',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reviews_provider_visible ON reviews(provider_id, visible, created_at DESC);

CREATE TABLE IF NOT EXISTS job_runs (
	id          TEXT PRIMARY KEY,
	job         TEXT NOT NULL,
	status      TEXT NOT NULL,
	pages       INTEGER NOT NULL DEFAULT 0,
	processed   INTEGER NOT NULL DEFAULT 0,
	expired     INTEGER NOT NULL DEFAULT 0,
	granted     INTEGER NOT NULL DEFAULT 0,
	errors      INTEGER NOT NULL DEFAULT 0,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_job_runs_started ON job_runs(job, started_at DESC);
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const providerColumns = `id, display_name, tier, completed_bookings, positive_review_count,
	response_rate, avg_response_time_hours, last_completed_at, distinct_clients_90d,
	ax_verified_credits, client_confirmed_credits, self_reported_credits,
	badge_ids, credibility_score, created_at, updated_at`

func scanProvider(row pgx.Row) (*model.Provider, error) {
	var p model.Provider
	var badgeIDs []byte
	err := row.Scan(
		&p.ID, &p.DisplayName, &p.Tier,
		&p.Stats.CompletedBookings, &p.Stats.PositiveReviewCount,
		&p.Stats.ResponseRate, &p.Stats.AvgResponseTimeHours,
		&p.Stats.LastCompletedAt, &p.Stats.DistinctClients90d,
		&p.Counts.AXVerifiedCredits, &p.Counts.ClientConfirmedCredits,
		&p.Counts.SelfReportedCredits,
		&badgeIDs, &p.CredibilityScore, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(badgeIDs) > 0 {
		if err := json.Unmarshal(badgeIDs, &p.BadgeIDs); err != nil {
			return nil, eris.Wrap(err, "postgres: decode badge_ids")
		}
	}
	return &p, nil
}

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getProvider(ctx context.Context, q pgQuerier, id string, forUpdate bool) (*model.Provider, error) {
	sql := `SELECT ` + providerColumns + ` FROM providers WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	p, err := scanProvider(q.QueryRow(ctx, sql, id))
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "provider %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get provider %s", id)
	}
	return p, nil
}

func putProvider(ctx context.Context, q pgQuerier, p *model.Provider) error {
	badgeIDs, err := json.Marshal(badgeSlice(p.BadgeIDs))
	if err != nil {
		return eris.Wrap(err, "postgres: encode badge_ids")
	}
	_, err = q.Exec(ctx, `
		INSERT INTO providers (`+providerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			tier = EXCLUDED.tier,
			completed_bookings = EXCLUDED.completed_bookings,
			positive_review_count = EXCLUDED.positive_review_count,
			response_rate = EXCLUDED.response_rate,
			avg_response_time_hours = EXCLUDED.avg_response_time_hours,
			last_completed_at = EXCLUDED.last_completed_at,
			distinct_clients_90d = EXCLUDED.distinct_clients_90d,
			ax_verified_credits = EXCLUDED.ax_verified_credits,
			client_confirmed_credits = EXCLUDED.client_confirmed_credits,
			self_reported_credits = EXCLUDED.self_reported_credits,
			badge_ids = EXCLUDED.badge_ids,
			credibility_score = EXCLUDED.credibility_score,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.DisplayName, p.Tier,
		p.Stats.CompletedBookings, p.Stats.PositiveReviewCount,
		p.Stats.ResponseRate, p.Stats.AvgResponseTimeHours,
		p.Stats.LastCompletedAt, p.Stats.DistinctClients90d,
		p.Counts.AXVerifiedCredits, p.Counts.ClientConfirmedCredits,
		p.Counts.SelfReportedCredits,
		badgeIDs, p.CredibilityScore, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: put provider %s", p.ID)
	}
	return nil
}

// badgeSlice normalizes nil to an empty slice so badge_ids round-trips as
// a JSON array.
func badgeSlice(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// GetProvider returns a provider by id.
func (s *PostgresStore) GetProvider(ctx context.Context, id string) (*model.Provider, error) {
	return getProvider(ctx, s.pool, id, false)
}

// PutProvider upserts a provider record.
func (s *PostgresStore) PutProvider(ctx context.Context, p *model.Provider) error {
	return putProvider(ctx, s.pool, p)
}

// ProviderPage returns up to limit providers with id > afterID, ordered by
// id. The id ordering is the stable cursor for batch jobs.
func (s *PostgresStore) ProviderPage(ctx context.Context, afterID string, limit int) ([]model.Provider, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+providerColumns+` FROM providers
		WHERE id > $1 ORDER BY id LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: provider page")
	}
	defer rows.Close()

	var out []model.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan provider page")
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate provider page")
	}
	return out, nil
}

// UpdateProviderTx atomically reads, mutates, and rewrites a provider.
// Conflicting concurrent writers are resolved by re-running the whole
// read-modify-write.
func (s *PostgresStore) UpdateProviderTx(ctx context.Context, id string, fn func(p *model.Provider) error) (*model.Provider, error) {
	policy := resilience.TxPolicy()
	policy.OnRetry = resilience.RetryLogger("update provider")

	return resilience.DoVal(ctx, policy, func(ctx context.Context) (*model.Provider, error) {
		tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
		if err != nil {
			return nil, eris.Wrap(err, "postgres: begin tx")
		}
		defer tx.Rollback(ctx)

		p, err := getProvider(ctx, tx, id, true)
		if err != nil {
			return nil, err
		}
		if err := fn(p); err != nil {
			return nil, err
		}
		p.UpdatedAt = time.Now().UTC()
		if err := putProvider(ctx, tx, p); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, eris.Wrap(err, "postgres: commit provider update")
		}
		return p, nil
	})
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID, &b.ProviderID, &b.ClientID, &b.Status,
		&b.IsPaid, &b.IsByo, &b.CreditAwarded,
		&b.CompletedAt, &b.RefundedAt, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const bookingColumns = `id, provider_id, client_id, status, is_paid, is_byo,
	credit_awarded, completed_at, refunded_at, created_at`

// GetBooking returns a booking by id.
func (s *PostgresStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanBooking(s.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "booking %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get booking %s", id)
	}
	return b, nil
}

// PutBooking upserts a booking record.
func (s *PostgresStore) PutBooking(ctx context.Context, b *model.Booking) error {
	return putBooking(ctx, s.pool, b)
}

func putBooking(ctx context.Context, q pgQuerier, b *model.Booking) error {
	_, err := q.Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			is_paid = EXCLUDED.is_paid,
			is_byo = EXCLUDED.is_byo,
			credit_awarded = EXCLUDED.credit_awarded,
			completed_at = EXCLUDED.completed_at,
			refunded_at = EXCLUDED.refunded_at`,
		b.ID, b.ProviderID, b.ClientID, b.Status,
		b.IsPaid, b.IsByo, b.CreditAwarded,
		b.CompletedAt, b.RefundedAt, b.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: put booking %s", b.ID)
	}
	return nil
}

// CompletedBookingsSince returns the provider's completed bookings with
// completed_at >= since.
func (s *PostgresStore) CompletedBookingsSince(ctx context.Context, providerID string, since time.Time) ([]model.Booking, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE provider_id = $1 AND status = 'completed' AND completed_at >= $2
		ORDER BY completed_at DESC`, providerID, since)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: completed bookings")
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan booking")
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate bookings")
	}
	return out, nil
}

// CreditBooking atomically reads the booking and its provider, applies fn,
// and persists both, so the per-booking idempotency flag and the provider
// stat mutation commit together.
func (s *PostgresStore) CreditBooking(ctx context.Context, bookingID string, fn func(b *model.Booking, p *model.Provider) error) (*model.Provider, error) {
	policy := resilience.TxPolicy()
	policy.OnRetry = resilience.RetryLogger("credit booking")

	return resilience.DoVal(ctx, policy, func(ctx context.Context) (*model.Provider, error) {
		tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
		if err != nil {
			return nil, eris.Wrap(err, "postgres: begin tx")
		}
		defer tx.Rollback(ctx)

		b, err := scanBooking(tx.QueryRow(ctx,
			`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, bookingID))
		if err != nil {
			if eris.Is(err, pgx.ErrNoRows) {
				return nil, eris.Wrapf(ErrNotFound, "booking %s", bookingID)
			}
			return nil, eris.Wrapf(err, "postgres: get booking %s", bookingID)
		}

		p, err := getProvider(ctx, tx, b.ProviderID, true)
		if err != nil {
			return nil, err
		}

		if err := fn(b, p); err != nil {
			return nil, err
		}

		p.UpdatedAt = time.Now().UTC()
		if err := putBooking(ctx, tx, b); err != nil {
			return nil, err
		}
		if err := putProvider(ctx, tx, p); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, eris.Wrap(err, "postgres: commit booking credit")
		}
		return p, nil
	})
}

const reviewColumns = `id, booking_id, provider_id, client_id, rating, visible, status, created_at`

// GetReview returns a review by id.
func (s *PostgresStore) GetReview(ctx context.Context, id string) (*model.Review, error) {
	var r model.Review
	err := s.pool.QueryRow(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id).
		Scan(&r.ID, &r.BookingID, &r.ProviderID, &r.ClientID,
			&r.Rating, &r.Visible, &r.Status, &r.CreatedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "review %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get review %s", id)
	}
	return &r, nil
}

// PutReview upserts a review record.
func (s *PostgresStore) PutReview(ctx context.Context, r *model.Review) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reviews (`+reviewColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			rating = EXCLUDED.rating,
			visible = EXCLUDED.visible,
			status = EXCLUDED.status`,
		r.ID, r.BookingID, r.ProviderID, r.ClientID,
		r.Rating, r.Visible, r.Status, r.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: put review %s", r.ID)
	}
	return nil
}

// RecentReviews returns visible reviews newest first.
func (s *PostgresStore) RecentReviews(ctx context.Context, providerID string, since time.Time, limit int) ([]model.Review, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+reviewColumns+` FROM reviews
		WHERE provider_id = $1 AND visible = true AND created_at >= $2
		ORDER BY created_at DESC LIMIT $3`, providerID, since, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: recent reviews")
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		var r model.Review
		if err := rows.Scan(&r.ID, &r.BookingID, &r.ProviderID, &r.ClientID,
			&r.Rating, &r.Visible, &r.Status, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan review")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate reviews")
	}
	return out, nil
}

const awardColumns = `id, provider_id, badge_id, status, assigned_at, expires_at, metadata`

// ActiveAwards returns the provider's active badge awards.
func (s *PostgresStore) ActiveAwards(ctx context.Context, providerID string) ([]model.BadgeAward, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+awardColumns+` FROM badge_awards
		WHERE provider_id = $1 AND status = 'active'
		ORDER BY assigned_at`, providerID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: active awards")
	}
	defer rows.Close()

	var out []model.BadgeAward
	for rows.Next() {
		var a model.BadgeAward
		var metadata []byte
		if err := rows.Scan(&a.ID, &a.ProviderID, &a.BadgeID, &a.Status,
			&a.AssignedAt, &a.ExpiresAt, &metadata); err != nil {
			return nil, eris.Wrap(err, "postgres: scan award")
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
				return nil, eris.Wrap(err, "postgres: decode award metadata")
			}
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate awards")
	}
	return out, nil
}

// Apply commits the mutations as one atomic batch.
func (s *PostgresStore) Apply(ctx context.Context, muts []Mutation) error {
	if err := ValidateBatch(muts); err != nil {
		return err
	}
	if len(muts) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin batch")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	for _, m := range muts {
		switch m := m.(type) {
		case UpdateScore:
			_, err = tx.Exec(ctx,
				`UPDATE providers SET credibility_score = $1, updated_at = $2 WHERE id = $3`,
				m.Score, now, m.ProviderID)
		case UpdateBadgeSet:
			var badgeIDs []byte
			badgeIDs, err = json.Marshal(badgeSlice(m.BadgeIDs))
			if err == nil {
				_, err = tx.Exec(ctx,
					`UPDATE providers SET badge_ids = $1, credibility_score = $2, updated_at = $3 WHERE id = $4`,
					badgeIDs, m.Score, now, m.ProviderID)
			}
		case InsertAward:
			var metadata []byte
			if m.Award.Metadata != nil {
				metadata, err = json.Marshal(m.Award.Metadata)
			}
			if err == nil {
				_, err = tx.Exec(ctx, `
					INSERT INTO badge_awards (`+awardColumns+`)
					VALUES ($1, $2, $3, $4, $5, $6, $7)
					ON CONFLICT (id) DO NOTHING`,
					m.Award.ID, m.Award.ProviderID, m.Award.BadgeID, m.Award.Status,
					m.Award.AssignedAt, m.Award.ExpiresAt, metadata)
			}
		case ExpireAward:
			_, err = tx.Exec(ctx,
				`UPDATE badge_awards SET status = 'expired' WHERE id = $1`,
				m.AwardID)
		default:
			err = eris.Errorf("postgres: unknown mutation type %T", m)
		}
		if err != nil {
			return eris.Wrap(err, "postgres: apply batch")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit batch")
	}
	return nil
}

// RecordJobRun persists a batch job summary.
func (s *PostgresStore) RecordJobRun(ctx context.Context, run *model.JobRun) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO job_runs (id, job, status, pages, processed, expired, granted, errors, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.Job, run.Status, run.Pages, run.Processed,
		run.Expired, run.Granted, run.Errors, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: record job run")
	}
	return nil
}

// RecentJobRuns returns job runs started at or after since, newest first.
func (s *PostgresStore) RecentJobRuns(ctx context.Context, since time.Time) ([]model.JobRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, job, status, pages, processed, expired, granted, errors, started_at, finished_at
		FROM job_runs WHERE started_at >= $1 ORDER BY started_at DESC`, since)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: recent job runs")
	}
	defer rows.Close()

	var out []model.JobRun
	for rows.Next() {
		var r model.JobRun
		if err := rows.Scan(&r.ID, &r.Job, &r.Status, &r.Pages, &r.Processed,
			&r.Expired, &r.Granted, &r.Errors, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan job run")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate job runs")
	}
	return out, nil
}
