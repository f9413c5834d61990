package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/axservices/credibility-engine/internal/model"
	"github.com/axservices/credibility-engine/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite. Timestamps are
// stored as unix nanoseconds; badge sets and award metadata as JSON text.
// SQLite serializes writers, so the optimistic retry only ever sees
// busy/locked errors.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given DSN and configures WAL
// mode. A single connection keeps transaction semantics simple.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS providers (
	id                      TEXT PRIMARY KEY,
	display_name            TEXT NOT NULL DEFAULT '',
	tier                    TEXT NOT NULL DEFAULT 'standard',
	completed_bookings      INTEGER NOT NULL DEFAULT 0,
	positive_review_count   INTEGER NOT NULL DEFAULT 0,
	response_rate           REAL NOT NULL DEFAULT 0,
	avg_response_time_hours REAL NOT NULL DEFAULT 0,
	last_completed_at       INTEGER,
	distinct_clients_90d    INTEGER NOT NULL DEFAULT 0,
	ax_verified_credits     INTEGER NOT NULL DEFAULT 0,
	client_confirmed_credits INTEGER NOT NULL DEFAULT 0,
	self_reported_credits   INTEGER NOT NULL DEFAULT 0,
	badge_ids               TEXT NOT NULL DEFAULT '[]',
	credibility_score       INTEGER NOT NULL DEFAULT 0,
	created_at              INTEGER NOT NULL,
	updated_at              INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS badge_awards (
	id          TEXT PRIMARY KEY,
	provider_id TEXT NOT NULL,
	badge_id    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'active',
	assigned_at INTEGER NOT NULL,
	expires_at  INTEGER,
	metadata    TEXT
);

CREATE INDEX IF NOT EXISTS idx_badge_awards_provider_status ON badge_awards(provider_id, status);
CREATE UNIQUE INDEX IF NOT EXISTS uq_badge_awards_active ON badge_awards(provider_id, badge_id) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS bookings (
	id             TEXT PRIMARY KEY,
	provider_id    TEXT NOT NULL,
	client_id      TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	is_paid        INTEGER NOT NULL DEFAULT 0,
	is_byo         INTEGER NOT NULL DEFAULT 0,
	credit_awarded INTEGER NOT NULL DEFAULT 0,
	completed_at   INTEGER,
	refunded_at    INTEGER,
	created_at     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bookings_provider_completed ON bookings(provider_id, status, completed_at);

CREATE TABLE IF NOT EXISTS reviews (
	id          TEXT PRIMARY KEY,
	booking_id  TEXT NOT NULL,
	provider_id TEXT NOT NULL,
	client_id   TEXT NOT NULL,
	rating      INTEGER NOT NULL,
	visible     INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL DEFAULT 'pending',
	created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reviews_provider_visible ON reviews(provider_id, visible, created_at);

CREATE TABLE IF NOT EXISTS job_runs (
	id          TEXT PRIMARY KEY,
	job         TEXT NOT NULL,
	status      TEXT NOT NULL,
	pages       INTEGER NOT NULL DEFAULT 0,
	processed   INTEGER NOT NULL DEFAULT 0,
	expired     INTEGER NOT NULL DEFAULT 0,
	granted     INTEGER NOT NULL DEFAULT 0,
	errors      INTEGER NOT NULL DEFAULT 0,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ts converts a time to its stored unix-nanosecond form.
func ts(t time.Time) int64 { return t.UTC().UnixNano() }

func tsPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return ts(*t)
}

func fromTS(n int64) time.Time { return time.Unix(0, n).UTC() }

func fromTSPtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromTS(n.Int64)
	return &t
}

type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlRow interface {
	Scan(dest ...any) error
}

const sqliteProviderColumns = `id, display_name, tier, completed_bookings, positive_review_count,
	response_rate, avg_response_time_hours, last_completed_at, distinct_clients_90d,
	ax_verified_credits, client_confirmed_credits, self_reported_credits,
	badge_ids, credibility_score, created_at, updated_at`

func scanSQLiteProvider(row sqlRow) (*model.Provider, error) {
	var p model.Provider
	var badgeIDs string
	var lastCompleted sql.NullInt64
	var createdAt, updatedAt int64
	err := row.Scan(
		&p.ID, &p.DisplayName, &p.Tier,
		&p.Stats.CompletedBookings, &p.Stats.PositiveReviewCount,
		&p.Stats.ResponseRate, &p.Stats.AvgResponseTimeHours,
		&lastCompleted, &p.Stats.DistinctClients90d,
		&p.Counts.AXVerifiedCredits, &p.Counts.ClientConfirmedCredits,
		&p.Counts.SelfReportedCredits,
		&badgeIDs, &p.CredibilityScore, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Stats.LastCompletedAt = fromTSPtr(lastCompleted)
	p.CreatedAt = fromTS(createdAt)
	p.UpdatedAt = fromTS(updatedAt)
	if badgeIDs != "" {
		if err := json.Unmarshal([]byte(badgeIDs), &p.BadgeIDs); err != nil {
			return nil, eris.Wrap(err, "sqlite: decode badge_ids")
		}
	}
	return &p, nil
}

func getSQLiteProvider(ctx context.Context, q sqlQuerier, id string) (*model.Provider, error) {
	p, err := scanSQLiteProvider(q.QueryRowContext(ctx,
		`SELECT `+sqliteProviderColumns+` FROM providers WHERE id = ?`, id))
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "provider %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get provider %s", id)
	}
	return p, nil
}

func putSQLiteProvider(ctx context.Context, q sqlQuerier, p *model.Provider) error {
	badgeIDs, err := json.Marshal(badgeSlice(p.BadgeIDs))
	if err != nil {
		return eris.Wrap(err, "sqlite: encode badge_ids")
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO providers (`+sqliteProviderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			display_name = excluded.display_name,
			tier = excluded.tier,
			completed_bookings = excluded.completed_bookings,
			positive_review_count = excluded.positive_review_count,
			response_rate = excluded.response_rate,
			avg_response_time_hours = excluded.avg_response_time_hours,
			last_completed_at = excluded.last_completed_at,
			distinct_clients_90d = excluded.distinct_clients_90d,
			ax_verified_credits = excluded.ax_verified_credits,
			client_confirmed_credits = excluded.client_confirmed_credits,
			self_reported_credits = excluded.self_reported_credits,
			badge_ids = excluded.badge_ids,
			credibility_score = excluded.credibility_score,
			updated_at = excluded.updated_at`,
		p.ID, p.DisplayName, p.Tier,
		p.Stats.CompletedBookings, p.Stats.PositiveReviewCount,
		p.Stats.ResponseRate, p.Stats.AvgResponseTimeHours,
		tsPtr(p.Stats.LastCompletedAt), p.Stats.DistinctClients90d,
		p.Counts.AXVerifiedCredits, p.Counts.ClientConfirmedCredits,
		p.Counts.SelfReportedCredits,
		string(badgeIDs), p.CredibilityScore, ts(p.CreatedAt), ts(p.UpdatedAt),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: put provider %s", p.ID)
	}
	return nil
}

// GetProvider returns a provider by id.
func (s *SQLiteStore) GetProvider(ctx context.Context, id string) (*model.Provider, error) {
	return getSQLiteProvider(ctx, s.db, id)
}

// PutProvider upserts a provider record.
func (s *SQLiteStore) PutProvider(ctx context.Context, p *model.Provider) error {
	return putSQLiteProvider(ctx, s.db, p)
}

// ProviderPage returns up to limit providers with id > afterID, ordered by id.
func (s *SQLiteStore) ProviderPage(ctx context.Context, afterID string, limit int) ([]model.Provider, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteProviderColumns+` FROM providers
		WHERE id > ? ORDER BY id LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: provider page")
	}
	defer rows.Close()

	var out []model.Provider
	for rows.Next() {
		p, err := scanSQLiteProvider(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan provider page")
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate provider page")
	}
	return out, nil
}

// withTx runs fn inside a transaction, retrying on busy/locked errors.
func (s *SQLiteStore) withTx(ctx context.Context, operation string, fn func(tx *sql.Tx) error) error {
	policy := resilience.TxPolicy()
	policy.OnRetry = resilience.RetryLogger(operation)

	return resilience.Do(ctx, policy, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return eris.Wrap(err, "sqlite: begin tx")
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return eris.Wrap(err, "sqlite: commit")
		}
		return nil
	})
}

// UpdateProviderTx atomically reads, mutates, and rewrites a provider.
func (s *SQLiteStore) UpdateProviderTx(ctx context.Context, id string, fn func(p *model.Provider) error) (*model.Provider, error) {
	var out *model.Provider
	err := s.withTx(ctx, "update provider", func(tx *sql.Tx) error {
		p, err := getSQLiteProvider(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		p.UpdatedAt = time.Now().UTC()
		if err := putSQLiteProvider(ctx, tx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

const sqliteBookingColumns = `id, provider_id, client_id, status, is_paid, is_byo,
	credit_awarded, completed_at, refunded_at, created_at`

func scanSQLiteBooking(row sqlRow) (*model.Booking, error) {
	var b model.Booking
	var completedAt, refundedAt sql.NullInt64
	var createdAt int64
	err := row.Scan(
		&b.ID, &b.ProviderID, &b.ClientID, &b.Status,
		&b.IsPaid, &b.IsByo, &b.CreditAwarded,
		&completedAt, &refundedAt, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	b.CompletedAt = fromTSPtr(completedAt)
	b.RefundedAt = fromTSPtr(refundedAt)
	b.CreatedAt = fromTS(createdAt)
	return &b, nil
}

func putSQLiteBooking(ctx context.Context, q sqlQuerier, b *model.Booking) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO bookings (`+sqliteBookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			is_paid = excluded.is_paid,
			is_byo = excluded.is_byo,
			credit_awarded = excluded.credit_awarded,
			completed_at = excluded.completed_at,
			refunded_at = excluded.refunded_at`,
		b.ID, b.ProviderID, b.ClientID, b.Status,
		b.IsPaid, b.IsByo, b.CreditAwarded,
		tsPtr(b.CompletedAt), tsPtr(b.RefundedAt), ts(b.CreatedAt),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: put booking %s", b.ID)
	}
	return nil
}

// GetBooking returns a booking by id.
func (s *SQLiteStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanSQLiteBooking(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteBookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "booking %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get booking %s", id)
	}
	return b, nil
}

// PutBooking upserts a booking record.
func (s *SQLiteStore) PutBooking(ctx context.Context, b *model.Booking) error {
	return putSQLiteBooking(ctx, s.db, b)
}

// CompletedBookingsSince returns the provider's completed bookings with
// completed_at >= since.
func (s *SQLiteStore) CompletedBookingsSince(ctx context.Context, providerID string, since time.Time) ([]model.Booking, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteBookingColumns+` FROM bookings
		WHERE provider_id = ? AND status = 'completed' AND completed_at >= ?
		ORDER BY completed_at DESC`, providerID, ts(since))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: completed bookings")
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanSQLiteBooking(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan booking")
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate bookings")
	}
	return out, nil
}

// CreditBooking atomically reads the booking and its provider, applies fn,
// and persists both.
func (s *SQLiteStore) CreditBooking(ctx context.Context, bookingID string, fn func(b *model.Booking, p *model.Provider) error) (*model.Provider, error) {
	var out *model.Provider
	err := s.withTx(ctx, "credit booking", func(tx *sql.Tx) error {
		b, err := scanSQLiteBooking(tx.QueryRowContext(ctx,
			`SELECT `+sqliteBookingColumns+` FROM bookings WHERE id = ?`, bookingID))
		if err != nil {
			if eris.Is(err, sql.ErrNoRows) {
				return eris.Wrapf(ErrNotFound, "booking %s", bookingID)
			}
			return eris.Wrapf(err, "sqlite: get booking %s", bookingID)
		}

		p, err := getSQLiteProvider(ctx, tx, b.ProviderID)
		if err != nil {
			return err
		}

		if err := fn(b, p); err != nil {
			return err
		}

		p.UpdatedAt = time.Now().UTC()
		if err := putSQLiteBooking(ctx, tx, b); err != nil {
			return err
		}
		if err := putSQLiteProvider(ctx, tx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

const sqliteReviewColumns = `id, booking_id, provider_id, client_id, rating, visible, status, created_at`

// GetReview returns a review by id.
func (s *SQLiteStore) GetReview(ctx context.Context, id string) (*model.Review, error) {
	var r model.Review
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteReviewColumns+` FROM reviews WHERE id = ?`, id).
		Scan(&r.ID, &r.BookingID, &r.ProviderID, &r.ClientID,
			&r.Rating, &r.Visible, &r.Status, &createdAt)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "review %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get review %s", id)
	}
	r.CreatedAt = fromTS(createdAt)
	return &r, nil
}

// PutReview upserts a review record.
func (s *SQLiteStore) PutReview(ctx context.Context, r *model.Review) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (`+sqliteReviewColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			rating = excluded.rating,
			visible = excluded.visible,
			status = excluded.status`,
		r.ID, r.BookingID, r.ProviderID, r.ClientID,
		r.Rating, r.Visible, r.Status, ts(r.CreatedAt),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: put review %s", r.ID)
	}
	return nil
}

// RecentReviews returns visible reviews newest first.
func (s *SQLiteStore) RecentReviews(ctx context.Context, providerID string, since time.Time, limit int) ([]model.Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteReviewColumns+` FROM reviews
		WHERE provider_id = ? AND visible = 1 AND created_at >= ?
		ORDER BY created_at DESC LIMIT ?`, providerID, ts(since), limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent reviews")
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		var r model.Review
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.BookingID, &r.ProviderID, &r.ClientID,
			&r.Rating, &r.Visible, &r.Status, &createdAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan review")
		}
		r.CreatedAt = fromTS(createdAt)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate reviews")
	}
	return out, nil
}

// ActiveAwards returns the provider's active badge awards.
func (s *SQLiteStore) ActiveAwards(ctx context.Context, providerID string) ([]model.BadgeAward, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider_id, badge_id, status, assigned_at, expires_at, metadata
		FROM badge_awards
		WHERE provider_id = ? AND status = 'active'
		ORDER BY assigned_at`, providerID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: active awards")
	}
	defer rows.Close()

	var out []model.BadgeAward
	for rows.Next() {
		var a model.BadgeAward
		var assignedAt int64
		var expiresAt sql.NullInt64
		var metadata sql.NullString
		if err := rows.Scan(&a.ID, &a.ProviderID, &a.BadgeID, &a.Status,
			&assignedAt, &expiresAt, &metadata); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan award")
		}
		a.AssignedAt = fromTS(assignedAt)
		a.ExpiresAt = fromTSPtr(expiresAt)
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &a.Metadata); err != nil {
				return nil, eris.Wrap(err, "sqlite: decode award metadata")
			}
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate awards")
	}
	return out, nil
}

// Apply commits the mutations as one atomic batch.
func (s *SQLiteStore) Apply(ctx context.Context, muts []Mutation) error {
	if err := ValidateBatch(muts); err != nil {
		return err
	}
	if len(muts) == 0 {
		return nil
	}

	return s.withTx(ctx, "apply batch", func(tx *sql.Tx) error {
		now := ts(time.Now())
		for _, m := range muts {
			var err error
			switch m := m.(type) {
			case UpdateScore:
				_, err = tx.ExecContext(ctx,
					`UPDATE providers SET credibility_score = ?, updated_at = ? WHERE id = ?`,
					m.Score, now, m.ProviderID)
			case UpdateBadgeSet:
				var badgeIDs []byte
				badgeIDs, err = json.Marshal(badgeSlice(m.BadgeIDs))
				if err == nil {
					_, err = tx.ExecContext(ctx,
						`UPDATE providers SET badge_ids = ?, credibility_score = ?, updated_at = ? WHERE id = ?`,
						string(badgeIDs), m.Score, now, m.ProviderID)
				}
			case InsertAward:
				var metadata any
				if m.Award.Metadata != nil {
					var data []byte
					data, err = json.Marshal(m.Award.Metadata)
					metadata = string(data)
				}
				if err == nil {
					_, err = tx.ExecContext(ctx, `
						INSERT INTO badge_awards (id, provider_id, badge_id, status, assigned_at, expires_at, metadata)
						VALUES (?, ?, ?, ?, ?, ?, ?)
						ON CONFLICT (id) DO NOTHING`,
						m.Award.ID, m.Award.ProviderID, m.Award.BadgeID, m.Award.Status,
						ts(m.Award.AssignedAt), tsPtr(m.Award.ExpiresAt), metadata)
				}
			case ExpireAward:
				_, err = tx.ExecContext(ctx,
					`UPDATE badge_awards SET status = 'expired' WHERE id = ?`,
					m.AwardID)
			default:
				err = eris.Errorf("sqlite: unknown mutation type %T", m)
			}
			if err != nil {
				return eris.Wrap(err, "sqlite: apply batch")
			}
		}
		return nil
	})
}

// RecordJobRun persists a batch job summary.
func (s *SQLiteStore) RecordJobRun(ctx context.Context, run *model.JobRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_runs (id, job, status, pages, processed, expired, granted, errors, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Job, run.Status, run.Pages, run.Processed,
		run.Expired, run.Granted, run.Errors, ts(run.StartedAt), ts(run.FinishedAt),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: record job run")
	}
	return nil
}

// RecentJobRuns returns job runs started at or after since, newest first.
func (s *SQLiteStore) RecentJobRuns(ctx context.Context, since time.Time) ([]model.JobRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job, status, pages, processed, expired, granted, errors, started_at, finished_at
		FROM job_runs WHERE started_at >= ? ORDER BY started_at DESC`, ts(since))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent job runs")
	}
	defer rows.Close()

	var out []model.JobRun
	for rows.Next() {
		var r model.JobRun
		var startedAt, finishedAt int64
		if err := rows.Scan(&r.ID, &r.Job, &r.Status, &r.Pages, &r.Processed,
			&r.Expired, &r.Granted, &r.Errors, &startedAt, &finishedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job run")
		}
		r.StartedAt = fromTS(startedAt)
		r.FinishedAt = fromTS(finishedAt)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate job runs")
	}
	return out, nil
}
