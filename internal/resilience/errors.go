package resilience

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes that signal a transaction lost an
// optimistic-concurrency race and is safe to rerun.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// ConflictError marks an error as a retryable storage conflict.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string { return e.Err.Error() }
func (e *ConflictError) Unwrap() error { return e.Err }

// NewConflictError wraps an error as a retryable conflict.
func NewConflictError(err error) *ConflictError {
	return &ConflictError{Err: err}
}

// IsConflict reports whether the error is a transient storage conflict:
// an explicit ConflictError, a Postgres serialization failure or deadlock,
// or an SQLite busy/locked error. Such transactions are safe to re-read,
// recompute, and rewrite.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}

	var ce *ConflictError
	if errors.As(err, &ce) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}

	// modernc.org/sqlite surfaces lock contention as SQLITE_BUSY /
	// SQLITE_LOCKED in the message.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "sqlite_busy")
}

// IsUniqueViolation reports whether the error is a unique-constraint
// violation. Callers that can replan against fresh state treat it like a
// conflict and retry.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint")
}
