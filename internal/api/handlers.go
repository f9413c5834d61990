package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/axservices/credibility-engine/internal/badge"
	"github.com/axservices/credibility-engine/internal/credibility"
	"github.com/axservices/credibility-engine/internal/model"
	"github.com/axservices/credibility-engine/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type recomputeRequest struct {
	UserID    string `json:"user_id"`
	BatchMode bool   `json:"batch_mode"`
}

// handleRecompute recomputes one provider's score, or in batch mode
// (admin only) recomputes the whole population synchronously.
func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	var req recomputeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.BatchMode {
		if !isAdmin(r) {
			writeError(w, http.StatusForbidden, "batch mode requires admin token")
			return
		}
		run, err := s.recomputer.Run(r.Context())
		if err != nil {
			s.internalError(w, "batch recompute", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{
			"processed": run.Processed,
			"errors":    run.Errors,
		})
		return
	}

	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	p, err := s.svc.RecomputeScore(r.Context(), req.UserID)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "provider not found")
			return
		}
		s.internalError(w, "recompute score", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"credibility_score": p.CredibilityScore})
}

type assignBadgesRequest struct {
	UserID string `json:"user_id"`
	Force  bool   `json:"force"`
}

// handleAssignBadges runs one full lifecycle pass for a provider. With
// force set the badge set and score are rewritten even when unchanged.
func (s *Server) handleAssignBadges(w http.ResponseWriter, r *http.Request) {
	var req assignBadgesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	d, err := s.svc.AssignBadges(r.Context(), req.UserID, badge.ScopeAll, req.Force)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "provider not found")
			return
		}
		s.internalError(w, "assign badges", err)
		return
	}

	p, err := s.store.GetProvider(r.Context(), req.UserID)
	if err != nil {
		s.internalError(w, "load provider", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"assigned_badges":       orEmpty(d.Granted),
		"expired_badges":        orEmpty(d.Expired),
		"new_credibility_score": p.CredibilityScore,
	})
}

// handleBookingCompleted ingests a booking-completed event. Events whose
// preconditions fail, or that were already processed, are acknowledged as
// ignored rather than rejected.
func (s *Server) handleBookingCompleted(w http.ResponseWriter, r *http.Request) {
	var b model.Booking
	if !decodeJSON(w, r, &b) {
		return
	}
	if b.ID == "" || b.ProviderID == "" {
		writeError(w, http.StatusBadRequest, "id and provider_id are required")
		return
	}
	if b.Status == "" {
		b.Status = model.BookingCompleted
	}

	p, d, err := s.svc.IngestBookingCompleted(r.Context(), &b)
	if err != nil {
		s.writeEventResult(w, "booking-completed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "processed",
		"credibility_score": p.CredibilityScore,
		"assigned_badges":   orEmpty(d.Granted),
		"expired_badges":    orEmpty(d.Expired),
	})
}

// handleReviewCreated ingests a review-created event.
func (s *Server) handleReviewCreated(w http.ResponseWriter, r *http.Request) {
	var rev model.Review
	if !decodeJSON(w, r, &rev) {
		return
	}
	if rev.ID == "" || rev.ProviderID == "" || rev.BookingID == "" {
		writeError(w, http.StatusBadRequest, "id, provider_id, and booking_id are required")
		return
	}

	p, d, err := s.svc.IngestReviewCreated(r.Context(), &rev)
	if err != nil {
		s.writeEventResult(w, "review-created", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "processed",
		"credibility_score": p.CredibilityScore,
		"assigned_badges":   orEmpty(d.Granted),
		"expired_badges":    orEmpty(d.Expired),
	})
}

// writeEventResult maps trigger errors to responses: skipped preconditions
// acknowledge as ignored, missing records are client errors, everything
// else is generic.
func (s *Server) writeEventResult(w http.ResponseWriter, event string, err error) {
	switch {
	case eris.Is(err, credibility.ErrEventIgnored):
		zap.L().Info("event ignored",
			zap.String("event", event),
			zap.String("reason", err.Error()),
		)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	case eris.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "referenced record not found")
	default:
		s.internalError(w, event, err)
	}
}

// handleGetProvider returns a provider with its badge definitions resolved.
func (s *Server) handleGetProvider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.store.GetProvider(r.Context(), id)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "provider not found")
			return
		}
		s.internalError(w, "get provider", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"provider": p,
		"badges":   s.svc.Catalog().Resolve(p.BadgeIDs),
	})
}

// handleTopProviders serves the leaderboard from the score cache.
func (s *Server) handleTopProviders(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "leaderboard unavailable")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be 1-100")
			return
		}
		limit = n
	}
	entries, err := s.cache.Top(r.Context(), limit)
	if err != nil {
		s.internalError(w, "leaderboard", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": entries})
}

// handleBadgeSweep runs the daily sweep synchronously.
func (s *Server) handleBadgeSweep(w http.ResponseWriter, r *http.Request) {
	run, err := s.sweeper.Run(r.Context())
	if err != nil {
		s.internalError(w, "badge sweep", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleScoreRecompute runs the weekly recompute synchronously.
func (s *Server) handleScoreRecompute(w http.ResponseWriter, r *http.Request) {
	run, err := s.recomputer.Run(r.Context())
	if err != nil {
		s.internalError(w, "score recompute", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleJobStatus reports job health over a lookback window.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	lookback := 48
	if v := r.URL.Query().Get("lookback_hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "lookback_hours must be a positive integer")
			return
		}
		lookback = n
	}
	snap, err := s.collector.Collect(r.Context(), lookback)
	if err != nil {
		s.internalError(w, "job status", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// internalError logs the cause and returns a generic failure category,
// never the storage error verbatim.
func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	zap.L().Error("request failed", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func orEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
