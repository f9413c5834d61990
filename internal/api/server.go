// Package api exposes the credibility engine over HTTP: event webhooks,
// the interactive recompute/assign operations, and the admin job triggers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/axservices/credibility-engine/internal/batch"
	"github.com/axservices/credibility-engine/internal/cache"
	"github.com/axservices/credibility-engine/internal/config"
	"github.com/axservices/credibility-engine/internal/credibility"
	"github.com/axservices/credibility-engine/internal/monitoring"
	"github.com/axservices/credibility-engine/internal/store"
)

type role string

const (
	roleUser  role = "user"
	roleAdmin role = "admin"
)

type roleKey struct{}

// Server wires the service, store, and jobs behind the HTTP surface.
type Server struct {
	svc        *credibility.Service
	store      store.Store
	cache      *cache.ScoreCache
	sweeper    *batch.Sweeper
	recomputer *batch.Recomputer
	collector  *monitoring.Collector
	cfg        config.ServerConfig
}

// NewServer builds the HTTP server facade. cache may be nil.
func NewServer(
	svc *credibility.Service,
	st store.Store,
	sc *cache.ScoreCache,
	sweeper *batch.Sweeper,
	recomputer *batch.Recomputer,
	collector *monitoring.Collector,
	cfg config.ServerConfig,
) *Server {
	return &Server{
		svc:        svc,
		store:      st,
		cache:      sc,
		sweeper:    sweeper,
		recomputer: recomputer,
		collector:  collector,
		cfg:        cfg,
	}
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Post("/credibility/recompute", s.handleRecompute)
		r.Post("/badges/assign", s.handleAssignBadges)
		r.Post("/events/booking-completed", s.handleBookingCompleted)
		r.Post("/events/review-created", s.handleReviewCreated)
		r.Get("/providers/top", s.handleTopProviders)
		r.Get("/providers/{id}", s.handleGetProvider)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/jobs/badge-sweep", s.handleBadgeSweep)
			r.Post("/jobs/score-recompute", s.handleScoreRecompute)
			r.Get("/jobs/status", s.handleJobStatus)
		})
	})

	return r
}

// authenticate resolves the bearer token to a role. The admin token also
// satisfies user-level routes.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		var rl role
		switch {
		case token == "":
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		case s.cfg.AdminToken != "" && token == s.cfg.AdminToken:
			rl = roleAdmin
		case s.cfg.AuthToken != "" && token == s.cfg.AuthToken:
			rl = roleUser
		default:
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), roleKey{}, rl)))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAdmin(r) {
			writeError(w, http.StatusForbidden, "admin token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isAdmin(r *http.Request) bool {
	rl, _ := r.Context().Value(roleKey{}).(role)
	return rl == roleAdmin
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
