// Package apianalytics serves the derived analytics views over HTTP. Views
// are computed from the caller's current activities; only a default PMC
// request may be answered from the series the last recompute stored.
package apianalytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	shared "github.com/vitalsync/server/pkg"
	"github.com/vitalsync/server/pkg/analytics"
	"github.com/vitalsync/server/pkg/bootstrap"
	httputil "github.com/vitalsync/server/pkg/infrastructure/http"
	infrasentry "github.com/vitalsync/server/pkg/infrastructure/sentry"
	"github.com/vitalsync/server/pkg/types"
)

// AccountDeleter removes a sign-in account. *auth.Client satisfies it.
type AccountDeleter interface {
	DeleteUser(ctx context.Context, uid string) error
}

type Server struct {
	svc      *bootstrap.Service
	engine   *analytics.Engine
	verifier httputil.TokenVerifier
	accounts AccountDeleter
	metrics  *Metrics
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Server)

// WithClock replaces time.Now when resolving the default as-of date.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithAccounts sets the account store used by DELETE /v1/user. It
// defaults to the service's Firebase Auth client.
func WithAccounts(a AccountDeleter) Option {
	return func(s *Server) { s.accounts = a }
}

// NewServer wires the handlers. reg receives the service metrics and is
// exposed on /metrics.
func NewServer(svc *bootstrap.Service, verifier httputil.TokenVerifier, reg *prometheus.Registry, opts ...Option) *Server {
	s := &Server{
		svc:      svc,
		engine:   analytics.NewEngine(svc.Tables),
		verifier: verifier,
		metrics:  NewMetrics("vitalsync", "api_analytics", reg),
		gatherer: reg,
		logger:   bootstrap.NewLogger("api-analytics"),
		now:      time.Now,
	}
	if svc.Auth != nil {
		s.accounts = svc.Auth
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.recoverer)
	r.Use(requestMetrics(s.metrics))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, nil, httputil.NotFound("Not found"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(httputil.RequireAuth(s.verifier, s.logger))
		r.Get("/pmc", s.handle(s.getPMC))
		r.Get("/periods/{type}", s.handle(s.getPeriods))
		r.Get("/periods/{type}/yoy", s.handle(s.getYearOverYear))
		r.Get("/power-profile", s.handle(s.getPowerProfile))
		r.Get("/report", s.handle(s.getReport))
		r.Delete("/user", s.handle(s.deleteUser))
	})

	return r
}

type handlerFunc func(r *http.Request, userID string) (interface{}, error)

func (s *Server) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := httputil.UserID(r.Context())
		logger := s.logger.With("user_id", userID, "request_id", middleware.GetReqID(r.Context()))

		body, err := fn(r, userID)
		if err != nil {
			httputil.WriteError(w, logger, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, body)
	}
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", rec)
				}
				infrasentry.CaptureException(err, map[string]string{
					"service": "api-analytics",
					"path":    r.URL.Path,
				}, s.logger)
				httputil.WriteError(w, s.logger, err)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// snapshot loads the caller's activities and athlete profile. A missing
// settings document is not an error; the profile just narrows.
func (s *Server) snapshot(ctx context.Context, userID string) (analytics.Snapshot, error) {
	activities, err := s.svc.DB.ListActivities(ctx, userID)
	if err != nil {
		return analytics.Snapshot{}, fmt.Errorf("list activities: %w", err)
	}

	snap := analytics.Snapshot{Activities: activities}
	settings, err := s.svc.DB.GetUserSettings(ctx, userID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
	case err != nil:
		return analytics.Snapshot{}, fmt.Errorf("get settings: %w", err)
	default:
		snap.Athlete = &settings.Athlete
	}
	return snap, nil
}

func (s *Server) today() types.Date {
	loc := time.UTC
	if s.svc.Config != nil && s.svc.Config.DefaultLocation != nil {
		loc = s.svc.Config.DefaultLocation
	}
	return types.DateOf(s.now().In(loc))
}

func (s *Server) defaultWindow() int {
	if s.svc.Config != nil {
		return s.svc.Config.WindowDays
	}
	return 0
}
