// Package api serves the persisted statistics and run history over HTTP
// and lets operators trigger runs.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/aggregate"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/database"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/logging"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/scheduler"
)

// Store is the read side of the result store.
type Store interface {
	LatestResults(ctx context.Context) (*aggregate.Results, error)
	RecentRuns(ctx context.Context, n int) ([]database.Run, error)
}

// Scheduler starts runs and reports their state.
type Scheduler interface {
	TriggerNow(mode aggregate.Mode) error
	Status() scheduler.Status
}

type Config struct {
	Store     Store
	Scheduler Scheduler
	// APIToken guards run triggers. Empty disables POST /api/v1/runs.
	APIToken string
	// AllowedOrigins for CORS. Defaults to any origin for read requests.
	AllowedOrigins []string
	Logger         *logging.Logger
}

// Server implements the API
type Server struct {
	store     Store
	scheduler Scheduler
	token     string
	origins   []string
	logger    *logging.Logger
	startTime time.Time

	mu      sync.RWMutex
	healthy bool
}

func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		store:     cfg.Store,
		scheduler: cfg.Scheduler,
		token:     cfg.APIToken,
		origins:   origins,
		logger:    logger,
		startTime: time.Now(),
		healthy:   true,
	}
}

// SetHealthy marks the process as shutting down or recovered.
func (s *Server) SetHealthy(healthy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = healthy
}

func (s *Server) isHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.healthy
}

// Handler returns the HTTP handler with CORS, API routes and probes.
func (s *Server) Handler() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Mount("/api/v1", s.apiRouter())

	return r
}

func (s *Server) apiRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Get("/stats", s.GetStats)
	r.Get("/stats/users", s.ListUsers)
	r.Get("/stats/users/{name}", s.GetUser)
	r.Get("/stats/users/{name}/progress", s.GetUserProgress)

	r.Get("/runs", s.ListRuns)
	r.With(s.requireToken).Post("/runs", s.TriggerRun)

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("api", "Request served",
			logging.F("method", r.Method),
			logging.F("path", r.URL.Path),
			logging.F("status", ww.Status()),
			logging.F("duration_ms", time.Since(start).Milliseconds()),
			logging.F("request_id", middleware.GetReqID(r.Context())))
	})
}
