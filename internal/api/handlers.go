package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/go-chi/chi/v5"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/aggregate"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/logging"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/progress"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/scheduler"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Uptime    string            `json:"uptime"`
	Timestamp time.Time         `json:"timestamp"`
	Scheduler *scheduler.Status `json:"scheduler,omitempty"`
}

// RunAccepted is returned when a run was queued.
type RunAccepted struct {
	Mode    string `json:"mode"`
	Message string `json:"message"`
}

// UserSummary lists a user present in the latest results.
type UserSummary struct {
	UserName string `json:"UserName"`
	Shows    int    `json:"Shows"`
}

func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	results, ok := s.latest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	results, ok := s.latest(w, r)
	if !ok {
		return
	}
	users := make([]UserSummary, 0, len(results.UserStats))
	for _, u := range results.UserStats {
		users = append(users, UserSummary{UserName: u.UserName, Shows: len(u.ShowProgresses)})
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.user(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GetUserProgress returns the show progress rows of a user. ?order=most or
// ?order=least sorts by percent seen; the default keeps title order.
func (s *Server) GetUserProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := s.user(w, r)
	if !ok {
		return
	}
	rows := user.ShowProgresses
	switch r.URL.Query().Get("order") {
	case "", "name":
	case "most":
		rows = progress.MostWatched(rows)
	case "least":
		rows = progress.LeastWatched(rows)
	default:
		writeError(w, http.StatusBadRequest, "invalid_order", "order must be one of name, most, least")
		return
	}
	if rows == nil {
		rows = []progress.Row{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := s.store.RecentRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("api", "Listing runs failed", err)
		writeError(w, http.StatusInternalServerError, "store_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "no_scheduler", "runs cannot be triggered on this server")
		return
	}
	modeName := r.URL.Query().Get("mode")
	if modeName == "" {
		modeName = string(aggregate.ModeFull)
	}
	mode, err := aggregate.ParseMode(modeName)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_mode", err.Error())
		return
	}

	if err := s.scheduler.TriggerNow(mode); err != nil {
		if errors.Is(err, aggregate.ErrBusy) {
			writeError(w, http.StatusConflict, "busy", "a run is already in progress")
			return
		}
		writeError(w, http.StatusInternalServerError, "trigger_failed", err.Error())
		return
	}

	s.logger.Info("api", "Run triggered", logging.F("mode", string(mode)), logging.F("remote", r.RemoteAddr))
	writeJSON(w, http.StatusAccepted, RunAccepted{Mode: string(mode), Message: "Run started"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	healthy := s.isHealthy()

	schedulerHealthy := true
	var status *scheduler.Status
	if s.scheduler != nil {
		st := s.scheduler.Status()
		status = &st
		schedulerHealthy = st.Healthy
	}

	response := HealthResponse{
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Timestamp: time.Now(),
		Scheduler: status,
	}

	switch {
	case healthy && schedulerHealthy:
		response.Status = "healthy"
		writeJSON(w, http.StatusOK, response)
	case healthy:
		// The last run failed but the server still answers.
		response.Status = "degraded"
		writeJSON(w, http.StatusOK, response)
	default:
		response.Status = "unhealthy"
		writeJSON(w, http.StatusServiceUnavailable, response)
	}
}

// handleReady reports ready once the store answers, with or without a
// completed run.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ready := s.isHealthy()
	if ready {
		if _, err := s.store.LatestResults(r.Context()); err != nil && !errors.Is(err, aggregate.ErrNoResults) {
			ready = false
		}
	}
	if ready {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write([]byte("not ready"))
}

func (s *Server) latest(w http.ResponseWriter, r *http.Request) (*aggregate.Results, bool) {
	results, err := s.store.LatestResults(r.Context())
	if errors.Is(err, aggregate.ErrNoResults) {
		writeError(w, http.StatusNotFound, "no_results", "no statistics have been computed yet")
		return nil, false
	}
	if err != nil {
		s.logger.Error("api", "Loading results failed", err)
		writeError(w, http.StatusInternalServerError, "store_failed", err.Error())
		return nil, false
	}
	return results, true
}

func (s *Server) user(w http.ResponseWriter, r *http.Request) (aggregate.UserStat, bool) {
	results, ok := s.latest(w, r)
	if !ok {
		return aggregate.UserStat{}, false
	}
	name := chi.URLParam(r, "name")
	user, found := results.User(name)
	if !found {
		writeError(w, http.StatusNotFound, "unknown_user", "no statistics for user "+name)
		return aggregate.UserStat{}, false
	}
	return user, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}
