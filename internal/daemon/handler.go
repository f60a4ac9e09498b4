package daemon

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/aggregate"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/logging"
)

// Trigger starts a run in the background.
type Trigger interface {
	TriggerNow(mode aggregate.Mode) error
}

// RefreshHandler turns cache changes into tv runs. A change that arrives
// while another run is active is retried until that run ends.
type RefreshHandler struct {
	trigger Trigger
	retry   time.Duration
	logger  *logging.Logger

	mu      sync.Mutex
	waiting bool
	stats   RefreshStats
}

// RefreshStats counts cache-driven refreshes.
type RefreshStats struct {
	Triggered   int64
	Retried     int64
	LastTrigger time.Time
}

func NewRefreshHandler(trigger Trigger, retry time.Duration, logger *logging.Logger) *RefreshHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	if retry <= 0 {
		retry = time.Minute
	}
	return &RefreshHandler{trigger: trigger, retry: retry, logger: logger}
}

// HandleShows has the signature of watcher.Handler.
func (h *RefreshHandler) HandleShows(ctx context.Context, showIDs []string) {
	h.logger.Info("daemon", "TVDB cache changed, refreshing show progress", logging.F("shows", len(showIDs)))

	h.mu.Lock()
	if h.waiting {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	err := h.trigger.TriggerNow(aggregate.ModeTV)
	if err == nil {
		h.record(false)
		return
	}
	if !errors.Is(err, aggregate.ErrBusy) {
		h.logger.Error("daemon", "Unable to start tv run", err)
		return
	}

	h.mu.Lock()
	h.waiting = true
	h.mu.Unlock()
	go h.retryLoop(ctx)
}

func (h *RefreshHandler) retryLoop(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		h.waiting = false
		h.mu.Unlock()
	}()

	ticker := time.NewTicker(h.retry)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := h.trigger.TriggerNow(aggregate.ModeTV)
			if errors.Is(err, aggregate.ErrBusy) {
				continue
			}
			if err != nil {
				h.logger.Error("daemon", "Unable to start tv run", err)
				return
			}
			h.record(true)
			return
		}
	}
}

func (h *RefreshHandler) record(retried bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats.Triggered++
	if retried {
		h.stats.Retried++
	}
	h.stats.LastTrigger = time.Now()
}

func (h *RefreshHandler) Stats() RefreshStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}
