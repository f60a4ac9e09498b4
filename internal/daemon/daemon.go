// Package daemon runs the scheduler, the API server and the cache watcher
// together and shuts them down in order.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/logging"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/scheduler"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

// Daemon manages the background service
type Daemon struct {
	scheduler *scheduler.Scheduler
	server    *Server
	watcher   *watcher.Watcher
	logger    *logging.Logger
}

// NewDaemon wires the components. w may be nil when the cache is not
// watched.
func NewDaemon(sched *scheduler.Scheduler, server *Server, w *watcher.Watcher, logger *logging.Logger) *Daemon {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Daemon{scheduler: sched, server: server, watcher: w, logger: logger}
}

// Run blocks until ctx is cancelled or a component fails. The API server
// reports unhealthy while the scheduler drains an active run.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.server.Listen(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.scheduler.Start(gctx)
	})

	g.Go(func() error {
		return d.server.Start()
	})

	if d.watcher != nil {
		g.Go(func() error {
			if err := d.watcher.Start(gctx); err != nil {
				return fmt.Errorf("watcher error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		d.logger.Info("daemon", "Stopping mediastats daemon")
		d.server.SetHealthy(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down api server: %w", err)
		}
		if d.watcher != nil {
			if err := d.watcher.Close(); err != nil {
				d.logger.Warn("daemon", "Error closing watcher", logging.F("error", err.Error()))
			}
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	d.logger.Info("daemon", "Mediastats daemon stopped")
	return nil
}
