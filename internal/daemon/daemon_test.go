package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/aggregate"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/api"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/database"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/scheduler"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/tvdb"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/watcher"
)

type countingRunner struct {
	mu    sync.Mutex
	modes []aggregate.Mode
}

func (c *countingRunner) Run(_ context.Context, mode aggregate.Mode, _ aggregate.Reporter) (*aggregate.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modes = append(c.modes, mode)
	return &aggregate.Summary{Mode: mode}, nil
}

func (c *countingRunner) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.modes)
}

func TestDaemonServesAndStops(t *testing.T) {
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	runner := &countingRunner{}
	sched, err := scheduler.New(scheduler.Config{Runner: runner})
	require.NoError(t, err)

	root := t.TempDir()
	handler := NewRefreshHandler(sched, 50*time.Millisecond, nil)
	w, err := watcher.NewWatcher(root, handler.HandleShows, watcher.WithDebounce(50*time.Millisecond))
	require.NoError(t, err)

	apiServer := api.NewServer(api.Config{Store: db, Scheduler: sched})
	server := NewServer(apiServer, "127.0.0.1:0", nil)
	d := NewDaemon(sched, server, w, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	base := "http://" + waitAddr(t, server)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/ready")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	resp, err := http.Get(base + "/api/v1/stats")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	show := filepath.Join(root, "42")
	require.NoError(t, os.MkdirAll(show, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(show, tvdb.EpisodesFile), []byte(`{"episodes":[]}`), 0644))
	require.Eventually(t, func() bool { return runner.count() == 1 }, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func waitAddr(t *testing.T, s *Server) string {
	t.Helper()
	var addr string
	require.Eventually(t, func() bool {
		addr = s.Addr()
		return addr != "127.0.0.1:0"
	}, time.Second, 10*time.Millisecond)
	return addr
}

type busyTrigger struct {
	mu    sync.Mutex
	busy  int
	calls int
	err   error
}

func (b *busyTrigger) TriggerNow(aggregate.Mode) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.err != nil {
		return b.err
	}
	if b.busy > 0 {
		b.busy--
		return aggregate.ErrBusy
	}
	return nil
}

func TestRefreshRetriesWhileBusy(t *testing.T) {
	trigger := &busyTrigger{busy: 2}
	h := NewRefreshHandler(trigger, 10*time.Millisecond, nil)

	h.HandleShows(context.Background(), []string{"1"})
	h.HandleShows(context.Background(), []string{"2"})

	require.Eventually(t, func() bool { return h.Stats().Triggered == 1 }, time.Second, 5*time.Millisecond)
	stats := h.Stats()
	assert.Equal(t, int64(1), stats.Retried)
	assert.False(t, stats.LastTrigger.IsZero())

	trigger.mu.Lock()
	assert.Equal(t, 3, trigger.calls, "second change joins the pending retry")
	trigger.mu.Unlock()
}

func TestRefreshStopsOnError(t *testing.T) {
	trigger := &busyTrigger{err: fmt.Errorf("scheduler closed: %w", errors.New("boom"))}
	h := NewRefreshHandler(trigger, 10*time.Millisecond, nil)

	h.HandleShows(context.Background(), []string{"1"})
	assert.Zero(t, h.Stats().Triggered)
}
