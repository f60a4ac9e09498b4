// Package watcher notices refreshed TVDB episode lists in the media server's
// metadata cache and asks for a TV statistics run once the writes settle.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/logging"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/tvdb"
)

// Handler receives the ids of shows whose episode lists changed since the
// previous call.
type Handler func(ctx context.Context, showIDs []string)

type Watcher struct {
	fsWatcher *fsnotify.Watcher
	root      string
	handler   Handler
	debounce  time.Duration
	logger    *logging.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
}

type Option func(*Watcher)

// WithDebounce sets how long the cache must stay quiet before the handler
// fires. Defaults to 30 seconds.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher watches root, the directory holding one folder per show
// (<cache>/tvdb).
func NewWatcher(root string, handler Handler, opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to create watcher: %w", err)
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		root:      root,
		handler:   handler,
		debounce:  30 * time.Second,
		logger:    logging.Nop(),
		pending:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.addShows(); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addShows() error {
	if err := w.fsWatcher.Add(w.root); err != nil {
		return fmt.Errorf("unable to watch %s: %w", w.root, err)
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return fmt.Errorf("unable to list %s: %w", w.root, err)
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if err := w.fsWatcher.Add(filepath.Join(w.root, e.Name())); err != nil {
			return fmt.Errorf("unable to watch %s: %w", e.Name(), err)
		}
	}
	w.logger.Info("watcher", "Watching TVDB cache", logging.F("root", w.root), logging.F("shows", len(entries)))
	return nil
}

// Start processes events until ctx is cancelled. Changes still pending at
// that point are dropped.
func (w *Watcher) Start(ctx context.Context) error {
	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Warn("watcher", "Watcher error", logging.F("error", err.Error()))
		}
	}
}

func (w *Watcher) Close() error {
	w.stopTimer()
	return w.fsWatcher.Close()
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&fsnotify.Create == fsnotify.Create && filepath.Dir(event.Name) == w.root {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fsWatcher.Add(event.Name); err != nil {
				w.logger.Warn("watcher", "Unable to watch new show", logging.F("path", event.Name), logging.F("error", err.Error()))
				return
			}
			w.logger.Debug("watcher", "Now watching new show", logging.F("path", event.Name))
			// The episode list may have landed before the watch was added.
			if _, err := os.Stat(filepath.Join(event.Name, tvdb.EpisodesFile)); err == nil {
				w.schedule(ctx, filepath.Base(event.Name))
			}
			return
		}
	}

	if filepath.Base(event.Name) != tvdb.EpisodesFile {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}
	showID := filepath.Base(filepath.Dir(event.Name))
	w.logger.Debug("watcher", "Episode list changed", logging.F("show", showID), logging.F("op", event.Op.String()))
	w.schedule(ctx, showID)
}

func (w *Watcher) schedule(ctx context.Context, showID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[showID] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.flush(ctx) })
}

func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	ids := make([]string, 0, len(w.pending))
	for id := range w.pending {
		ids = append(ids, id)
	}
	w.pending = make(map[string]struct{})
	w.timer = nil
	w.mu.Unlock()

	if len(ids) == 0 || ctx.Err() != nil {
		return
	}
	sort.Strings(ids)
	w.logger.Info("watcher", "Episode lists refreshed", logging.F("shows", len(ids)))
	w.handler(ctx, ids)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
