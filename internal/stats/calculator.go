package stats

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"sync"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/catalog"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ledger"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/logging"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/metrics"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/progress"
)

// FileSizer reports the size of a media file.
type FileSizer interface {
	FileSize(path string) (int64, error)
}

// OSFiles stats files on the local file system.
type OSFiles struct{}

func (OSFiles) FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

var errNoPath = errors.New("item has no file path")

type Options struct {
	Files  FileSizer
	Logger *logging.Logger
}

// Calculator computes stat cards. It never mutates the snapshot or the
// ledger, so one Calculator may serve concurrent callers with different
// scopes.
type Calculator struct {
	snap   *catalog.Snapshot
	ledger *ledger.Ledger
	files  FileSizer
	logger *logging.Logger

	rankOnce sync.Once
	ranking  []progress.Row

	mu      sync.Mutex
	skipped map[string]int
}

// New creates a Calculator. A nil ledger behaves as one where every total
// is unknown.
func New(snap *catalog.Snapshot, l *ledger.Ledger, opts Options) *Calculator {
	if opts.Files == nil {
		opts.Files = OSFiles{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Calculator{
		snap:    snap,
		ledger:  l,
		files:   opts.Files,
		logger:  opts.Logger,
		skipped: make(map[string]int),
	}
}

// Skipped returns, per statistic title, how many items were left out
// because reading them failed.
func (c *Calculator) Skipped() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.skipped)
}

func (c *Calculator) entry(seriesID string) (ledger.Entry, bool) {
	if c.ledger == nil {
		return ledger.Entry{}, false
	}
	return c.ledger.Get(seriesID)
}

// try runs fn for one item. An error or panic excludes the item from the
// statistic and is counted, never propagated.
func (c *Calculator) try(stat, item string, fn func() error) bool {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}()
	if err == nil {
		return true
	}

	c.mu.Lock()
	c.skipped[stat]++
	c.mu.Unlock()
	metrics.ItemsSkipped.WithLabelValues(stat).Inc()
	c.logger.Debug("stats", "item skipped", logging.F("statistic", stat), logging.F("item", item), logging.F("error", err))
	return false
}

func (c *Calculator) fileSize(path string) (int64, error) {
	if path == "" {
		return 0, errNoPath
	}
	return c.files.FileSize(path)
}

// help returns text when scope is bound to a user.
func help(scope catalog.Scope, text string) string {
	if scope.IsUser() {
		return text
	}
	return ""
}

// extreme builds the card shared by the biggest/longest/oldest/newest
// statistics.
func extreme(title, value, name, id string) Result {
	return Result{
		Title:        title,
		ValueLineOne: Truncate(value),
		ValueLineTwo: Truncate(name),
		Size:         SizeHalf,
		Id:           id,
	}
}

func noData(title string) Result {
	return Result{Title: title, ValueLineOne: NoData, Size: SizeHalf}
}
