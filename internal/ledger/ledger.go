// Package ledger reconciles locally collected episode counts per series with
// the authoritative aired-episode totals reported by an external provider.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/catalog"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/logging"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/metrics"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ratio"
	"golang.org/x/sync/errgroup"
)

// Counts is an authoritative episode count: aired regular episodes and
// specials (season 0).
type Counts struct {
	Episodes int `json:"Episodes"`
	Specials int `json:"Specials"`
}

// EpisodeCounter returns the authoritative counts for a show, counting only
// episodes aired on or before today. An error means the total is unknown.
type EpisodeCounter interface {
	EpisodeCounts(ctx context.Context, showID string) (Counts, error)
}

// ErrUnknownShow is returned by counters that have no data for a show.
var ErrUnknownShow = errors.New("unknown show")

// StaticCounts answers lookups from previously fetched counts.
type StaticCounts map[string]Counts

func (s StaticCounts) EpisodeCounts(_ context.Context, showID string) (Counts, error) {
	c, ok := s[showID]
	if !ok {
		return Counts{}, fmt.Errorf("show %s: %w", showID, ErrUnknownShow)
	}
	return c, nil
}

// Entry is the reconciled record of one series.
type Entry struct {
	TotalEpisodes     int
	TotalSpecials     int
	CollectedEpisodes int
	CollectedSpecials int
}

// Known reports whether an authoritative total exists. Series without one
// are left out of finished-show counts and rankings.
func (e Entry) Known() bool {
	return e.TotalEpisodes > 0
}

// EffectiveTotal is the authoritative total raised to at least the
// collected count, so a stale provider never yields more than 100%.
func (e Entry) EffectiveTotal() int {
	return max(e.TotalEpisodes, e.CollectedEpisodes)
}

// EffectiveSpecials is EffectiveTotal for specials.
func (e Entry) EffectiveSpecials() int {
	return max(e.TotalSpecials, e.CollectedSpecials)
}

// PercentCollected is 0 while the total is unknown.
func (e Entry) PercentCollected() float64 {
	if !e.Known() {
		return 0
	}
	return ratio.Percent(e.CollectedEpisodes, e.EffectiveTotal())
}

// Options tune ledger construction.
type Options struct {
	// Workers bounds concurrent lookups.
	Workers int
	// Timeout bounds a single lookup. Zero means no per-lookup limit.
	Timeout  time.Duration
	Provider string
	// SkipUnknown leaves shows the counter reports as ErrUnknownShow at a
	// total of 0 without marking the ledger failed.
	SkipUnknown bool
	Logger      *logging.Logger
}

// Ledger maps series ids to entries. It is read-only once Build returns.
type Ledger struct {
	entries   map[string]Entry
	counts    map[string]Counts
	failed    bool
	cancelled bool
	builtAt   time.Time
}

// Build sums collected spans from snap and looks up totals once per
// distinct TVDB id through counter. Lookup failures leave the affected
// totals at 0 and set Failed; cancelling ctx stops further lookups and
// keeps the ones already done. A nil counter skips the lookups.
func Build(ctx context.Context, snap *catalog.Snapshot, counter EpisodeCounter, opts Options) *Ledger {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Provider == "" {
		opts.Provider = "default"
	}

	l := &Ledger{
		entries: make(map[string]Entry, len(snap.Series())),
		counts:  make(map[string]Counts),
		builtAt: snap.Now(),
	}
	for _, sr := range snap.Series() {
		l.entries[sr.ID] = Entry{}
	}
	l.collect(snap)

	if counter != nil {
		l.lookupTotals(ctx, snap, counter, opts, logger)
	}

	metrics.LedgerSeries.Set(float64(len(l.entries)))
	logger.Info("ledger", "episode ledger built",
		logging.F("series", len(l.entries)),
		logging.F("lookups", len(l.counts)),
		logging.F("failed", l.failed),
		logging.F("cancelled", l.cancelled))
	return l
}

func (l *Ledger) collect(snap *catalog.Snapshot) {
	now := snap.Now()
	for seriesID, eps := range snap.EpisodesBySeries() {
		e := l.entries[seriesID]
		for _, ep := range eps {
			switch {
			case ep.IsSpecial():
				e.CollectedSpecials += ep.Span()
			case ep.AiredBy(now):
				e.CollectedEpisodes += ep.Span()
			}
		}
		l.entries[seriesID] = e
	}
}

func (l *Ledger) lookupTotals(ctx context.Context, snap *catalog.Snapshot, counter EpisodeCounter, opts Options, logger *logging.Logger) {
	byShow := make(map[string][]string)
	var shows []string
	for _, sr := range snap.Series() {
		id, ok := sr.TvdbID()
		if !ok {
			continue
		}
		if _, seen := byShow[id]; !seen {
			shows = append(shows, id)
		}
		byShow[id] = append(byShow[id], sr.ID)
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(opts.Workers)

	for _, showID := range shows {
		if ctx.Err() != nil {
			mu.Lock()
			l.cancelled = true
			mu.Unlock()
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				l.cancelled = true
				mu.Unlock()
				return nil
			}

			counts, err := lookup(ctx, counter, showID, opts.Timeout)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					l.cancelled = true
					return nil
				}
				if opts.SkipUnknown && errors.Is(err, ErrUnknownShow) {
					metrics.EpisodeLookups.WithLabelValues(opts.Provider, "unknown").Inc()
					logger.Debug("ledger", "no episode count for show", logging.F("show", showID))
					return nil
				}
				l.failed = true
				metrics.EpisodeLookups.WithLabelValues(opts.Provider, "error").Inc()
				logger.Warn("ledger", "episode count lookup failed",
					logging.F("show", showID), logging.F("error", err))
				return nil
			}
			metrics.EpisodeLookups.WithLabelValues(opts.Provider, "ok").Inc()
			counts.Episodes = max(counts.Episodes, 0)
			counts.Specials = max(counts.Specials, 0)
			l.counts[showID] = counts
			for _, seriesID := range byShow[showID] {
				e := l.entries[seriesID]
				e.TotalEpisodes = counts.Episodes
				e.TotalSpecials = counts.Specials
				l.entries[seriesID] = e
			}
			return nil
		})
	}
	g.Wait()
}

func lookup(ctx context.Context, counter EpisodeCounter, showID string, timeout time.Duration) (Counts, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return counter.EpisodeCounts(ctx, showID)
}

// Get returns the entry of a series.
func (l *Ledger) Get(seriesID string) (Entry, bool) {
	if l == nil {
		return Entry{}, false
	}
	e, ok := l.entries[seriesID]
	return e, ok
}

// Len is the number of series in the ledger.
func (l *Ledger) Len() int { return len(l.entries) }

// Failed reports whether any lookup failed.
func (l *Ledger) Failed() bool { return l.failed }

// Cancelled reports whether lookups were cut short by cancellation.
func (l *Ledger) Cancelled() bool { return l.cancelled }

// BuiltAt is the snapshot time the ledger was built against.
func (l *Ledger) BuiltAt() time.Time { return l.builtAt }

// ShowCount is the authoritative count of one show, keyed by TVDB id.
type ShowCount struct {
	ShowID   string
	Episodes int
	Specials int
}

// ShowCounts lists successful lookups ordered by show id.
func (l *Ledger) ShowCounts() []ShowCount {
	out := make([]ShowCount, 0, len(l.counts))
	for id, c := range l.counts {
		out = append(out, ShowCount{ShowID: id, Episodes: c.Episodes, Specials: c.Specials})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShowID < out[j].ShowID })
	return out
}
