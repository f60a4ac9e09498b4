// Package aggregate runs the statistics pipeline: it snapshots the catalog,
// reconciles episode counts, computes every card and hands the resulting
// document to a Store.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/catalog"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ledger"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/logging"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/metrics"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/stats"
)

type Mode string

const (
	// ModeFull computes every card for every user and the library.
	ModeFull Mode = "full"
	// ModeMedia recomputes the library-wide cards only.
	ModeMedia Mode = "media"
	// ModeTV refreshes episode totals and per-user show progress.
	ModeTV Mode = "tv"
)

// Modes lists the valid modes.
var Modes = []Mode{ModeFull, ModeMedia, ModeTV}

func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown run mode %q (want full, media or tv)", s)
}

var (
	// ErrBusy is returned when a run is requested while another is active.
	ErrBusy = errors.New("a statistics run is already in progress")
	// ErrNoResults is returned by stores that hold no results yet.
	ErrNoResults = errors.New("no statistics results stored")
	// ErrNoActiveUsers is returned when no user has remote access enabled.
	ErrNoActiveUsers = errors.New("no users with remote access enabled")
)

// Store persists runs and their results.
type Store interface {
	StartRun(ctx context.Context, mode Mode) (string, error)
	CompleteRun(ctx context.Context, runID string, summary Summary) error
	FailRun(ctx context.Context, runID string, runErr error) error
	SaveResults(ctx context.Context, runID string, results *Results) error
	LatestResults(ctx context.Context) (*Results, error)
}

// Reporter receives run progress in percent.
type Reporter func(percent float64)

// Summary describes a finished run.
type Summary struct {
	RunID         string         `json:"run_id"`
	Mode          Mode           `json:"mode"`
	Users         int            `json:"users"`
	Series        int            `json:"series"`
	LookupsFailed bool           `json:"lookups_failed"`
	Skipped       map[string]int `json:"skipped,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	Duration      time.Duration  `json:"duration"`
}

type Options struct {
	// Workers bounds users processed in parallel.
	Workers int
	// LedgerWorkers bounds concurrent episode count lookups.
	LedgerWorkers int
	LookupTimeout time.Duration
	// Provider labels lookup metrics.
	Provider string
	Files    stats.FileSizer
	Logger   *logging.Logger
	Now      func() time.Time
}

// Runner executes runs one at a time.
type Runner struct {
	provider catalog.Provider
	counter  ledger.EpisodeCounter
	store    Store
	opts     Options
	running  atomic.Bool
}

func NewRunner(provider catalog.Provider, counter ledger.EpisodeCounter, store Store, opts Options) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{provider: provider, counter: counter, store: store, opts: opts}
}

// Busy reports whether a run is in progress.
func (r *Runner) Busy() bool {
	return r.running.Load()
}

// Run executes one run. Results are saved only when the run succeeds; a
// failed or cancelled run is recorded and leaves the stored results as
// they were.
func (r *Runner) Run(ctx context.Context, mode Mode, report Reporter) (*Summary, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer r.running.Store(false)
	if report == nil {
		report = func(float64) {}
	}

	logger := r.opts.Logger
	start := r.opts.Now()
	runID, err := r.store.StartRun(ctx, mode)
	if err != nil {
		return nil, fmt.Errorf("recording run start: %w", err)
	}
	logger.Info("aggregate", "run started", logging.F("run_id", runID), logging.F("mode", string(mode)))

	summary, results, err := r.execute(ctx, mode, report)
	summary.RunID = runID
	summary.Mode = mode
	summary.StartedAt = start

	if err == nil {
		err = r.store.SaveResults(ctx, runID, results)
	}
	summary.Duration = r.opts.Now().Sub(start)

	if err != nil {
		metrics.RunDuration.WithLabelValues(string(mode), "error").Observe(summary.Duration.Seconds())
		if ferr := r.store.FailRun(context.WithoutCancel(ctx), runID, err); ferr != nil {
			logger.Warn("aggregate", "could not record failed run", logging.F("run_id", runID), logging.F("error", ferr))
		}
		logger.Error("aggregate", "run failed", err, logging.F("run_id", runID), logging.F("mode", string(mode)))
		return summary, err
	}

	if err := r.store.CompleteRun(ctx, runID, *summary); err != nil {
		logger.Warn("aggregate", "could not record run completion", logging.F("run_id", runID), logging.F("error", err))
	}
	metrics.RunDuration.WithLabelValues(string(mode), "ok").Observe(summary.Duration.Seconds())
	metrics.LastSuccess.WithLabelValues(string(mode)).Set(float64(r.opts.Now().Unix()))
	report(100)
	logger.Info("aggregate", "run complete",
		logging.F("run_id", runID),
		logging.F("mode", string(mode)),
		logging.F("users", summary.Users),
		logging.F("series", summary.Series),
		logging.F("lookups_failed", summary.LookupsFailed),
		logging.F("duration_ms", summary.Duration.Milliseconds()))
	return summary, nil
}

// serverIdentity is implemented by providers that know their server id.
type serverIdentity interface {
	ServerID(ctx context.Context) (string, error)
}

func (r *Runner) execute(ctx context.Context, mode Mode, report Reporter) (*Summary, *Results, error) {
	summary := &Summary{}
	now := r.opts.Now()

	snap, err := catalog.Load(ctx, r.provider, now)
	if err != nil {
		return summary, nil, fmt.Errorf("loading catalog: %w", err)
	}
	users := snap.ActiveUsers()
	summary.Users = len(users)
	if len(users) == 0 && mode != ModeMedia {
		return summary, nil, ErrNoActiveUsers
	}

	// one step for the catalog, one for the ledger, one per user, one for
	// the library cards
	steps := float64(len(users) + 3)
	done := 1.0
	report(done / steps * 100)

	prev, err := r.store.LatestResults(ctx)
	if errors.Is(err, ErrNoResults) {
		prev = nil
	} else if err != nil {
		return summary, nil, fmt.Errorf("loading previous results: %w", err)
	}

	led := r.buildLedger(ctx, snap, mode, prev)
	if err := ctx.Err(); err != nil {
		return summary, nil, fmt.Errorf("run cancelled: %w", err)
	}
	summary.Series = led.Len()
	summary.LookupsFailed = led.Failed()
	done++
	report(done / steps * 100)

	calc := stats.New(snap, led, stats.Options{Files: r.opts.Files, Logger: r.opts.Logger})
	updated := now.Format(TimeLayout)

	results := &Results{}
	if prev != nil && mode != ModeFull {
		results = prev
		results.UserStats = slices.Clone(prev.UserStats)
	}
	results.LastUpdated = updated
	results.ServerId = r.serverID(ctx, results.ServerId)

	var mu sync.Mutex
	progress := func() {
		mu.Lock()
		defer mu.Unlock()
		done++
		report(done / steps * 100)
	}

	switch mode {
	case ModeFull:
		userStats, err := r.userStats(ctx, calc, users, progress)
		if err != nil {
			return summary, nil, err
		}
		times := make([]stats.UserTime, len(userStats))
		for i, us := range userStats {
			times[i] = stats.UserTime{Name: us.UserName, Time: stats.RunTime{Ticks: us.OverallStats[0].Raw}}
		}
		results.UserStats = userStats
		results.MostActiveUsers = calc.MostActiveUsers(times)
		libraryCards(calc, results)
		results.TotalEpisodeCounts = episodeCounts(led, updated)
	case ModeTV:
		fresh, err := r.showProgress(ctx, calc, users, progress)
		if err != nil {
			return summary, nil, err
		}
		results.mergeShowProgress(fresh)
		results.TotalEpisodeCounts = episodeCounts(led, updated)
	case ModeMedia:
		libraryCards(calc, results)
	default:
		return summary, nil, fmt.Errorf("unknown run mode %q", mode)
	}
	summary.Skipped = calc.Skipped()
	return summary, results, nil
}

// buildLedger looks totals up in full and tv runs. Media runs replay the
// stored totals so rankings stay consistent without external lookups.
func (r *Runner) buildLedger(ctx context.Context, snap *catalog.Snapshot, mode Mode, prev *Results) *ledger.Ledger {
	opts := ledger.Options{
		Workers:  r.opts.LedgerWorkers,
		Timeout:  r.opts.LookupTimeout,
		Provider: r.opts.Provider,
		Logger:   r.opts.Logger,
	}
	if mode != ModeMedia {
		return ledger.Build(ctx, snap, r.counter, opts)
	}
	opts.Provider = "stored"
	opts.SkipUnknown = true
	if prev == nil {
		return ledger.Build(ctx, snap, nil, opts)
	}
	return ledger.Build(ctx, snap, prev.StaticCounts(), opts)
}

func (r *Runner) serverID(ctx context.Context, fallback string) string {
	si, ok := r.provider.(serverIdentity)
	if !ok {
		return fallback
	}
	id, err := si.ServerID(ctx)
	if err != nil {
		r.opts.Logger.Warn("aggregate", "could not read server id", logging.F("error", err))
		return fallback
	}
	return id
}

// userStats computes every user's cards in parallel. Each goroutine writes
// only its own slot.
func (r *Runner) userStats(ctx context.Context, calc *stats.Calculator, users []catalog.User, done func()) ([]UserStat, error) {
	out := make([]UserStat, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, u := range users {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = userStat(calc, u)
			done()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("computing user statistics: %w", err)
	}
	return out, nil
}

func (r *Runner) showProgress(ctx context.Context, calc *stats.Calculator, users []catalog.User, done func()) ([]UserStat, error) {
	out := make([]UserStat, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, u := range users {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = UserStat{UserName: u.Name, ShowProgresses: calc.ShowProgress(u)}
			done()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("computing show progress: %w", err)
	}
	return out, nil
}

func userStat(calc *stats.Calculator, u catalog.User) UserStat {
	scope := catalog.ForUser(u)
	return UserStat{
		UserName: u.Name,
		OverallStats: []stats.Result{
			calc.OverallTime(scope, true),
			calc.OverallTime(scope, false),
		},
		MovieStats: []stats.Result{
			calc.TotalMovies(scope),
			calc.TotalBoxsets(scope),
			calc.TotalMoviesWatched(scope),
			calc.FavoriteYears(scope),
			calc.FavoriteMovieGenres(scope),
			calc.MovieTime(scope, true),
			calc.MovieTime(scope, false),
			calc.LastSeenMovies(scope),
		},
		ShowStats: []stats.Result{
			calc.TotalShows(scope),
			calc.TotalOwnedEpisodes(scope),
			calc.TotalEpisodesWatched(scope),
			calc.TotalFinishedShows(scope),
			calc.FavoriteShowGenres(scope),
			calc.ShowTime(scope, true),
			calc.ShowTime(scope, false),
			calc.LastSeenShows(scope),
		},
		ShowProgresses: calc.ShowProgress(u),
	}
}

func libraryCards(calc *stats.Calculator, r *Results) {
	all := catalog.AllUsers()

	r.MovieQualities = calc.MovieQualities(all)
	r.MovieCodecs = calc.MovieCodecs(all)
	r.TotalUsers = calc.TotalUsers(all)

	r.TotalMovies = calc.TotalMovies(all)
	r.TotalBoxsets = calc.TotalBoxsets(all)
	r.TotalMovieStudios = calc.TotalMovieStudios(all)
	r.BiggestMovie = calc.BiggestMovie(all)
	r.LongestMovie = calc.LongestMovie(all)
	r.OldestMovie = calc.OldestMovie(all)
	r.NewestMovie = calc.NewestMovie(all)
	r.HighestRating = calc.HighestRating(all)
	r.LowestRating = calc.LowestRating(all)
	r.NewestAddedMovie = calc.NewestAddedMovie(all)
	r.HighestBitrateMovie = calc.HighestBitrateMovie(all)
	r.LowestBitrateMovie = calc.LowestBitrateMovie(all)

	r.TotalShows = calc.TotalShows(all)
	r.TotalShowStudios = calc.TotalShowStudios(all)
	r.MostWatchedShows = calc.MostWatchedShows(all)
	r.LeastWatchedShows = calc.LeastWatchedShows(all)
	r.BiggestShow = calc.BiggestShow(all)
	r.LongestShow = calc.LongestShow(all)
	r.OldestShow = calc.OldestShow(all)
	r.NewestShow = calc.NewestShow(all)
	r.NewestAddedEpisode = calc.NewestAddedEpisode(all)

	r.MovieQualityItems = calc.MovieQualityList(all)
}
