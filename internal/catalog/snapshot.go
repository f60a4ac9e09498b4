package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrNoUsers is returned by Load when the server reports no users.
var ErrNoUsers = errors.New("no users found")

// Provider enumerates a media server's library and per-user state.
type Provider interface {
	Movies(ctx context.Context) ([]Movie, error)
	Series(ctx context.Context) ([]Series, error)
	Seasons(ctx context.Context) ([]Season, error)
	Episodes(ctx context.Context) ([]Episode, error)
	Collections(ctx context.Context) ([]Collection, error)
	Users(ctx context.Context) ([]User, error)
	UserLibrary(ctx context.Context, userID string) (UserLibrary, error)
}

// SpanCount is a number of played episodes and specials of one series.
type SpanCount struct {
	Episodes int
	Specials int
}

// Snapshot is an immutable copy of the catalog taken once per run. All
// accessors read from memory; scoped views are computed on first use and
// cached, and are safe for concurrent use.
type Snapshot struct {
	now         time.Time
	movies      []Movie
	series      []Series
	seriesByID  map[string]int
	seasons     map[string]Season
	episodes    []Episode
	collections []Collection
	users       []User
	libraries   map[string]UserLibrary

	mu   sync.Mutex
	memo map[string]*memoEntry
}

type memoEntry struct {
	once sync.Once
	val  any
}

// Load fetches the whole catalog from p. Any provider error, or a server
// without users, is fatal for the run.
func Load(ctx context.Context, p Provider, now time.Time) (*Snapshot, error) {
	s := &Snapshot{now: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.movies, err = p.Movies(gctx)
		return wrap("movies", err)
	})
	g.Go(func() (err error) {
		s.series, err = p.Series(gctx)
		return wrap("series", err)
	})
	g.Go(func() error {
		seasons, err := p.Seasons(gctx)
		if err != nil {
			return wrap("seasons", err)
		}
		s.seasons = make(map[string]Season, len(seasons))
		for _, season := range seasons {
			s.seasons[season.ID] = season
		}
		return nil
	})
	g.Go(func() (err error) {
		s.episodes, err = p.Episodes(gctx)
		return wrap("episodes", err)
	})
	g.Go(func() (err error) {
		s.collections, err = p.Collections(gctx)
		return wrap("collections", err)
	})
	g.Go(func() (err error) {
		s.users, err = p.Users(gctx)
		return wrap("users", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(s.users) == 0 {
		return nil, ErrNoUsers
	}

	s.libraries = make(map[string]UserLibrary, len(s.users))
	for _, u := range s.users {
		lib, err := p.UserLibrary(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("loading library of user %s: %w", u.Name, err)
		}
		s.libraries[u.ID] = lib
	}

	s.seriesByID = make(map[string]int, len(s.series))
	for i, sr := range s.series {
		s.seriesByID[sr.ID] = i
	}
	return s, nil
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("loading %s: %w", what, err)
}

// Now is the reference time captured for this run.
func (s *Snapshot) Now() time.Time { return s.now }

func (s *Snapshot) Movies() []Movie           { return s.movies }
func (s *Snapshot) Series() []Series          { return s.series }
func (s *Snapshot) Episodes() []Episode       { return s.episodes }
func (s *Snapshot) Collections() []Collection { return s.collections }
func (s *Snapshot) Users() []User             { return s.users }

// ActiveUsers returns the users that take part in library-wide rankings.
func (s *Snapshot) ActiveUsers() []User {
	return memoize(s, "active-users", func() []User {
		var out []User
		for _, u := range s.users {
			if u.Active {
				out = append(out, u)
			}
		}
		return out
	})
}

// SeriesByID looks up a series.
func (s *Snapshot) SeriesByID(id string) (Series, bool) {
	i, ok := s.seriesByID[id]
	if !ok {
		return Series{}, false
	}
	return s.series[i], true
}

// OwnedMovies returns the movies that exist on disk.
func (s *Snapshot) OwnedMovies() []Movie {
	return memoize(s, "owned-movies", func() []Movie {
		return filter(s.movies, func(m Movie) bool { return !m.Virtual })
	})
}

// OwnedEpisodes returns the episodes that exist on disk.
func (s *Snapshot) OwnedEpisodes() []Episode {
	return memoize(s, "owned-episodes", func() []Episode {
		return filter(s.episodes, func(e Episode) bool { return !e.Virtual })
	})
}

// SeriesOf resolves the series owning e by walking episode -> season ->
// series. Episodes parented directly by a series resolve to it.
func (s *Snapshot) SeriesOf(e Episode) (Series, bool) {
	if season, ok := s.seasons[e.ParentID]; ok {
		return s.SeriesByID(season.SeriesID)
	}
	return s.SeriesByID(e.ParentID)
}

// EpisodesBySeries groups owned episodes by their resolved series, keeping
// catalog order inside each group.
func (s *Snapshot) EpisodesBySeries() map[string][]Episode {
	return memoize(s, "episodes-by-series", func() map[string][]Episode {
		out := make(map[string][]Episode)
		for _, e := range s.OwnedEpisodes() {
			if sr, ok := s.SeriesOf(e); ok {
				out[sr.ID] = append(out[sr.ID], e)
			}
		}
		return out
	})
}

// Played reports the watch state of item id within scope.
func (s *Snapshot) Played(scope Scope, id string) bool {
	if u, ok := scope.User(); ok {
		return s.libraries[u.ID].States[id].Played
	}
	for _, u := range s.users {
		if s.libraries[u.ID].States[id].Played {
			return true
		}
	}
	return false
}

// Visible reports whether item id is visible within scope.
func (s *Snapshot) Visible(scope Scope, id string) bool {
	if u, ok := scope.User(); ok {
		return s.libraries[u.ID].Visible[id]
	}
	for _, u := range s.users {
		if s.libraries[u.ID].Visible[id] {
			return true
		}
	}
	return false
}

// LastPlayed returns when item id was last played within scope. Across all
// users the first user in catalog order with a recorded play wins.
func (s *Snapshot) LastPlayed(scope Scope, id string) (time.Time, bool) {
	if u, ok := scope.User(); ok {
		return lastPlayed(s.libraries[u.ID], id)
	}
	for _, u := range s.users {
		if t, ok := lastPlayed(s.libraries[u.ID], id); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func lastPlayed(lib UserLibrary, id string) (time.Time, bool) {
	st := lib.States[id]
	if !st.Played || st.LastPlayedAt == nil {
		return time.Time{}, false
	}
	return *st.LastPlayedAt, true
}

// VisibleMovies returns owned movies visible within scope.
func (s *Snapshot) VisibleMovies(scope Scope) []Movie {
	return memoize(s, "visible-movies/"+scope.key(), func() []Movie {
		return filter(s.OwnedMovies(), func(m Movie) bool { return s.Visible(scope, m.ID) })
	})
}

// ViewedMovies returns visible movies that are played within scope.
func (s *Snapshot) ViewedMovies(scope Scope) []Movie {
	return memoize(s, "viewed-movies/"+scope.key(), func() []Movie {
		return filter(s.VisibleMovies(scope), func(m Movie) bool { return s.Played(scope, m.ID) })
	})
}

// VisibleEpisodes returns owned episodes visible within scope.
func (s *Snapshot) VisibleEpisodes(scope Scope) []Episode {
	return memoize(s, "visible-episodes/"+scope.key(), func() []Episode {
		return filter(s.OwnedEpisodes(), func(e Episode) bool { return s.Visible(scope, e.ID) })
	})
}

// ViewedEpisodes returns visible episodes that are played within scope.
func (s *Snapshot) ViewedEpisodes(scope Scope) []Episode {
	return memoize(s, "viewed-episodes/"+scope.key(), func() []Episode {
		return filter(s.VisibleEpisodes(scope), func(e Episode) bool { return s.Played(scope, e.ID) })
	})
}

// VisibleSeries returns series visible within scope.
func (s *Snapshot) VisibleSeries(scope Scope) []Series {
	return memoize(s, "visible-series/"+scope.key(), func() []Series {
		return filter(s.series, func(sr Series) bool { return s.Visible(scope, sr.ID) })
	})
}

// VisibleCollections returns collections visible within scope.
func (s *Snapshot) VisibleCollections(scope Scope) []Collection {
	return memoize(s, "visible-collections/"+scope.key(), func() []Collection {
		return filter(s.collections, func(c Collection) bool { return s.Visible(scope, c.ID) })
	})
}

// PlayedSpans counts played, aired episodes and played specials per series
// within scope, using the same span rules as the collected counts.
func (s *Snapshot) PlayedSpans(scope Scope) map[string]SpanCount {
	return memoize(s, "played-spans/"+scope.key(), func() map[string]SpanCount {
		out := make(map[string]SpanCount)
		for seriesID, eps := range s.EpisodesBySeries() {
			var c SpanCount
			for _, e := range eps {
				if !s.Played(scope, e.ID) {
					continue
				}
				switch {
				case e.IsSpecial():
					c.Specials += e.Span()
				case e.AiredBy(s.now):
					c.Episodes += e.Span()
				}
			}
			if c != (SpanCount{}) {
				out[seriesID] = c
			}
		}
		return out
	})
}

func memoize[T any](s *Snapshot, key string, build func() T) T {
	s.mu.Lock()
	if s.memo == nil {
		s.memo = make(map[string]*memoEntry)
	}
	e, ok := s.memo[key]
	if !ok {
		e = &memoEntry{}
		s.memo[key] = e
	}
	s.mu.Unlock()

	e.once.Do(func() { e.val = build() })
	return e.val.(T)
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
