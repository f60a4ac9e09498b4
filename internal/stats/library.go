package stats

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/catalog"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ratio"
)

const (
	topYears    = 5
	topGenres   = 3
	lastSeenMax = 8
	topUsers    = 5
)

// FavoriteYears lists the production years with the most played movies.
func (c *Calculator) FavoriteYears(scope catalog.Scope) Result {
	buckets := CountBy(c.snap.ViewedMovies(scope), func(m catalog.Movie) []int {
		if m.ProductionYear == 0 {
			return nil
		}
		return []int{m.ProductionYear}
	})
	years := make([]string, 0, topYears)
	for _, b := range TopN(buckets, topYears) {
		years = append(years, strconv.Itoa(b.Key))
	}
	return Result{
		Title:            TitleFavoriteYears,
		ValueLineOne:     strings.Join(years, ", "),
		ExtraInformation: help(scope, helpFavoriteYears),
		Size:             SizeHalf,
	}
}

func (c *Calculator) FavoriteMovieGenres(scope catalog.Scope) Result {
	return favoriteGenres(c.snap.VisibleMovies(scope), func(m catalog.Movie) []string { return m.Genres },
		TitleFavoriteMovieGenres, help(scope, helpFavoriteMovieGenres))
}

func (c *Calculator) FavoriteShowGenres(scope catalog.Scope) Result {
	return favoriteGenres(c.snap.VisibleSeries(scope), func(s catalog.Series) []string { return s.Genres },
		TitleFavoriteShowGenres, help(scope, helpFavoriteShowGenres))
}

func favoriteGenres[T any](items []T, genres func(T) []string, title, extra string) Result {
	var names []string
	for _, b := range TopN(CountBy(items, genres), topGenres) {
		names = append(names, b.Key)
	}
	return Result{
		Title:            title,
		ValueLineOne:     strings.Join(names, ", "),
		ExtraInformation: extra,
		Size:             SizeHalf,
	}
}

type play struct {
	line string
	at   time.Time
}

// lastSeen keeps the most recent plays, newest first. Items without a
// recorded play time are left out.
func lastSeen[T any](c *Calculator, scope catalog.Scope, items []T, id func(T) string, line func(T) string) string {
	var plays []play
	for _, it := range items {
		if at, ok := c.snap.LastPlayed(scope, id(it)); ok {
			plays = append(plays, play{line: line(it), at: at})
		}
	}
	sort.SliceStable(plays, func(i, j int) bool { return plays[i].at.After(plays[j].at) })
	if len(plays) > lastSeenMax {
		plays = plays[:lastSeenMax]
	}
	lines := make([]string, len(plays))
	for i, p := range plays {
		lines[i] = lastSeenLine(p.line, p.at)
	}
	return strings.Join(lines, "<br/>")
}

func (c *Calculator) LastSeenMovies(scope catalog.Scope) Result {
	return Result{
		Title: TitleLastSeenMovies,
		ValueLineOne: lastSeen(c, scope, c.snap.ViewedMovies(scope),
			func(m catalog.Movie) string { return m.ID },
			func(m catalog.Movie) string { return m.Name }),
		Size: SizeLarge,
	}
}

func (c *Calculator) LastSeenShows(scope catalog.Scope) Result {
	return Result{
		Title: TitleLastSeenShows,
		ValueLineOne: lastSeen(c, scope, c.snap.ViewedEpisodes(scope),
			func(e catalog.Episode) string { return e.ID },
			func(e catalog.Episode) string {
				return c.seriesName(e) + " - " + episodeCode(e.SeasonNumber, e.IndexNumber) + " - " + e.Name
			}),
		Size: SizeLarge,
	}
}

func (c *Calculator) seriesName(e catalog.Episode) string {
	if sr, ok := c.snap.SeriesOf(e); ok {
		return sr.Name
	}
	return e.SeriesName
}

func timeTitle(onlyPlayed bool) string {
	if onlyPlayed {
		return TitleTotalWatched
	}
	return TitleTotalWatchableTime
}

func (c *Calculator) movieTime(scope catalog.Scope, onlyPlayed bool) RunTime {
	movies := c.snap.VisibleMovies(scope)
	if onlyPlayed {
		movies = c.snap.ViewedMovies(scope)
	}
	var rt RunTime
	for _, m := range movies {
		rt.Add(m.RunTimeTicks)
	}
	return rt
}

func (c *Calculator) showTime(scope catalog.Scope, onlyPlayed bool) RunTime {
	episodes := c.snap.VisibleEpisodes(scope)
	if onlyPlayed {
		episodes = c.snap.ViewedEpisodes(scope)
	}
	var rt RunTime
	for _, e := range episodes {
		rt.Add(e.RunTimeTicks)
	}
	return rt
}

// MovieTime sums the run time of movies, only played ones when onlyPlayed.
func (c *Calculator) MovieTime(scope catalog.Scope, onlyPlayed bool) Result {
	return Result{
		Title:        timeTitle(onlyPlayed),
		ValueLineOne: c.movieTime(scope, onlyPlayed).String(),
		Size:         SizeHalf,
	}
}

// ShowTime sums the run time of episodes, only played ones when onlyPlayed.
func (c *Calculator) ShowTime(scope catalog.Scope, onlyPlayed bool) Result {
	return Result{
		Title:        timeTitle(onlyPlayed),
		ValueLineOne: c.showTime(scope, onlyPlayed).String(),
		Size:         SizeHalf,
	}
}

// OverallTime sums movies and episodes. Raw carries the tick count so
// callers can rank users by it.
func (c *Calculator) OverallTime(scope catalog.Scope, onlyPlayed bool) Result {
	rt := c.movieTime(scope, onlyPlayed)
	rt.Ticks += c.showTime(scope, onlyPlayed).Ticks
	return Result{
		Title:        timeTitle(onlyPlayed),
		ValueLineOne: rt.String(),
		Size:         SizeHalf,
		Raw:          rt.Ticks,
	}
}

func count(title string, n int, extra string) Result {
	return Result{Title: title, ValueLineOne: strconv.Itoa(n), ExtraInformation: extra}
}

func (c *Calculator) TotalMovies(scope catalog.Scope) Result {
	return count(TitleTotalMovies, len(c.snap.VisibleMovies(scope)), help(scope, helpTotalMovies))
}

// TotalShows counts series, with the episode count on the second and third
// lines.
func (c *Calculator) TotalShows(scope catalog.Scope) Result {
	r := count(TitleTotalShows, len(c.snap.VisibleSeries(scope)), help(scope, helpTotalShows))
	r.ValueLineTwo = TitleTotalEpisodes
	r.ValueLineThree = strconv.Itoa(len(c.snap.VisibleEpisodes(scope)))
	return r
}

func (c *Calculator) TotalOwnedEpisodes(scope catalog.Scope) Result {
	return count(TitleTotalEpisodes, len(c.snap.VisibleEpisodes(scope)), help(scope, helpTotalEpisodes))
}

func (c *Calculator) TotalBoxsets(scope catalog.Scope) Result {
	return count(TitleTotalCollections, len(c.snap.VisibleCollections(scope)), help(scope, helpTotalCollections))
}

func (c *Calculator) TotalMoviesWatched(scope catalog.Scope) Result {
	watched := len(c.snap.ViewedMovies(scope))
	owned := len(c.snap.VisibleMovies(scope))
	return Result{
		Title:            TitleTotalMoviesWatched,
		ValueLineOne:     watchedLine(watched, ratio.Percent(watched, owned)),
		ExtraInformation: help(scope, helpTotalMoviesWatched),
	}
}

// TotalEpisodesWatched counts aired, non-special episode spans the scope
// has played against all such spans it can see.
func (c *Calculator) TotalEpisodesWatched(scope catalog.Scope) Result {
	var watched, owned int
	now := c.snap.Now()
	for _, e := range c.snap.VisibleEpisodes(scope) {
		if e.IsSpecial() || !e.AiredBy(now) {
			continue
		}
		owned += e.Span()
		if c.snap.Played(scope, e.ID) {
			watched += e.Span()
		}
	}
	return Result{
		Title:            TitleTotalEpisodesWatched,
		ValueLineOne:     watchedLine(watched, ratio.Percent(watched, owned)),
		ExtraInformation: help(scope, helpTotalEpisodesWatched),
	}
}

// TotalFinishedShows counts series with a known total whose episodes are
// all collected and all played.
func (c *Calculator) TotalFinishedShows(scope catalog.Scope) Result {
	spans := c.snap.PlayedSpans(scope)
	n := 0
	for _, sr := range c.snap.Series() {
		e, ok := c.entry(sr.ID)
		if !ok || !e.Known() {
			continue
		}
		if min(spans[sr.ID].Episodes, e.CollectedEpisodes) >= e.EffectiveTotal() {
			n++
		}
	}
	return count(TitleTotalShowsFinished, n, help(scope, helpTotalShowsFinished))
}

func (c *Calculator) TotalMovieStudios(scope catalog.Scope) Result {
	return count(TitleTotalStudios, Distinct(c.snap.VisibleMovies(scope), func(m catalog.Movie) []string { return m.Studios }), "")
}

func (c *Calculator) TotalShowStudios(scope catalog.Scope) Result {
	return count(TitleTotalNetworks, Distinct(c.snap.VisibleSeries(scope), func(s catalog.Series) []string { return s.Studios }), "")
}

func (c *Calculator) TotalUsers(catalog.Scope) Result {
	return count(TitleTotalUsers, len(c.snap.Users()), "")
}

// UserTime is one user's total played run time.
type UserTime struct {
	Name string
	Time RunTime
}

// MostActiveUsers renders the users with the most played time as a table.
func (c *Calculator) MostActiveUsers(users []UserTime) Result {
	sorted := append([]UserTime(nil), users...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Ticks > sorted[j].Time.Ticks })
	if len(sorted) > topUsers {
		sorted = sorted[:topUsers]
	}

	var b strings.Builder
	b.WriteString("<table><tr><td></td><td>Days</td><td>Hours</td><td>Minutes</td></tr>")
	for _, u := range sorted {
		b.WriteString("<tr><td>" + u.Name + "</td>" + u.Time.cells() + "</tr>")
	}
	b.WriteString("</table>")
	return Result{
		Title:            TitleMostActiveUsers,
		ValueLineOne:     b.String(),
		ExtraInformation: helpMostActiveUsers,
		Size:             SizeHalf,
	}
}
