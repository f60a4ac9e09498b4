package stats

import (
	"strconv"
	"strings"
	"time"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/catalog"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/logging"
)

const noResolution = "Resolution Not Available"

// mediaCounts tallies movies and episodes per key in first-seen order.
type mediaCounts struct {
	keys   []string
	counts map[string]*[2]int
}

func (mc *mediaCounts) add(key string, slot int) {
	if mc.counts == nil {
		mc.counts = make(map[string]*[2]int)
	}
	n, ok := mc.counts[key]
	if !ok {
		n = new([2]int)
		mc.counts[key] = n
		mc.keys = append(mc.keys, key)
	}
	n[slot]++
}

func (mc *mediaCounts) table() string {
	var b strings.Builder
	b.WriteString("<table><tr><td></td><td>Movies</td><td>Episodes</td></tr>")
	for _, k := range mc.keys {
		n := mc.counts[k]
		b.WriteString("<tr><td>" + k + "</td><td>" + strconv.Itoa(n[0]) + "</td><td>" + strconv.Itoa(n[1]) + "</td></tr>")
	}
	b.WriteString("</table>")
	return b.String()
}

func (c *Calculator) tally(scope catalog.Scope, stat string, key func(catalog.Media) string) *mediaCounts {
	var mc mediaCounts
	movies := catalog.SortByName(c.snap.VisibleMovies(scope), func(m catalog.Movie) string { return m.Name })
	for _, m := range movies {
		if m.Name == "" {
			continue
		}
		k := key(m.Media)
		if k == noResolution || k == "Unknown" {
			c.logger.Debug("stats", stat, logging.F("movie", m.Name), logging.F("value", k))
		}
		mc.add(k, 0)
	}
	episodes := catalog.SortByName(c.snap.VisibleEpisodes(scope), func(e catalog.Episode) string { return e.Name })
	for _, e := range episodes {
		if e.Name == "" {
			continue
		}
		k := key(e.Media)
		if k == noResolution || k == "Unknown" {
			c.logger.Debug("stats", stat, logging.F("series", c.seriesName(e)), logging.F("episode", e.Name), logging.F("value", k))
		}
		mc.add(k, 1)
	}
	return &mc
}

// MovieQualities counts movies and episodes per video resolution.
func (c *Calculator) MovieQualities(scope catalog.Scope) Result {
	mc := c.tally(scope, TitleMediaQualities, func(m catalog.Media) string {
		s, ok := m.VideoStream()
		if !ok {
			return noResolution
		}
		return resolution(s.Width)
	})
	return Result{
		Title:            TitleMediaQualities,
		ValueLineOne:     mc.table(),
		ExtraInformation: helpQualities,
		Size:             SizeHalf,
	}
}

// MovieCodecs counts movies and episodes per video codec.
func (c *Calculator) MovieCodecs(scope catalog.Scope) Result {
	mc := c.tally(scope, TitleMediaCodecs, codec)
	return Result{
		Title:            TitleMediaCodecs,
		ValueLineOne:     mc.table(),
		ExtraInformation: helpCodecs,
		Size:             SizeHalf,
	}
}

// MovieQualityList groups movies by the first word of their video stream's
// display title.
func (c *Calculator) MovieQualityList(scope catalog.Scope) QualityList {
	movies := catalog.SortByName(c.snap.VisibleMovies(scope), func(m catalog.Movie) string {
		if m.SortName != "" {
			return m.SortName
		}
		return m.Name
	})

	index := make(map[string]int)
	var groups []QualityGroup
	for _, m := range movies {
		title := "Unknown"
		if s, ok := m.VideoStream(); ok {
			if f := strings.Fields(s.DisplayTitle); len(f) > 0 {
				title = f[0]
			}
		}
		i, ok := index[title]
		if !ok {
			i = len(groups)
			index[title] = i
			groups = append(groups, QualityGroup{Title: title})
		}
		groups[i].Movies = append(groups[i].Movies, MovieRef{Id: m.ID, Name: m.Name, Year: m.ProductionYear})
	}
	return QualityList{Count: len(groups), Movies: groups}
}

func (c *Calculator) BiggestMovie(scope catalog.Scope) Result {
	m, size, ok := MaxBy(c.snap.VisibleMovies(scope), func(m catalog.Movie) (int64, bool) {
		var size int64
		if !c.try(TitleBiggestMovie, m.Name, func() (err error) {
			size, err = c.fileSize(m.Path)
			return err
		}) {
			return 0, false
		}
		return size, size > 0
	})
	if !ok {
		return noData(TitleBiggestMovie)
	}
	return extreme(TitleBiggestMovie, gigabytes(size), m.Name, m.ID)
}

// BiggestShow sums the file sizes of each series' owned episodes. Files
// that cannot be read are skipped.
func (c *Calculator) BiggestShow(scope catalog.Scope) Result {
	bySeries := c.snap.EpisodesBySeries()
	sr, size, ok := MaxBy(c.snap.VisibleSeries(scope), func(sr catalog.Series) (int64, bool) {
		var total int64
		for _, e := range bySeries[sr.ID] {
			if e.Path == "" {
				continue
			}
			c.try(TitleBiggestShow, e.Name, func() error {
				n, err := c.fileSize(e.Path)
				total += n
				return err
			})
		}
		return total, total > 0
	})
	if !ok {
		return noData(TitleBiggestShow)
	}
	return extreme(TitleBiggestShow, gigabytes(size), sr.Name, sr.ID)
}

func (c *Calculator) LongestMovie(scope catalog.Scope) Result {
	m, ticks, ok := MaxBy(c.snap.VisibleMovies(scope), func(m catalog.Movie) (int64, bool) {
		if m.RunTimeTicks == nil {
			return 0, false
		}
		return *m.RunTimeTicks, true
	})
	if !ok {
		return noData(TitleLongestMovie)
	}
	return extreme(TitleLongestMovie, clock(ticks), m.Name, m.ID)
}

// LongestShow sums the run time of each series' owned episodes that have a
// file.
func (c *Calculator) LongestShow(scope catalog.Scope) Result {
	bySeries := c.snap.EpisodesBySeries()
	sr, ticks, ok := MaxBy(c.snap.VisibleSeries(scope), func(sr catalog.Series) (int64, bool) {
		var rt RunTime
		for _, e := range bySeries[sr.ID] {
			if e.Path != "" {
				rt.Add(e.RunTimeTicks)
			}
		}
		return rt.Ticks, rt.Ticks > 0
	})
	if !ok {
		return noData(TitleLongestShow)
	}
	return extreme(TitleLongestShow, longClock(ticks), sr.Name, sr.ID)
}

func premiere[T any](date func(T) *time.Time) func(T) (int64, bool) {
	return func(it T) (int64, bool) {
		t := date(it)
		if t == nil || t.IsZero() {
			return 0, false
		}
		return t.Unix(), true
	}
}

func (c *Calculator) OldestMovie(scope catalog.Scope) Result {
	m, _, ok := MinBy(c.snap.VisibleMovies(scope), premiere(func(m catalog.Movie) *time.Time { return m.PremiereDate }))
	if !ok {
		return noData(TitleOldestMovie)
	}
	return extreme(TitleOldestMovie, monthsAgo(*m.PremiereDate, c.snap.Now()), m.Name, m.ID)
}

func (c *Calculator) NewestMovie(scope catalog.Scope) Result {
	m, _, ok := MaxBy(c.snap.VisibleMovies(scope), premiere(func(m catalog.Movie) *time.Time { return m.PremiereDate }))
	if !ok {
		return noData(TitleNewestMovie)
	}
	return extreme(TitleNewestMovie, daysAgo(*m.PremiereDate, c.snap.Now()), m.Name, m.ID)
}

func (c *Calculator) OldestShow(scope catalog.Scope) Result {
	sr, _, ok := MinBy(c.snap.VisibleSeries(scope), premiere(func(s catalog.Series) *time.Time { return s.PremiereDate }))
	if !ok {
		return noData(TitleOldestShow)
	}
	return extreme(TitleOldestShow, monthsAgo(*sr.PremiereDate, c.snap.Now()), sr.Name, sr.ID)
}

func (c *Calculator) NewestShow(scope catalog.Scope) Result {
	sr, _, ok := MaxBy(c.snap.VisibleSeries(scope), premiere(func(s catalog.Series) *time.Time { return s.PremiereDate }))
	if !ok {
		return noData(TitleNewestShow)
	}
	return extreme(TitleNewestShow, daysAgo(*sr.PremiereDate, c.snap.Now()), sr.Name, sr.ID)
}

func added(m catalog.Media) (int64, bool) {
	if m.DateCreated.IsZero() {
		return 0, false
	}
	return m.DateCreated.UnixNano(), true
}

func (c *Calculator) NewestAddedMovie(scope catalog.Scope) Result {
	m, _, ok := MaxBy(c.snap.VisibleMovies(scope), func(m catalog.Movie) (int64, bool) { return added(m.Media) })
	if !ok {
		return noData(TitleNewestAddedMovie)
	}
	return extreme(TitleNewestAddedMovie, daysAgo(m.DateCreated, c.snap.Now()), m.Name, m.ID)
}

// NewestAddedEpisode names the episode as "Series S1 E2".
func (c *Calculator) NewestAddedEpisode(scope catalog.Scope) Result {
	e, _, ok := MaxBy(c.snap.VisibleEpisodes(scope), func(e catalog.Episode) (int64, bool) { return added(e.Media) })
	if !ok {
		return noData(TitleNewestAddedEpisode)
	}
	name := c.seriesName(e) + " S" + strconv.Itoa(deref(e.SeasonNumber)) + " E" + strconv.Itoa(deref(e.IndexNumber))
	return extreme(TitleNewestAddedEpisode, daysAgo(e.DateCreated, c.snap.Now()), name, e.ID)
}

func (c *Calculator) HighestRating(scope catalog.Scope) Result {
	m, r, ok := MaxBy(c.snap.VisibleMovies(scope), func(m catalog.Movie) (float64, bool) {
		if m.CommunityRating == nil {
			return 0, false
		}
		return *m.CommunityRating, true
	})
	if !ok {
		return noData(TitleHighestRating)
	}
	return extreme(TitleHighestRating, rating(r), m.Name, m.ID)
}

// LowestRating ignores unrated movies and movies rated 0.
func (c *Calculator) LowestRating(scope catalog.Scope) Result {
	m, r, ok := MinBy(c.snap.VisibleMovies(scope), func(m catalog.Movie) (float64, bool) {
		if m.CommunityRating == nil || *m.CommunityRating == 0 {
			return 0, false
		}
		return *m.CommunityRating, true
	})
	if !ok {
		return noData(TitleLowestRating)
	}
	return extreme(TitleLowestRating, rating(r), m.Name, m.ID)
}

func bitrate(m catalog.Movie) (int64, bool) {
	if m.TotalBitrate == nil || *m.TotalBitrate <= 0 {
		return 0, false
	}
	return *m.TotalBitrate, true
}

func (c *Calculator) HighestBitrateMovie(scope catalog.Scope) Result {
	m, b, ok := MaxBy(c.snap.VisibleMovies(scope), bitrate)
	if !ok {
		return noData(TitleHighestBitrate)
	}
	return extreme(TitleHighestBitrate, kbps(b), m.Name, m.ID)
}

func (c *Calculator) LowestBitrateMovie(scope catalog.Scope) Result {
	m, b, ok := MinBy(c.snap.VisibleMovies(scope), bitrate)
	if !ok {
		return noData(TitleLowestBitrate)
	}
	return extreme(TitleLowestBitrate, kbps(b), m.Name, m.ID)
}
