// Package catalogtest provides helpers for building catalog fixtures in tests.
package catalogtest

import (
	"strconv"
	"time"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/catalog"
)

// Now is the fixed reference time fixtures are built against.
var Now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func Int(v int) *int              { return &v }
func Int64(v int64) *int64        { return &v }
func Float(v float64) *float64    { return &v }
func Time(t time.Time) *time.Time { return &t }

// Date returns a pointer to midnight UTC of the given day.
func Date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// Minutes converts minutes to run time ticks.
func Minutes(n int64) *int64 {
	v := n * 60 * catalog.TicksPerSecond
	return &v
}

// Episode builds an owned episode of season parentID.
func Episode(id, parentID string, season, index int) catalog.Episode {
	return catalog.Episode{
		Media:        catalog.Media{ID: id, Name: id, SortName: id},
		ParentID:     parentID,
		SeasonNumber: Int(season),
		IndexNumber:  Int(index),
	}
}

// Show builds a series with a TVDB id and the given seasons, all owned by it.
func Show(id, name, tvdbID string, seasons ...int) (catalog.Series, []catalog.Season) {
	sr := catalog.Series{
		ID:          id,
		Name:        name,
		SortName:    name,
		Status:      catalog.StatusContinuing,
		ProviderIDs: map[string]string{},
	}
	if tvdbID != "" {
		sr.ProviderIDs["Tvdb"] = tvdbID
	}
	var out []catalog.Season
	for _, n := range seasons {
		out = append(out, catalog.Season{ID: SeasonID(id, n), SeriesID: id, IndexNumber: Int(n)})
	}
	return sr, out
}

// SeasonID is the season id Show assigns to season n of series id.
func SeasonID(seriesID string, n int) string {
	return seriesID + "/s" + strconv.Itoa(n)
}

// Users appends active users u1..un, named user1..usern, to p, each with
// an empty library.
func Users(p *catalog.Static, n int) []catalog.User {
	if p.Libraries == nil {
		p.Libraries = make(map[string]catalog.UserLibrary)
	}
	for i := 1; i <= n; i++ {
		id := "u" + strconv.Itoa(i)
		p.UserList = append(p.UserList, catalog.User{ID: id, Name: "user" + strconv.Itoa(i), Active: true})
		if _, ok := p.Libraries[id]; !ok {
			p.Libraries[id] = catalog.UserLibrary{}
		}
	}
	return p.UserList
}
