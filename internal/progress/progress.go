// Package progress computes per-user show completion and the multi-user
// most/least watched rankings.
package progress

import (
	"sort"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/catalog"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ledger"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ratio"
)

// Entries looks up ledger entries by series id.
type Entries interface {
	Get(seriesID string) (ledger.Entry, bool)
}

// Row is the progress of one series.
type Row struct {
	Id                string   `json:"Id"`
	Name              string   `json:"Name"`
	SortName          string   `json:"SortName"`
	Score             *float64 `json:"Score"`
	Status            string   `json:"Status"`
	StartYear         string   `json:"StartYear"`
	TotalEpisodes     int      `json:"TotalEpisodes"`
	CollectedEpisodes int      `json:"CollectedEpisodes"`
	SeenEpisodes      int      `json:"SeenEpisodes"`
	TotalSpecials     int      `json:"TotalSpecials"`
	CollectedSpecials int      `json:"CollectedSpecials"`
	SeenSpecials      int      `json:"SeenSpecials"`
	PercentSeen       float64  `json:"PercentSeen"`
	PercentCollected  float64  `json:"PercentCollected"`
	// Total is the authoritative total raised to the collected count.
	Total int `json:"Total"`
}

// MarshalJSON adds the legacy keys the show overview page reads
// (Watched, Episodes, Specials, Collected).
func (r Row) MarshalJSON() ([]byte, error) {
	type plain Row
	return json.Marshal(struct {
		plain
		Watched   float64 `json:"Watched"`
		Episodes  int     `json:"Episodes"`
		Specials  int     `json:"Specials"`
		Collected float64 `json:"Collected"`
	}{
		plain:     plain(r),
		Watched:   r.PercentSeen,
		Episodes:  r.CollectedEpisodes,
		Specials:  r.CollectedSpecials,
		Collected: r.PercentCollected,
	})
}

func newRow(sr catalog.Series, e ledger.Entry) Row {
	r := Row{
		Id:                sr.ID,
		Name:              sr.Name,
		SortName:          sr.SortKey(),
		Score:             sr.CommunityRating,
		Status:            string(sr.Status),
		TotalEpisodes:     e.TotalEpisodes,
		CollectedEpisodes: e.CollectedEpisodes,
		TotalSpecials:     e.TotalSpecials,
		CollectedSpecials: e.CollectedSpecials,
		PercentCollected:  e.PercentCollected(),
		Total:             e.EffectiveTotal(),
	}
	if y := sr.StartYear(); y > 0 {
		r.StartYear = strconv.Itoa(y)
	}
	return r
}

// seen clamps played spans to what is collected.
func seen(spans catalog.SpanCount, e ledger.Entry) (episodes, specials int) {
	return min(spans.Episodes, e.CollectedEpisodes), min(spans.Specials, e.CollectedSpecials)
}

func percentSeen(seenEpisodes int, e ledger.Entry) float64 {
	if e.CollectedEpisodes == 0 {
		return 0
	}
	return ratio.Percent(seenEpisodes, e.CollectedEpisodes)
}

// ForUser returns one unaveraged row per series visible to u, ordered by
// sort name.
func ForUser(snap *catalog.Snapshot, entries Entries, u catalog.User) []Row {
	scope := catalog.ForUser(u)
	spans := snap.PlayedSpans(scope)
	series := catalog.SortByName(snap.VisibleSeries(scope), catalog.Series.SortKey)

	rows := make([]Row, 0, len(series))
	for _, sr := range series {
		e, _ := entries.Get(sr.ID)
		r := newRow(sr, e)
		r.SeenEpisodes, r.SeenSpecials = seen(spans[sr.ID], e)
		r.PercentSeen = percentSeen(r.SeenEpisodes, e)
		rows = append(rows, r)
	}
	return rows
}

// Rank averages each series' seen percentage over users. Only series with
// a known authoritative total take part. Rows come back in sort-name order;
// use MostWatched or LeastWatched to order them.
func Rank(snap *catalog.Snapshot, entries Entries, users []catalog.User) []Row {
	if len(users) == 0 {
		return nil
	}
	perUser := make([]map[string]catalog.SpanCount, len(users))
	for i, u := range users {
		perUser[i] = snap.PlayedSpans(catalog.ForUser(u))
	}
	union := snap.PlayedSpans(catalog.AllUsers())

	var rows []Row
	for _, sr := range catalog.SortByName(snap.Series(), catalog.Series.SortKey) {
		e, ok := entries.Get(sr.ID)
		if !ok || !e.Known() {
			continue
		}
		var sum float64
		for _, spans := range perUser {
			episodes, _ := seen(spans[sr.ID], e)
			sum += percentSeen(episodes, e)
		}
		r := newRow(sr, e)
		r.SeenEpisodes, r.SeenSpecials = seen(union[sr.ID], e)
		r.PercentSeen = ratio.Clamp(ratio.Round1(sum / float64(len(users))))
		rows = append(rows, r)
	}
	return rows
}

// MostWatched orders rows by descending seen percentage. Ties keep their
// input order.
func MostWatched(rows []Row) []Row {
	out := append([]Row(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PercentSeen > out[j].PercentSeen })
	return out
}

// LeastWatched orders rows by ascending seen percentage.
func LeastWatched(rows []Row) []Row {
	out := append([]Row(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PercentSeen < out[j].PercentSeen })
	return out
}

// TopNames returns the names of the first three rows, blank when fewer.
func TopNames(rows []Row) [3]string {
	var names [3]string
	for i := 0; i < len(rows) && i < 3; i++ {
		names[i] = rows[i].Name
	}
	return names
}
