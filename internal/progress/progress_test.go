package progress

import (
	"context"
	"strconv"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/catalog"
	ct "github.com/hackthis02/statistics-for-emby-server-CORE/internal/catalog/catalogtest"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// episodes adds n owned episodes of season 1 of seriesID.
func episodes(p *catalog.Static, seriesID string, n int) []string {
	var ids []string
	for i := 1; i <= n; i++ {
		e := ct.Episode(seriesID+"-e"+strconv.Itoa(i), ct.SeasonID(seriesID, 1), 1, i)
		p.EpisodeList = append(p.EpisodeList, e)
		ids = append(ids, e.ID)
	}
	return ids
}

type fixture struct {
	snap   *catalog.Snapshot
	ledger *ledger.Ledger
}

// newFixture builds:
//
//	Yankee  (tvdb 1): 5 owned episodes, total 5. user1 saw 4, user2 saw 2.
//	alpha   (tvdb 2): 2 owned episodes plus a special, total 1 (stale).
//	Unknown (no tvdb id): 1 owned episode.
func newFixture(t *testing.T) fixture {
	t.Helper()
	p := &catalog.Static{}
	ct.Users(p, 2)

	y, ys := ct.Show("y", "Yankee", "1", 1)
	y.PremiereDate = ct.Date(2008, 1, 20)
	y.CommunityRating = ct.Float(9.5)
	y.Status = catalog.StatusEnded
	a, as := ct.Show("a", "alpha", "2", 0, 1)
	u, us := ct.Show("u", "Unknown", "", 1)
	p.SeriesList = []catalog.Series{y, a, u}
	p.SeasonList = append(append(ys, as...), us...)

	yIDs := episodes(p, "y", 5)
	aIDs := episodes(p, "a", 2)
	p.EpisodeList = append(p.EpisodeList, ct.Episode("a-special", ct.SeasonID("a", 0), 0, 1))
	episodes(p, "u", 1)
	p.ShowAll()

	for _, id := range yIDs[:4] {
		p.MarkPlayed("u1", id, nil)
	}
	for _, id := range yIDs[:2] {
		p.MarkPlayed("u2", id, nil)
	}
	for _, id := range aIDs {
		p.MarkPlayed("u1", id, nil)
	}
	p.MarkPlayed("u1", "a-special", nil)

	snap, err := catalog.Load(context.Background(), p, ct.Now)
	require.NoError(t, err)
	counts := ledger.StaticCounts{"1": {Episodes: 5}, "2": {Episodes: 1, Specials: 3}}
	return fixture{snap: snap, ledger: ledger.Build(context.Background(), snap, counts, ledger.Options{})}
}

func TestRankAveragesAcrossUsers(t *testing.T) {
	f := newFixture(t)
	rows := Rank(f.snap, f.ledger, f.snap.Users())

	require.Len(t, rows, 2, "series without a known total are not ranked")
	assert.Equal(t, "alpha", rows[0].Name, "collation ignores case")
	assert.Equal(t, "Yankee", rows[1].Name)

	y := rows[1]
	assert.Equal(t, 60.0, y.PercentSeen, "(80 + 40) / 2")
	assert.Equal(t, 100.0, y.PercentCollected)
	assert.Equal(t, 4, y.SeenEpisodes, "union of both users")
	assert.Equal(t, "2008", y.StartYear)
	assert.Equal(t, "Ended", y.Status)
	require.NotNil(t, y.Score)
	assert.Equal(t, 9.5, *y.Score)

	a := rows[0]
	assert.Equal(t, 50.0, a.PercentSeen, "(100 + 0) / 2")
	assert.Equal(t, 100.0, a.PercentCollected, "stale total is raised to collected")
	assert.Equal(t, 2, a.Total)
	assert.Equal(t, 1, a.SeenSpecials)
	assert.Equal(t, 1, a.CollectedSpecials)
}

func TestRankNoUsers(t *testing.T) {
	f := newFixture(t)
	assert.Empty(t, Rank(f.snap, f.ledger, nil))
}

func TestOrdering(t *testing.T) {
	f := newFixture(t)
	rows := Rank(f.snap, f.ledger, f.snap.Users())

	most := MostWatched(rows)
	assert.Equal(t, [3]string{"Yankee", "alpha", ""}, TopNames(most))
	least := LeastWatched(rows)
	assert.Equal(t, [3]string{"alpha", "Yankee", ""}, TopNames(least))

	assert.Equal(t, "alpha", rows[0].Name, "input is left untouched")
	assert.Equal(t, [3]string{}, TopNames(nil))
}

func TestForUserIsUnaveraged(t *testing.T) {
	f := newFixture(t)
	rows := ForUser(f.snap, f.ledger, f.snap.Users()[0])

	require.Len(t, rows, 3, "every visible series, known total or not")
	assert.Equal(t, []string{"alpha", "Unknown", "Yankee"}, []string{rows[0].Name, rows[1].Name, rows[2].Name})
	assert.Equal(t, 80.0, rows[2].PercentSeen)
	assert.Equal(t, 100.0, rows[0].PercentSeen)
	assert.Equal(t, 0.0, rows[1].PercentSeen)
	assert.Equal(t, 0.0, rows[1].PercentCollected, "unknown total")

	other := ForUser(f.snap, f.ledger, f.snap.Users()[1])
	assert.Equal(t, 40.0, other[2].PercentSeen)
}

func TestPercentagesStayInRange(t *testing.T) {
	f := newFixture(t)
	for _, r := range append(Rank(f.snap, f.ledger, f.snap.Users()), ForUser(f.snap, f.ledger, f.snap.Users()[0])...) {
		assert.GreaterOrEqual(t, r.PercentSeen, 0.0)
		assert.LessOrEqual(t, r.PercentSeen, 100.0)
		assert.GreaterOrEqual(t, r.PercentCollected, 0.0)
		assert.LessOrEqual(t, r.PercentCollected, 100.0)
		assert.LessOrEqual(t, r.SeenEpisodes, r.CollectedEpisodes)
	}
}

func TestSeenClampedToCollected(t *testing.T) {
	e := ledger.Entry{TotalEpisodes: 10, CollectedEpisodes: 2, CollectedSpecials: 0}
	episodes, specials := seen(catalog.SpanCount{Episodes: 5, Specials: 1}, e)
	assert.Equal(t, 2, episodes)
	assert.Equal(t, 0, specials)
	assert.Equal(t, 100.0, percentSeen(episodes, e))
	assert.Equal(t, 0.0, percentSeen(0, ledger.Entry{}))
}

func TestRowJSONKeepsLegacyKeys(t *testing.T) {
	r := Row{
		Id: "y", Name: "Yankee", PercentSeen: 60, PercentCollected: 100,
		CollectedEpisodes: 5, CollectedSpecials: 1, Total: 5,
	}
	b, err := json.Marshal(r)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, 60.0, got["Watched"])
	assert.Equal(t, 60.0, got["PercentSeen"])
	assert.Equal(t, 5.0, got["Episodes"])
	assert.Equal(t, 1.0, got["Specials"])
	assert.Equal(t, 100.0, got["Collected"])
	assert.Equal(t, 5.0, got["Total"])
	assert.Nil(t, got["Score"])

	var back Row
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, r, back)
}
