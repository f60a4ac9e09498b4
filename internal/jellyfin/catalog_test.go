package jellyfin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/catalog"
)

const itemsByType = `{
  "Movie": {"Items": [
    {"Id": "m1", "Name": "Heat", "SortName": "heat", "Type": "Movie", "LocationType": "FileSystem",
     "Path": "/movies/Heat.mkv", "ProductionYear": 1995, "PremiereDate": "1995-12-15T00:00:00.0000000Z",
     "DateCreated": "2023-04-01T10:00:00.0000000Z", "RunTimeTicks": 102000000000, "CommunityRating": 8.3,
     "Genres": ["Crime", "Drama"], "Studios": [{"Name": "Warner Bros.", "Id": "s1"}],
     "MediaSources": [{"Id": "m1", "Bitrate": 12000000}],
     "MediaStreams": [{"Type": "Video", "Codec": "hevc", "Width": 3840, "DisplayTitle": "4K HEVC"},
                      {"Type": "Audio", "Codec": "eac3", "DisplayTitle": "English"}]},
    {"Id": "m2", "Name": "Missing", "Type": "Movie", "LocationType": "Virtual",
     "PremiereDate": "0001-01-01T00:00:00.0000000Z"}
  ], "TotalRecordCount": 2},
  "Series": {"Items": [
    {"Id": "s1", "Name": "The Wire", "Type": "Series", "Status": "Ended",
     "ProviderIds": {"Tvdb": "79126"}, "Studios": [{"Name": "HBO"}]}
  ], "TotalRecordCount": 1},
  "Season": {"Items": [
    {"Id": "se1", "Name": "Season 1", "Type": "Season", "SeriesId": "s1", "IndexNumber": 1}
  ], "TotalRecordCount": 1},
  "Episode": {"Items": [
    {"Id": "e1", "Name": "The Target", "Type": "Episode", "SeriesId": "s1", "SeasonId": "se1",
     "SeriesName": "The Wire", "ParentIndexNumber": 1, "IndexNumber": 1, "IndexNumberEnd": 2,
     "LocationType": "FileSystem"}
  ], "TotalRecordCount": 1},
  "BoxSet": {"Items": [{"Id": "b1", "Name": "Trilogy", "Type": "BoxSet"}], "TotalRecordCount": 1}
}`

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	var byType map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(itemsByType), &byType))

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Users":
			w.Write([]byte(`[
			  {"Id": "u1", "Name": "alice", "Policy": {"EnableRemoteAccess": true}},
			  {"Id": "u2", "Name": "bob", "Policy": {"EnableRemoteAccess": true, "IsDisabled": true}},
			  {"Id": "u3", "Name": "carol"}
			]`))
		case "/Items":
			body, ok := byType[r.URL.Query().Get("IncludeItemTypes")]
			if !ok {
				http.Error(w, "unexpected type", http.StatusBadRequest)
				return
			}
			w.Write(body)
		case "/Users/u1/Items":
			assert.Equal(t, "true", r.URL.Query().Get("EnableUserData"))
			w.Write([]byte(`{"Items": [
			  {"Id": "m1", "UserData": {"Played": true, "LastPlayedDate": "2024-02-03T20:00:00.0000000Z"}},
			  {"Id": "s1", "UserData": {"Played": false}},
			  {"Id": "e1", "UserData": {"Played": true}}
			], "TotalRecordCount": 3}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestCatalogConvertsItems(t *testing.T) {
	ts := newCatalogServer(t)
	defer ts.Close()
	c := NewCatalog(NewClient(Config{URL: ts.URL, APIKey: "k"}), nil)
	ctx := context.Background()

	movies, err := c.Movies(ctx)
	require.NoError(t, err)
	require.Len(t, movies, 2)
	heat := movies[0]
	assert.Equal(t, "heat", heat.SortName)
	assert.Equal(t, []string{"Warner Bros."}, heat.Studios)
	require.NotNil(t, heat.TotalBitrate)
	assert.Equal(t, int64(12_000_000), *heat.TotalBitrate)
	require.NotNil(t, heat.RunTimeTicks)
	assert.Equal(t, int64(10200)*catalog.TicksPerSecond, *heat.RunTimeTicks)
	v, ok := heat.VideoStream()
	require.True(t, ok)
	assert.Equal(t, 3840, *v.Width)
	assert.Equal(t, time.Date(1995, 12, 15, 0, 0, 0, 0, time.UTC), heat.PremiereDate.UTC())
	assert.True(t, movies[1].Virtual)
	assert.Nil(t, movies[1].PremiereDate, "zero dates are unknown")

	series, err := c.Series(ctx)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, catalog.StatusEnded, series[0].Status)
	id, ok := series[0].TvdbID()
	assert.True(t, ok)
	assert.Equal(t, "79126", id)

	seasons, err := c.Seasons(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s1", seasons[0].SeriesID)

	episodes, err := c.Episodes(ctx)
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, "se1", episodes[0].ParentID)
	assert.Equal(t, 2, episodes[0].Span())

	boxsets, err := c.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Collection{{ID: "b1", Name: "Trilogy"}}, boxsets)
}

func TestCatalogUsersAndLibrary(t *testing.T) {
	ts := newCatalogServer(t)
	defer ts.Close()
	c := NewCatalog(NewClient(Config{URL: ts.URL, APIKey: "k"}), nil)
	ctx := context.Background()

	users, err := c.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []catalog.User{
		{ID: "u1", Name: "alice", Active: true},
		{ID: "u2", Name: "bob"},
		{ID: "u3", Name: "carol"},
	}, users)

	lib, err := c.UserLibrary(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, lib.Visible, 3)
	assert.True(t, lib.States["m1"].Played)
	require.NotNil(t, lib.States["m1"].LastPlayedAt)
	assert.Equal(t, 2024, lib.States["m1"].LastPlayedAt.Year())
	assert.True(t, lib.States["e1"].Played)
	assert.NotContains(t, lib.States, "s1")

	_, err = c.UserLibrary(ctx, "nobody")
	assert.Error(t, err)
}

func TestCatalogLoadsSnapshot(t *testing.T) {
	ts := newCatalogServer(t)
	defer ts.Close()
	c := NewCatalog(NewClient(Config{URL: ts.URL, APIKey: "k"}), nil)

	// only u1 has a library endpoint in the fake server
	_, err := catalog.Load(context.Background(), c, time.Now())
	assert.Error(t, err)
}
