package sonarr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ledger"
)

func at(s string) *time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return &t
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v3/system/status":
			json.NewEncoder(w).Encode(SystemStatus{AppName: "Sonarr", Version: "4.0.0"})
		case "/api/v3/series":
			if r.URL.Query().Get("tvdbId") != "81189" {
				w.Write([]byte("[]"))
				return
			}
			json.NewEncoder(w).Encode([]Series{{ID: 7, Title: "Breaking Bad", TvdbID: 81189}})
		case "/api/v3/episode":
			if r.URL.Query().Get("seriesId") != "7" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode([]Episode{
				{ID: 1, SeasonNumber: 1, EpisodeNumber: 1, AirDateUtc: at("2008-01-20T02:00:00Z")},
				{ID: 2, SeasonNumber: 1, EpisodeNumber: 2, AirDate: "2008-01-27"},
				{ID: 3, SeasonNumber: 0, EpisodeNumber: 1, AirDateUtc: at("2009-02-17T02:00:00Z")},
				{ID: 4, SeasonNumber: 6, EpisodeNumber: 1, AirDateUtc: at("2031-01-01T02:00:00Z")},
				{ID: 5, SeasonNumber: 6, EpisodeNumber: 2},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{URL: "http://mysonarr:8989", APIKey: "test-key"})
	assert.Equal(t, "http://mysonarr:8989", client.baseURL)
	assert.Equal(t, "test-key", client.apiKey)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)

	client = NewClient(Config{URL: "http://custom:9999", Timeout: time.Minute})
	assert.Equal(t, time.Minute, client.httpClient.Timeout)
}

func TestClientPing(t *testing.T) {
	server := newServer(t)
	defer server.Close()

	require.NoError(t, NewClient(Config{URL: server.URL, APIKey: "test-key"}).Ping(context.Background()))

	err := NewClient(Config{URL: server.URL, APIKey: "wrong-key"}).Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestEpisodeCounts(t *testing.T) {
	server := newServer(t)
	defer server.Close()

	counter := NewEpisodeCounter(NewClient(Config{URL: server.URL, APIKey: "test-key"}))
	counter.Now = func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) }

	got, err := counter.EpisodeCounts(context.Background(), "81189")
	require.NoError(t, err)
	assert.Equal(t, ledger.Counts{Episodes: 2, Specials: 1}, got)

	_, err = counter.EpisodeCounts(context.Background(), "1")
	assert.ErrorIs(t, err, ledger.ErrUnknownShow)

	_, err = counter.EpisodeCounts(context.Background(), "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ledger.ErrUnknownShow)
}

func TestEpisodeCountsCancelled(t *testing.T) {
	server := newServer(t)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEpisodeCounter(NewClient(Config{URL: server.URL, APIKey: "test-key"})).EpisodeCounts(ctx, "81189")
	assert.ErrorIs(t, err, context.Canceled)
}
