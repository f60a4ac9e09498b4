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
)

func TestNewClient_DefaultsAndConfig(t *testing.T) {
	client := NewClient(Config{URL: "http://localhost:8096/", APIKey: "token"})

	require.NotNil(t, client)
	assert.Equal(t, "http://localhost:8096", client.baseURL)
	require.NotNil(t, client.httpClient)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
	assert.Equal(t, "token", client.apiKey)
	assert.Equal(t, 500, client.pageSize)
}

func TestGetSystemInfo_MakesExpectedHTTPRequest(t *testing.T) {
	var gotMethod, gotPath, gotAuth string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SystemInfo{ServerName: "Jellyfin", Version: "10.9.0", ID: "server-1"})
	}))
	defer ts.Close()

	client := NewClient(Config{URL: ts.URL, APIKey: "secret-key", Timeout: 5 * time.Second})
	info, err := client.GetSystemInfo(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "/System/Info", gotPath)
	assert.Contains(t, gotAuth, `Token="secret-key"`)
	assert.Equal(t, "Jellyfin", info.ServerName)
}

func TestBasePathIsKept(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"Id":"emby-1"}`))
	}))
	defer ts.Close()

	client := NewClient(Config{URL: ts.URL + "/emby/", APIKey: "k"})
	info, err := client.GetSystemInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/emby/System/Info", gotPath)
	assert.Equal(t, "emby-1", info.ID)
}

func TestGetSystemInfo_InvalidURLAndHTTPError(t *testing.T) {
	badClient := NewClient(Config{URL: "://bad-url", APIKey: "secret-key"})
	_, err := badClient.GetSystemInfo(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid base URL")

	errorServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer errorServer.Close()

	client := NewClient(Config{URL: errorServer.URL, APIKey: "secret-key"})
	_, err = client.GetSystemInfo(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error (status 502)")
}

func TestGetItemsPages(t *testing.T) {
	var starts []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		starts = append(starts, q.Get("StartIndex"))
		assert.Equal(t, "2", q.Get("Limit"))
		assert.Equal(t, "Movie", q.Get("IncludeItemTypes"))
		assert.Contains(t, q.Get("Fields"), "MediaStreams")

		all := []Item{{ID: "1"}, {ID: "2"}, {ID: "3"}}
		start := map[string]int{"0": 0, "2": 2}[q.Get("StartIndex")]
		end := min(start+2, len(all))
		_ = json.NewEncoder(w).Encode(ItemsResponse{Items: all[start:end], TotalRecordCount: len(all)})
	}))
	defer ts.Close()

	client := NewClient(Config{URL: ts.URL, APIKey: "k", PageSize: 2})
	items, err := client.GetItems(context.Background(), ItemQuery{Types: []string{TypeMovie}, Fields: detailFields})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"0", "2"}, starts)
}

func TestGetItemsCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Items":[],"TotalRecordCount":0}`))
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(Config{URL: ts.URL}).GetItems(ctx, ItemQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}
