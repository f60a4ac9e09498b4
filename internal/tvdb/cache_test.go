package tvdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "characters": [],
  "episodes": [
    {"id": 1, "name": "Pilot", "seasonNumber": 1, "number": 1, "aired": "2008-01-20"},
    {"id": 2, "name": "Second", "seasonNumber": 1, "number": 2, "aired": "2024-06-15"},
    {"id": 3, "name": "Future", "seasonNumber": 2, "number": 1, "aired": "2024-06-16"},
    {"id": 4, "name": "Undated", "seasonNumber": 2, "number": 2, "aired": null},
    {"id": 5, "name": "Partial", "seasonNumber": 2, "number": 3, "aired": "2009"},
    {"id": 6, "name": "Extra", "seasonNumber": 0, "number": 1, "aired": "2010-05-01"},
    {"id": 7, "name": "Future extra", "seasonNumber": 0, "number": 2, "aired": "2030-01-01"}
  ]
}`

func writeShow(t *testing.T, dir, id, body string) {
	t.Helper()
	showDir := filepath.Join(dir, "tvdb", id)
	require.NoError(t, os.MkdirAll(showDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(showDir, EpisodesFile), []byte(body), 0644))
}

func newCounter(dir string) *CacheCounter {
	c := NewCacheCounter(dir)
	c.Now = func() time.Time { return time.Date(2024, 6, 15, 23, 0, 0, 0, time.UTC) }
	return c
}

func TestEpisodeCounts(t *testing.T) {
	dir := t.TempDir()
	writeShow(t, dir, "81189", sample)

	got, err := newCounter(dir).EpisodeCounts(context.Background(), "81189")
	require.NoError(t, err)
	assert.Equal(t, ledger.Counts{Episodes: 2, Specials: 1}, got)
}

func TestEpisodeCountsErrors(t *testing.T) {
	dir := t.TempDir()
	writeShow(t, dir, "1", "{not json")
	c := newCounter(dir)

	_, err := c.EpisodeCounts(context.Background(), "404")
	assert.ErrorIs(t, err, ledger.ErrUnknownShow)

	_, err = c.EpisodeCounts(context.Background(), "1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ledger.ErrUnknownShow)

	_, err = c.EpisodeCounts(context.Background(), "../etc")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.EpisodeCounts(ctx, "1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAired(t *testing.T) {
	today := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		date string
		want bool
	}{
		{"2024-06-15", true},
		{"2024-06-14", true},
		{"2024-06-16", false},
		{"", false},
		{"2024-6-1", false},
		{"2024-13-01", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, aired(tt.date, today), tt.date)
	}
}
