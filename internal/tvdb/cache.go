// Package tvdb reads authoritative episode counts from the TVDB metadata
// cache the media server keeps on disk.
package tvdb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ledger"
)

// EpisodesFile is the per-show file name inside <cache>/tvdb/<id>/.
const EpisodesFile = "episodes-official.json"

const airedLayout = "2006-01-02"

type episode struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	SeasonNumber int    `json:"seasonNumber"`
	Number       int    `json:"number"`
	Aired        string `json:"aired"`
}

type episodesFile struct {
	Episodes []episode `json:"episodes"`
}

// CacheCounter implements ledger.EpisodeCounter over the cache directory.
type CacheCounter struct {
	dir string
	// Now is the reference clock. Defaults to time.Now.
	Now func() time.Time
}

// NewCacheCounter reads from dir, the server's cache root (the directory
// that holds the tvdb folder).
func NewCacheCounter(dir string) *CacheCounter {
	return &CacheCounter{dir: dir, Now: time.Now}
}

// Path returns the cache file of a show.
func (c *CacheCounter) Path(showID string) string {
	return filepath.Join(c.dir, "tvdb", showID, EpisodesFile)
}

// Root is the directory holding one folder per show.
func (c *CacheCounter) Root() string {
	return filepath.Join(c.dir, "tvdb")
}

// EpisodeCounts counts aired regular episodes and aired specials. Episodes
// without a full yyyy-mm-dd air date have not aired.
func (c *CacheCounter) EpisodeCounts(ctx context.Context, showID string) (ledger.Counts, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Counts{}, err
	}
	if showID == "" || strings.ContainsAny(showID, `/\`) || strings.Contains(showID, "..") {
		return ledger.Counts{}, fmt.Errorf("invalid show id %q", showID)
	}

	data, err := os.ReadFile(c.Path(showID))
	if errors.Is(err, fs.ErrNotExist) {
		return ledger.Counts{}, fmt.Errorf("show %s not cached: %w", showID, ledger.ErrUnknownShow)
	}
	if err != nil {
		return ledger.Counts{}, fmt.Errorf("reading episodes of show %s: %w", showID, err)
	}

	var file episodesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return ledger.Counts{}, fmt.Errorf("parsing episodes of show %s: %w", showID, err)
	}
	return count(file.Episodes, c.Now()), nil
}

func count(episodes []episode, now time.Time) ledger.Counts {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var out ledger.Counts
	for _, e := range episodes {
		if !aired(e.Aired, today) {
			continue
		}
		if e.SeasonNumber == 0 {
			out.Specials++
		} else {
			out.Episodes++
		}
	}
	return out
}

func aired(date string, today time.Time) bool {
	if len(date) != len(airedLayout) {
		return false
	}
	t, err := time.Parse(airedLayout, date)
	if err != nil {
		return false
	}
	return !t.After(today)
}
