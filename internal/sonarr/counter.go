package sonarr

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ledger"
)

const airDateLayout = "2006-01-02"

// EpisodeCounter implements ledger.EpisodeCounter by looking a show up by
// its TVDB id and counting the episodes Sonarr knows have aired.
type EpisodeCounter struct {
	client *Client
	// Now is the reference clock. Defaults to time.Now.
	Now func() time.Time
}

func NewEpisodeCounter(client *Client) *EpisodeCounter {
	return &EpisodeCounter{client: client, Now: time.Now}
}

func (c *EpisodeCounter) EpisodeCounts(ctx context.Context, showID string) (ledger.Counts, error) {
	tvdbID, err := strconv.Atoi(showID)
	if err != nil || tvdbID <= 0 {
		return ledger.Counts{}, fmt.Errorf("invalid tvdb id %q", showID)
	}

	series, err := c.client.GetSeriesByTvdbID(ctx, tvdbID)
	if err != nil {
		return ledger.Counts{}, fmt.Errorf("looking up series %d: %w", tvdbID, err)
	}
	if series == nil {
		return ledger.Counts{}, fmt.Errorf("series %d not in sonarr: %w", tvdbID, ledger.ErrUnknownShow)
	}

	episodes, err := c.client.GetEpisodes(ctx, series.ID)
	if err != nil {
		return ledger.Counts{}, fmt.Errorf("listing episodes of %s: %w", series.Title, err)
	}
	return countAired(episodes, c.Now()), nil
}

func countAired(episodes []Episode, now time.Time) ledger.Counts {
	var out ledger.Counts
	for _, e := range episodes {
		if !hasAired(e, now) {
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

func hasAired(e Episode, now time.Time) bool {
	if e.AirDateUtc != nil {
		return !e.AirDateUtc.After(now)
	}
	if e.AirDate == "" {
		return false
	}
	t, err := time.Parse(airDateLayout, e.AirDate)
	if err != nil {
		return false
	}
	return !t.After(now)
}
