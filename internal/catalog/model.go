// Package catalog holds a point-in-time snapshot of a media library and the
// per-user watch state the statistics are computed from.
package catalog

import (
	"strings"
	"time"
)

// TicksPerSecond is the number of 100ns run time ticks in one second.
const TicksPerSecond int64 = 10_000_000

type StreamType string

const (
	StreamVideo    StreamType = "video"
	StreamAudio    StreamType = "audio"
	StreamSubtitle StreamType = "subtitle"
)

// MediaStream describes one stream of a media file.
type MediaStream struct {
	Type         StreamType
	Codec        string
	Width        *int
	DisplayTitle string
}

// Media is the attribute set shared by movies and episodes. Optional values
// are pointers; a nil value means the server does not know it.
type Media struct {
	ID              string
	Name            string
	SortName        string
	Path            string
	PremiereDate    *time.Time
	ProductionYear  int
	DateCreated     time.Time
	RunTimeTicks    *int64
	CommunityRating *float64
	TotalBitrate    *int64
	Studios         []string
	Genres          []string
	Streams         []MediaStream
	// Virtual items are placeholders for media that is not on disk.
	Virtual bool
}

// VideoStream returns the first video stream.
func (m Media) VideoStream() (MediaStream, bool) {
	for _, s := range m.Streams {
		if s.Type == StreamVideo {
			return s, true
		}
	}
	return MediaStream{}, false
}

type Movie struct {
	Media
}

type Episode struct {
	Media
	// ParentID is the owning season, or the series for episodes stored
	// without a season folder.
	ParentID       string
	SeriesName     string
	SeasonNumber   *int
	IndexNumber    *int
	IndexNumberEnd *int
}

// Span is the number of episodes this item covers. Multi-episode files
// report an end index; a missing or inverted end counts as one.
func (e Episode) Span() int {
	if e.IndexNumber == nil || e.IndexNumberEnd == nil {
		return 1
	}
	if *e.IndexNumberEnd < *e.IndexNumber {
		return 1
	}
	return *e.IndexNumberEnd - *e.IndexNumber + 1
}

// IsSpecial reports whether the episode belongs to season 0.
func (e Episode) IsSpecial() bool {
	return e.SeasonNumber != nil && *e.SeasonNumber == 0
}

// AiredBy reports whether the episode premiered on or before now. Undated
// episodes count as aired.
func (e Episode) AiredBy(now time.Time) bool {
	return e.PremiereDate == nil || !e.PremiereDate.After(now)
}

type Season struct {
	ID          string
	SeriesID    string
	Name        string
	IndexNumber *int
}

type SeriesStatus string

const (
	StatusContinuing SeriesStatus = "Continuing"
	StatusEnded      SeriesStatus = "Ended"
	StatusUnknown    SeriesStatus = "Unknown"
)

// ParseSeriesStatus maps a server status string, defaulting to unknown.
func ParseSeriesStatus(s string) SeriesStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "continuing":
		return StatusContinuing
	case "ended":
		return StatusEnded
	default:
		return StatusUnknown
	}
}

type Series struct {
	ID              string
	Name            string
	SortName        string
	Status          SeriesStatus
	PremiereDate    *time.Time
	ProductionYear  int
	DateCreated     time.Time
	CommunityRating *float64
	Studios         []string
	Genres          []string
	ProviderIDs     map[string]string
}

// TvdbID returns the series' TheTVDB identifier.
func (s Series) TvdbID() (string, bool) {
	for k, v := range s.ProviderIDs {
		if strings.EqualFold(k, "tvdb") && v != "" {
			return v, true
		}
	}
	return "", false
}

// StartYear is the production year, falling back to the premiere year.
func (s Series) StartYear() int {
	if s.ProductionYear > 0 {
		return s.ProductionYear
	}
	if s.PremiereDate != nil {
		return s.PremiereDate.Year()
	}
	return 0
}

// Collection is a box set. It is counted, never expanded.
type Collection struct {
	ID   string
	Name string
}

type User struct {
	ID   string
	Name string
	// Active users take part in library-wide rankings.
	Active bool
}

type WatchState struct {
	Played       bool
	LastPlayedAt *time.Time
}

// UserLibrary is what one user can see and their watch state, keyed by item id.
type UserLibrary struct {
	Visible map[string]bool
	States  map[string]WatchState
}
