package sonarr

import "time"

// Series represents a TV series in Sonarr
type Series struct {
	ID         int               `json:"id"`
	Title      string            `json:"title"`
	SortTitle  string            `json:"sortTitle"`
	Year       int               `json:"year"`
	TvdbID     int               `json:"tvdbId"`
	Status     string            `json:"status"`
	Monitored  bool              `json:"monitored"`
	FirstAired string            `json:"firstAired"`
	Statistics *SeriesStatistics `json:"statistics,omitempty"`
}

// SeriesStatistics contains episode/file statistics for a series
type SeriesStatistics struct {
	SeasonCount       int `json:"seasonCount"`
	EpisodeFileCount  int `json:"episodeFileCount"`
	EpisodeCount      int `json:"episodeCount"`
	TotalEpisodeCount int `json:"totalEpisodeCount"`
}

// Episode represents a TV episode
type Episode struct {
	ID            int        `json:"id"`
	SeriesID      int        `json:"seriesId"`
	SeasonNumber  int        `json:"seasonNumber"`
	EpisodeNumber int        `json:"episodeNumber"`
	Title         string     `json:"title"`
	AirDate       string     `json:"airDate"`
	AirDateUtc    *time.Time `json:"airDateUtc"`
	HasFile       bool       `json:"hasFile"`
}

// SystemStatus is the subset of /system/status used for connectivity checks.
type SystemStatus struct {
	AppName string `json:"appName"`
	Version string `json:"version"`
}
