// Package stats computes the fixed set of library statistics ("stat cards")
// from a catalog snapshot and its episode ledger.
package stats

// Result is one stat card. Field names are read verbatim by the dashboard.
type Result struct {
	Title            string `json:"Title"`
	ValueLineOne     string `json:"ValueLineOne"`
	ValueLineTwo     string `json:"ValueLineTwo"`
	ValueLineThree   string `json:"ValueLineThree,omitempty"`
	ExtraInformation string `json:"ExtraInformation,omitempty"`
	Size             string `json:"Size,omitempty"`
	Id               string `json:"Id,omitempty"`
	Raw              int64  `json:"Raw,omitempty"`
}

// Layout hints.
const (
	SizeHalf  = "half"
	SizeLarge = "large"
)

// NoData fills the first line of a card whose candidate set is empty.
const NoData = "NO DATA FOUND!"

const (
	TitleFavoriteMovieGenres  = "Favorite Movie Genres"
	TitleFavoriteShowGenres   = "Favorite Show Genres"
	TitleLastSeenMovies       = "Last Seen Movies"
	TitleLastSeenShows        = "Last Seen TV Series"
	TitleTotalWatched         = "Total Time Watched"
	TitleTotalWatchableTime   = "Total Watchable Time"
	TitleFavoriteYears        = "Favorite Movie Years"
	TitleMostActiveUsers      = "Most Active Users"
	TitleTotalMovies          = "Total Movies"
	TitleTotalMoviesWatched   = "Total Movies Watched"
	TitleTotalCollections     = "Total Collections"
	TitleTotalShows           = "Total TV Series"
	TitleTotalEpisodes        = "Total Episodes"
	TitleTotalEpisodesWatched = "Total Episodes Watched"
	TitleTotalShowsFinished   = "Total Series Finished"
	TitleMediaQualities       = "Media Qualities"
	TitleMediaCodecs          = "Media Codecs"
	TitleLongestMovie         = "Longest Movie Runtime"
	TitleLongestShow          = "Longest TV Series Runtime"
	TitleBiggestMovie         = "Largest Movie"
	TitleBiggestShow          = "Largest TV Series Total Size"
	TitleMostWatchedShows     = "Most Watched Shows"
	TitleLeastWatchedShows    = "Least Watched Shows"
	TitleOldestMovie          = "Oldest Premiered Movie"
	TitleNewestMovie          = "Newest Premiered Movie"
	TitleOldestShow           = "Oldest Premiered Show"
	TitleNewestShow           = "Newest Premiered Show"
	TitleNewestAddedMovie     = "Newest Added Movie"
	TitleNewestAddedEpisode   = "Newest Added Episode"
	TitleHighestRating        = "Highest Movie Rating"
	TitleLowestRating         = "Lowest Movie Rating"
	TitleHighestBitrate       = "Highest Movie Bitrate"
	TitleLowestBitrate        = "Lowest Movie Bitrate"
	TitleTotalStudios         = "Total Studios"
	TitleTotalNetworks        = "Total Networks"
	TitleTotalUsers           = "Total Users"
)

// Help texts shown next to user-scoped cards.
const (
	helpMostActiveUsers      = "Top 5 users that are the most active on the server. This includes viewing movies and episodes."
	helpTotalMovies          = "Total movies this user can see in their library."
	helpTotalMoviesWatched   = "Total movies this user has watched."
	helpTotalEpisodesWatched = "Total episodes this user has watched."
	helpMostWatchedShows     = "Most watched shows based on episodes finished, not series completed."
	helpLeastWatchedShows    = "Least watched shows based on episodes finished, not series completed."
	helpQualities            = "Entries with Resolution Not Available are logged at debug level under Media Qualities."
	helpCodecs               = "Entries with Unknown are logged at debug level under Media Codecs."
	helpTotalShowsFinished   = "Total shows this user has finished watching. Only normal episodes count, specials are not needed."
	helpTotalShows           = "Total TV Series this user can see in their library."
	helpTotalEpisodes        = "Total episodes this user can see in their library."
	helpTotalCollections     = "Total collections this user can see in their library."
	helpFavoriteYears        = "Top 5 years the user watched movies."
	helpFavoriteMovieGenres  = "Top 3 movie genres in the user's library."
	helpFavoriteShowGenres   = "Top 3 show genres in the user's library."
)

// QualityList groups movies by the leading word of their video stream title
// (for example "1080p" or "4K").
type QualityList struct {
	Count  int            `json:"Count"`
	Movies []QualityGroup `json:"Movies"`
}

type QualityGroup struct {
	Title  string     `json:"Title"`
	Movies []MovieRef `json:"Movies"`
}

type MovieRef struct {
	Id   string `json:"Id"`
	Name string `json:"Name"`
	Year int    `json:"Year,omitempty"`
}
