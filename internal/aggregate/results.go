package aggregate

import (
	"strings"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ledger"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/progress"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/stats"
)

// TimeLayout formats LastUpdated and LastUpdateTime.
const TimeLayout = "2006-01-02 15:04"

// Results is the document a run persists. Keys are read verbatim by the
// dashboard.
type Results struct {
	LastUpdated string `json:"LastUpdated"`
	ServerId    string `json:"ServerId"`

	MovieQualities  stats.Result `json:"MovieQualities"`
	MovieCodecs     stats.Result `json:"MovieCodecs"`
	MostActiveUsers stats.Result `json:"MostActiveUsers"`
	TotalUsers      stats.Result `json:"TotalUsers"`

	TotalMovies         stats.Result `json:"TotalMovies"`
	TotalBoxsets        stats.Result `json:"TotalBoxsets"`
	TotalMovieStudios   stats.Result `json:"TotalMovieStudios"`
	BiggestMovie        stats.Result `json:"BiggestMovie"`
	LongestMovie        stats.Result `json:"LongestMovie"`
	OldestMovie         stats.Result `json:"OldestMovie"`
	NewestMovie         stats.Result `json:"NewestMovie"`
	HighestRating       stats.Result `json:"HighestRating"`
	LowestRating        stats.Result `json:"LowestRating"`
	NewestAddedMovie    stats.Result `json:"NewestAddedMovie"`
	HighestBitrateMovie stats.Result `json:"HighestBitrateMovie"`
	LowestBitrateMovie  stats.Result `json:"LowestBitrateMovie"`

	TotalShows         stats.Result `json:"TotalShows"`
	TotalShowStudios   stats.Result `json:"TotalShowStudios"`
	MostWatchedShows   stats.Result `json:"MostWatchedShows"`
	LeastWatchedShows  stats.Result `json:"LeastWatchedShows"`
	BiggestShow        stats.Result `json:"BiggestShow"`
	LongestShow        stats.Result `json:"LongestShow"`
	OldestShow         stats.Result `json:"OldestShow"`
	NewestShow         stats.Result `json:"NewestShow"`
	NewestAddedEpisode stats.Result `json:"NewestAddedEpisode"`

	MovieQualityItems stats.QualityList `json:"MovieQualityItems"`

	UserStats          []UserStat    `json:"UserStats"`
	TotalEpisodeCounts EpisodeCounts `json:"TotalEpisodeCounts"`
}

// UserStat holds the cards and show progress of one user.
type UserStat struct {
	UserName       string         `json:"UserName"`
	OverallStats   []stats.Result `json:"OverallStats"`
	MovieStats     []stats.Result `json:"MovieStats"`
	ShowStats      []stats.Result `json:"ShowStats"`
	ShowProgresses []progress.Row `json:"ShowProgresses"`
}

// EpisodeCounts records the authoritative totals of the last ledger build.
type EpisodeCounts struct {
	LastUpdateTime string      `json:"LastUpdateTime"`
	Failed         bool        `json:"Failed"`
	IdList         []ShowCount `json:"IdList"`
}

type ShowCount struct {
	ShowId   string `json:"ShowId"`
	Count    int    `json:"Count"`
	Specials int    `json:"Specials"`
}

// User finds the stats of a user by name, ignoring case.
func (r *Results) User(name string) (UserStat, bool) {
	for _, u := range r.UserStats {
		if strings.EqualFold(u.UserName, name) {
			return u, true
		}
	}
	return UserStat{}, false
}

// StaticCounts replays the stored totals as an episode counter.
func (r *Results) StaticCounts() ledger.StaticCounts {
	out := make(ledger.StaticCounts, len(r.TotalEpisodeCounts.IdList))
	for _, sc := range r.TotalEpisodeCounts.IdList {
		out[sc.ShowId] = ledger.Counts{Episodes: sc.Count, Specials: sc.Specials}
	}
	return out
}

func episodeCounts(l *ledger.Ledger, updated string) EpisodeCounts {
	shows := l.ShowCounts()
	out := EpisodeCounts{
		LastUpdateTime: updated,
		Failed:         l.Failed(),
		IdList:         make([]ShowCount, 0, len(shows)),
	}
	for _, sc := range shows {
		out.IdList = append(out.IdList, ShowCount{ShowId: sc.ShowID, Count: sc.Episodes, Specials: sc.Specials})
	}
	return out
}

// mergeShowProgress replaces the show progress of each user in stats,
// adding users that have no entry yet.
func (r *Results) mergeShowProgress(fresh []UserStat) {
	for _, f := range fresh {
		found := false
		for i := range r.UserStats {
			if r.UserStats[i].UserName == f.UserName {
				r.UserStats[i].ShowProgresses = f.ShowProgresses
				found = true
				break
			}
		}
		if !found {
			r.UserStats = append(r.UserStats, UserStat{UserName: f.UserName, ShowProgresses: f.ShowProgresses})
		}
	}
}
