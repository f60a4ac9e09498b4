package stats

import (
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/catalog"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/logging"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/progress"
)

// Ranking returns the series averaged over the active users, in sort-name
// order. It is computed once per Calculator.
func (c *Calculator) Ranking() []progress.Row {
	c.rankOnce.Do(func() {
		users := c.snap.ActiveUsers()
		c.ranking = progress.Rank(c.snap, c.ledger, users)
		c.logger.Debug("stats", "ranked series", logging.F("series", len(c.ranking)), logging.F("users", len(users)))
	})
	return c.ranking
}

func ranked(title, extra string, rows []progress.Row) Result {
	names := progress.TopNames(rows)
	return Result{
		Title:            title,
		ValueLineOne:     names[0],
		ValueLineTwo:     names[1],
		ValueLineThree:   names[2],
		ExtraInformation: extra,
	}
}

// MostWatchedShows names the three series with the highest average seen
// percentage across active users. The ranking ignores scope.
func (c *Calculator) MostWatchedShows(catalog.Scope) Result {
	return ranked(TitleMostWatchedShows, helpMostWatchedShows, progress.MostWatched(c.Ranking()))
}

// LeastWatchedShows names the three series with the lowest average seen
// percentage.
func (c *Calculator) LeastWatchedShows(catalog.Scope) Result {
	return ranked(TitleLeastWatchedShows, helpLeastWatchedShows, progress.LeastWatched(c.Ranking()))
}

// ShowProgress returns the unaveraged progress rows of one user.
func (c *Calculator) ShowProgress(u catalog.User) []progress.Row {
	return progress.ForUser(c.snap, c.ledger, u)
}
