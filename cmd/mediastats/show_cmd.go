package main

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/aggregate"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/stats"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ui"
)

func newShowCmd(g *globals) *cobra.Command {
	var (
		user   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display the stored statistics",
		Long: `Display the statistics stored by the last successful run.

Examples:
  mediastats show                 # library cards
  mediastats show --user alice    # cards of one user
  mediastats show --json          # the full stored document`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			results, err := db.LatestResults(cmd.Context())
			if errors.Is(err, aggregate.ErrNoResults) {
				return fmt.Errorf("no statistics stored yet (run 'mediastats run' first)")
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if user != "" {
				u, ok := results.User(user)
				if !ok {
					return fmt.Errorf("no statistics for user %q", user)
				}
				if asJSON {
					return writeJSON(out, u)
				}
				printUser(out, results.LastUpdated, u)
				return nil
			}

			if asJSON {
				return writeJSON(out, results)
			}
			printLibrary(out, results)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "show the cards of one user")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printLibrary(w io.Writer, r *aggregate.Results) {
	fmt.Fprintf(w, "Last updated: %s\n", ui.Value(r.LastUpdated))

	ui.Section(w, "Library")
	cards(w, r.TotalUsers, r.MostActiveUsers, r.MovieQualities, r.MovieCodecs)

	ui.Section(w, "Movies")
	cards(w, r.TotalMovies, r.TotalBoxsets, r.TotalMovieStudios, r.BiggestMovie, r.LongestMovie,
		r.OldestMovie, r.NewestMovie, r.NewestAddedMovie, r.HighestRating, r.LowestRating,
		r.HighestBitrateMovie, r.LowestBitrateMovie)

	ui.Section(w, "Shows")
	cards(w, r.TotalShows, r.TotalShowStudios, r.MostWatchedShows, r.LeastWatchedShows,
		r.BiggestShow, r.LongestShow, r.OldestShow, r.NewestShow, r.NewestAddedEpisode)

	if r.TotalEpisodeCounts.Failed {
		ui.WarningMsg(w, "Episode totals of the last run were incomplete")
	}
}

func printUser(w io.Writer, updated string, u aggregate.UserStat) {
	fmt.Fprintf(w, "%s  %s\n", ui.Title(u.UserName), ui.Dim("last updated "+updated))

	ui.Section(w, "Overall")
	cards(w, u.OverallStats...)
	ui.Section(w, "Movies")
	cards(w, u.MovieStats...)
	ui.Section(w, "Shows")
	cards(w, u.ShowStats...)
}

func cards(w io.Writer, results ...stats.Result) {
	t := ui.NewTable("Statistic", "Value", "Details")
	for _, r := range results {
		if r.Title == "" {
			continue
		}
		t.AddRow(r.Title, plain(r.ValueLineOne), plain(joinLines(r.ValueLineTwo, r.ValueLineThree)))
	}
	t.Render(w)
}

func joinLines(lines ...string) string {
	var parts []string
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, " / ")
}

var (
	cellBreak = regexp.MustCompile(`</t[dh]>\s*<t[dh][^>]*>`)
	rowBreak  = regexp.MustCompile(`</tr>\s*(<tr[^>]*>)?`)
	anyTag    = regexp.MustCompile(`<[^>]+>`)
)

// plain flattens the HTML table markup some cards carry for the
// dashboard.
func plain(s string) string {
	s = cellBreak.ReplaceAllString(s, " ")
	s = rowBreak.ReplaceAllString(s, "; ")
	s = anyTag.ReplaceAllString(s, "")
	return strings.TrimSuffix(strings.TrimSpace(s), ";")
}
