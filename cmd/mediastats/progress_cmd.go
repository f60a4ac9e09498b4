package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/aggregate"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/progress"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ui"
)

func newProgressCmd(g *globals) *cobra.Command {
	var (
		user        string
		order       string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show how far a user is through each show",
		Long: `Show the stored show progress of one user: episodes seen against the
authoritative episode total, and how much of each show the library holds.

Examples:
  mediastats progress --user alice
  mediastats progress --user alice --order most
  mediastats progress --user alice --interactive`,
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
			u, ok := results.User(user)
			if !ok {
				return fmt.Errorf("no statistics for user %q", user)
			}

			if interactive {
				if !ui.IsTerminal() {
					return fmt.Errorf("--interactive needs a terminal")
				}
				return ui.Browse(u.UserName, u.ShowProgresses)
			}

			rows, err := ordered(u.ShowProgresses, order)
			if err != nil {
				return err
			}
			printProgress(cmd.OutOrStdout(), rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "user name (required)")
	cmd.Flags().StringVarP(&order, "order", "o", "name", "sort order: name, most, least")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse in an interactive table")
	cmd.MarkFlagRequired("user")

	return cmd
}

func ordered(rows []progress.Row, order string) ([]progress.Row, error) {
	switch order {
	case "", "name":
		return rows, nil
	case "most":
		return progress.MostWatched(rows), nil
	case "least":
		return progress.LeastWatched(rows), nil
	default:
		return nil, fmt.Errorf("unknown order %q (use name, most or least)", order)
	}
}

func printProgress(w io.Writer, rows []progress.Row) {
	if len(rows) == 0 {
		ui.InfoMsg(w, "No shows in this user's library")
		return
	}
	t := ui.NewTable("Show", "Year", "Status", "Seen", "Collected", "Episodes", "Specials")
	for _, r := range rows {
		t.AddRow(
			r.Name,
			r.StartYear,
			r.Status,
			ui.Percent(r.PercentSeen),
			ui.Percent(r.PercentCollected),
			fmt.Sprintf("%d/%d", r.SeenEpisodes, r.Total),
			fmt.Sprintf("%d/%d", r.SeenSpecials, r.CollectedSpecials),
		)
	}
	t.Render(w)
}
