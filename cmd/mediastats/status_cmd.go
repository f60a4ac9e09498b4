package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/aggregate"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/database"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ui"
)

func newStatusCmd(g *globals) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent runs",
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

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			ui.Section(out, "Last run per mode")
			for _, mode := range aggregate.Modes {
				run, err := db.LastRunForMode(ctx, mode)
				if err != nil {
					return err
				}
				if run == nil {
					fmt.Fprintf(out, "  %-6s %s\n", mode, ui.Dim("never"))
					continue
				}
				fmt.Fprintf(out, "  %-6s %s %s\n", mode, ui.Status(run.Status), ui.Dim(ui.FormatAgo(run.StartedAt)))
			}

			runs, err := db.RecentRuns(ctx, limit)
			if err != nil {
				return err
			}
			ui.Section(out, "Recent runs")
			if len(runs) == 0 {
				ui.InfoMsg(out, "No runs recorded yet")
				return nil
			}
			t := ui.NewTable("Started", "Mode", "Status", "Duration", "Users", "Series", "Notes")
			for _, r := range runs {
				t.AddRow(
					r.StartedAt.Local().Format("2006-01-02 15:04"),
					r.Mode,
					ui.Status(r.Status),
					duration(r),
					strconv.Itoa(r.Users),
					strconv.Itoa(r.Series),
					notes(r),
				)
			}
			t.Render(out)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to list")

	return cmd
}

func duration(r database.Run) string {
	if r.Status == database.StatusRunning {
		return "-"
	}
	return ui.FormatDuration(r.Duration)
}

func notes(r database.Run) string {
	switch {
	case r.ErrorMessage != "":
		return r.ErrorMessage
	case r.LookupsFailed:
		return "episode totals incomplete"
	case len(r.Skipped) > 0:
		total := 0
		for _, n := range r.Skipped {
			total += n
		}
		return fmt.Sprintf("%d items skipped", total)
	}
	return ""
}
