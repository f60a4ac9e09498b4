package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/aggregate"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/app"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ui"
)

func newRunCmd(g *globals) *cobra.Command {
	var (
		modeName string
		workers  int
		quiet    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute statistics now and store them",
		Long: `Compute statistics from the media server and store them in the result
database. Interrupting a run leaves the previously stored statistics in place.

Examples:
  mediastats run                  # full run
  mediastats run --mode tv        # refresh show progress only
  mediastats run --workers 8      # process up to 8 users at once`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := aggregate.ParseMode(modeName)
			if err != nil {
				return err
			}
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			logger, err := g.newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Close()

			a, err := app.New(cfg, logger, app.Options{Workers: workers})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			var report aggregate.Reporter
			bar := ui.NewProgressBar(out, string(mode)+" run")
			if !quiet {
				report = bar.Report
			}

			summary, err := a.Runner.Run(ctx, mode, report)
			bar.Finish()
			if err != nil {
				ui.ErrorMsg(out, "Run failed: %v", err)
				return err
			}

			ui.SuccessMsg(out, "Run %s complete in %s", summary.RunID, ui.FormatDuration(summary.Duration))
			fmt.Fprintf(out, "  Users:  %s\n", ui.FormatCount(summary.Users))
			fmt.Fprintf(out, "  Series: %s\n", ui.FormatCount(summary.Series))
			if summary.LookupsFailed {
				ui.WarningMsg(out, "Some episode totals could not be looked up; affected shows count as unknown")
			}
			for statistic, n := range summary.Skipped {
				ui.WarningMsg(out, "%s: %d items skipped", statistic, n)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&modeName, "mode", "m", string(aggregate.ModeFull), "run mode: full, tv, media")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "users processed in parallel (default: [stats] workers)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not show progress")

	return cmd
}
