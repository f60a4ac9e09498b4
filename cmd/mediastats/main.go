package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/config"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/database"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/logging"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/paths"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ui"
)

var version = "dev" // Set by build flags: -ldflags="-X main.version=1.0.0"

// globals holds the persistent flags.
type globals struct {
	cfgFile string
	verbose bool
	noColor bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "mediastats",
		Short: "Library statistics for Jellyfin and Emby servers",
		Long: `mediastats reads the movie and TV library of a Jellyfin or Emby server,
works out what every user has watched and stores the resulting statistics:
library cards, per-user cards and show completion progress.

Run modes:
  full   every statistic, per-user cards and fresh episode totals
  tv     per-user show progress only, with fresh episode totals
  media  library cards only, reusing the stored episode totals`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.noColor {
				ui.DisableColors()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.cfgFile, "config", "", "config file (default: ~/.config/mediastats/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newRunCmd(g))
	rootCmd.AddCommand(newShowCmd(g))
	rootCmd.AddCommand(newProgressCmd(g))
	rootCmd.AddCommand(newUsersCmd(g))
	rootCmd.AddCommand(newStatusCmd(g))
	rootCmd.AddCommand(newConfigCmd(g))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func (g *globals) configPath() (string, error) {
	if g.cfgFile != "" {
		return g.cfgFile, nil
	}
	return paths.ConfigPath()
}

func (g *globals) loadConfig() (*config.Config, error) {
	path, err := g.configPath()
	if err != nil {
		return nil, fmt.Errorf("unable to get config path: %w", err)
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}
	if g.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// newLogger writes to the configured log file only; the terminal belongs
// to command output.
func (g *globals) newLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := cfg.LoggerConfig()
	logCfg.Console = g.verbose
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create logger: %w", err)
	}
	return logger, nil
}

// openStore opens the result database without contacting the server.
func openStore(cfg *config.Config) (*database.StatsDB, error) {
	db, err := database.OpenPath(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	return db, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mediastats %s\n", version)
		},
	}
}
