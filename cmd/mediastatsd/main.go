package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/aggregate"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/api"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/app"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/config"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/daemon"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/logging"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/paths"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/scheduler"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/watcher"
)

var version = "dev"

type options struct {
	cfgFile  string
	addr     string
	runFirst string
	verbose  bool
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "mediastatsd",
		Short: "mediastats daemon service",
		Long: `mediastatsd computes library statistics on a schedule and serves them
over HTTP. It can also watch the server's TVDB cache and refresh show
progress when episode lists change.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&opts.addr, "addr", "", "API listen address (default: [daemon] addr)")
	rootCmd.PersistentFlags().StringVar(&opts.runFirst, "run-at-start", "", "run this mode once at startup: full, tv, media")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mediastatsd %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(opts *options) (*config.Config, error) {
	path := opts.cfgFile
	if path == "" {
		p, err := paths.ConfigPath()
		if err != nil {
			return nil, fmt.Errorf("unable to get config path: %w", err)
		}
		path = p
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}
	if opts.addr != "" {
		cfg.Daemon.Addr = opts.addr
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func runDaemon(parent context.Context, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LoggerConfig())
	if err != nil {
		return fmt.Errorf("unable to create logger: %w", err)
	}
	defer logger.Close()

	a, err := app.New(cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := scheduler.New(scheduler.Config{
		Specs: map[aggregate.Mode]string{
			aggregate.ModeFull:  cfg.Schedule.Full,
			aggregate.ModeTV:    cfg.Schedule.TV,
			aggregate.ModeMedia: cfg.Schedule.Media,
		},
		Runner: a.Runner,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	apiServer := api.NewServer(api.Config{
		Store:     a.DB,
		Scheduler: sched,
		APIToken:  cfg.Daemon.APIToken,
		Logger:    logger,
	})
	server := daemon.NewServer(apiServer, cfg.Daemon.Addr, logger)

	var w *watcher.Watcher
	if cfg.Daemon.WatchCache {
		if !slices.Contains(cfg.Episodes.Providers, config.ProviderTvdbCache) {
			logger.Warn("daemon", "watch_cache is set but the tvdb_cache provider is not configured; not watching")
		} else {
			handler := daemon.NewRefreshHandler(sched, time.Minute, logger)
			w, err = watcher.NewWatcher(
				filepath.Join(cfg.Episodes.TvdbCacheDir, "tvdb"),
				handler.HandleShows,
				watcher.WithDebounce(time.Duration(cfg.Daemon.DebounceSeconds)*time.Second),
				watcher.WithLogger(logger),
			)
			if err != nil {
				return fmt.Errorf("unable to create watcher: %w", err)
			}
		}
	}

	if cfg.Daemon.APIToken == "" {
		logger.Warn("daemon", "No [daemon] api_token set; POST /api/v1/runs is disabled")
	}

	logger.Info("daemon", "mediastatsd started",
		logging.F("version", version),
		logging.F("server", cfg.Server.URL),
		logging.F("addr", cfg.Daemon.Addr),
		logging.F("schedule_full", cfg.Schedule.Full),
		logging.F("schedule_tv", cfg.Schedule.TV),
		logging.F("schedule_media", cfg.Schedule.Media),
		logging.F("watch_cache", w != nil),
		logging.F("log_file", logger.FilePath()))

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.runFirst != "" {
		mode, err := aggregate.ParseMode(opts.runFirst)
		if err != nil {
			return err
		}
		if err := sched.TriggerNow(mode); err != nil {
			logger.Warn("daemon", "Startup run not started", logging.F("error", err.Error()))
		}
	}

	return daemon.NewDaemon(sched, server, w, logger).Run(ctx)
}
