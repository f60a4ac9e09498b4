// Package app builds the components shared by the CLI and the daemon from
// configuration.
package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/aggregate"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/config"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/database"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/episodes"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/jellyfin"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/logging"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/stats"
)

// App holds the wired components. Close releases the database.
type App struct {
	Config  *config.Config
	Logger  *logging.Logger
	DB      *database.StatsDB
	Client  *jellyfin.Client
	Catalog *jellyfin.Catalog
	Counter *episodes.ChainCounter
	Runner  *aggregate.Runner
}

// Options override configuration for a single invocation.
type Options struct {
	// Workers overrides [stats] workers when positive.
	Workers int
}

// New validates cfg and wires the server client, the episode count chain,
// the result store and the runner.
func New(cfg *config.Config, logger *logging.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.Workers > 0 {
		cfg.Stats.Workers = opts.Workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	counter, err := episodes.FromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	db, err := database.OpenPath(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	db.SetRetention(cfg.Stats.KeepResults)

	client := NewClient(cfg)
	cat := jellyfin.NewCatalog(client, logger)

	runner := aggregate.NewRunner(cat, counter, db, aggregate.Options{
		Workers:       cfg.Stats.Workers,
		LedgerWorkers: cfg.Episodes.Workers,
		LookupTimeout: cfg.LookupTimeout(),
		Provider:      strings.Join(cfg.Episodes.Providers, ","),
		Files:         stats.OSFiles{},
		Logger:        logger,
	})

	logger.Debug("app", "Components ready",
		logging.F("server", cfg.Server.URL),
		logging.F("database", db.Path()),
		logging.F("providers", cfg.Episodes.Providers))

	return &App{
		Config:  cfg,
		Logger:  logger,
		DB:      db,
		Client:  client,
		Catalog: cat,
		Counter: counter,
		Runner:  runner,
	}, nil
}

// NewClient builds the media server client from [server].
func NewClient(cfg *config.Config) *jellyfin.Client {
	return jellyfin.NewClient(jellyfin.Config{
		URL:      cfg.Server.URL,
		APIKey:   cfg.Server.APIKey,
		Timeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		PageSize: cfg.Server.PageSize,
	})
}

func (a *App) Close() error {
	return a.DB.Close()
}
