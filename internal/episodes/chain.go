package episodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/config"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ledger"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/logging"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/sonarr"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/tvdb"
)

// ChainCounter asks each counter in turn and returns the first answer.
type ChainCounter struct {
	counters []ledger.EpisodeCounter
}

// Chain builds a ChainCounter. With no counters every lookup fails.
func Chain(counters ...ledger.EpisodeCounter) *ChainCounter {
	return &ChainCounter{counters: counters}
}

func (c *ChainCounter) EpisodeCounts(ctx context.Context, showID string) (ledger.Counts, error) {
	if len(c.counters) == 0 {
		return ledger.Counts{}, errors.New("no episode count provider configured")
	}
	var errs []error
	for _, counter := range c.counters {
		counts, err := counter.EpisodeCounts(ctx, showID)
		if err == nil {
			return counts, nil
		}
		if ctx.Err() != nil {
			return ledger.Counts{}, ctx.Err()
		}
		errs = append(errs, err)
	}
	return ledger.Counts{}, errors.Join(errs...)
}

// FromConfig builds the configured provider chain. Each provider is
// wrapped in its own circuit breaker so one failing source does not slow
// down the others.
func FromConfig(cfg *config.Config, logger *logging.Logger) (*ChainCounter, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	var counters []ledger.EpisodeCounter
	for _, name := range cfg.Episodes.Providers {
		var next ledger.EpisodeCounter
		switch name {
		case config.ProviderTvdbCache:
			next = tvdb.NewCacheCounter(cfg.Episodes.TvdbCacheDir)
		case config.ProviderSonarr:
			if cfg.Sonarr.URL == "" || cfg.Sonarr.APIKey == "" {
				return nil, fmt.Errorf("provider %q requires [sonarr] url and api_key", name)
			}
			client := sonarr.NewClient(sonarr.Config{
				URL:     cfg.Sonarr.URL,
				APIKey:  cfg.Sonarr.APIKey,
				Timeout: time.Duration(cfg.Sonarr.TimeoutSeconds) * time.Second,
			})
			next = sonarr.NewEpisodeCounter(client)
		default:
			return nil, fmt.Errorf("unknown episode count provider %q", name)
		}

		cb := cfg.Episodes.CircuitBreaker
		counters = append(counters, Resilient(next, ResilientOptions{
			Name:             name,
			FailureThreshold: cb.FailureThreshold,
			FailureWindow:    time.Duration(cb.FailureWindowSeconds) * time.Second,
			Cooldown:         time.Duration(cb.CooldownSeconds) * time.Second,
			RatePerSecond:    cfg.Episodes.RatePerSecond,
			Burst:            cfg.Episodes.Burst,
			Logger:           logger,
		}))
	}
	logger.Debug("episodes", "episode count providers configured", logging.F("providers", cfg.Episodes.Providers))
	return Chain(counters...), nil
}
