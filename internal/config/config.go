package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/logging"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/paths"
	"github.com/spf13/viper"
)

// Episode count provider names accepted in [episodes] providers.
const (
	ProviderTvdbCache = "tvdb_cache"
	ProviderSonarr    = "sonarr"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Episodes EpisodesConfig `mapstructure:"episodes"`
	Sonarr   SonarrConfig   `mapstructure:"sonarr"`
	Stats    StatsConfig    `mapstructure:"stats"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Daemon   DaemonConfig   `mapstructure:"daemon"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig points at the Jellyfin or Emby server whose library is measured.
type ServerConfig struct {
	URL            string `mapstructure:"url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	PageSize       int    `mapstructure:"page_size"`
}

// EpisodesConfig controls where authoritative episode counts come from.
type EpisodesConfig struct {
	// Providers are tried in order until one answers.
	Providers            []string             `mapstructure:"providers"`
	TvdbCacheDir         string               `mapstructure:"tvdb_cache_dir"`
	Workers              int                  `mapstructure:"workers"`
	LookupTimeoutSeconds int                  `mapstructure:"lookup_timeout_seconds"`
	RatePerSecond        float64              `mapstructure:"rate_per_second"`
	Burst                int                  `mapstructure:"burst"`
	CircuitBreaker       CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	FailureThreshold     int `mapstructure:"failure_threshold"`
	FailureWindowSeconds int `mapstructure:"failure_window_seconds"`
	CooldownSeconds      int `mapstructure:"cooldown_seconds"`
}

// SonarrConfig contains Sonarr integration settings
type SonarrConfig struct {
	URL            string `mapstructure:"url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type StatsConfig struct {
	Workers     int    `mapstructure:"workers"`
	Database    string `mapstructure:"database"`
	KeepResults int    `mapstructure:"keep_results"`
}

// ScheduleConfig holds cron specs per run mode. Empty disables the mode.
type ScheduleConfig struct {
	Full  string `mapstructure:"full"`
	TV    string `mapstructure:"tv"`
	Media string `mapstructure:"media"`
}

type DaemonConfig struct {
	Addr            string `mapstructure:"addr"`
	APIToken        string `mapstructure:"api_token"`
	WatchCache      bool   `mapstructure:"watch_cache"`
	DebounceSeconds int    `mapstructure:"debounce_seconds"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	Console    bool   `mapstructure:"console"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:            "http://localhost:8096",
			TimeoutSeconds: 30,
			PageSize:       500,
		},
		Episodes: EpisodesConfig{
			Providers:            []string{ProviderTvdbCache},
			TvdbCacheDir:         "/var/cache/jellyfin",
			Workers:              4,
			LookupTimeoutSeconds: 15,
			RatePerSecond:        5,
			Burst:                5,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold:     5,
				FailureWindowSeconds: 120,
				CooldownSeconds:      30,
			},
		},
		Sonarr: SonarrConfig{
			TimeoutSeconds: 30,
		},
		Stats: StatsConfig{
			Workers:     4,
			KeepResults: 10,
		},
		Schedule: ScheduleConfig{
			Full: "30 0 * * 0",
			TV:   "15 0 * * *",
		},
		Daemon: DaemonConfig{
			Addr:            ":8687",
			WatchCache:      false,
			DebounceSeconds: 30,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Console:    true,
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
	}
}

// Load loads configuration from the default path or returns defaults.
func Load() (*Config, error) {
	configPath, err := paths.ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("unable to get config path: %w", err)
	}
	return LoadFrom(configPath)
}

// LoadFrom loads configuration from path. A missing file yields defaults;
// MEDIASTATS_* environment variables override file values.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix("MEDIASTATS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range []string{"server.url", "server.api_key", "sonarr.url", "sonarr.api_key", "daemon.api_token", "logging.level"} {
		v.BindEnv(key)
	}

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first problem that would prevent a run.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.URL) == "" {
		errs = append(errs, errors.New("server.url is required"))
	}
	if strings.TrimSpace(c.Server.APIKey) == "" {
		errs = append(errs, errors.New("server.api_key is required"))
	}
	if len(c.Episodes.Providers) == 0 {
		errs = append(errs, errors.New("episodes.providers must list at least one provider"))
	}
	for _, p := range c.Episodes.Providers {
		switch p {
		case ProviderTvdbCache:
			if c.Episodes.TvdbCacheDir == "" {
				errs = append(errs, errors.New("episodes.tvdb_cache_dir is required for tvdb_cache"))
			}
		case ProviderSonarr:
			if c.Sonarr.URL == "" || c.Sonarr.APIKey == "" {
				errs = append(errs, errors.New("sonarr.url and sonarr.api_key are required for the sonarr provider"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown episode provider %q", p))
		}
	}
	if c.Stats.Workers < 1 {
		errs = append(errs, errors.New("stats.workers must be at least 1"))
	}
	return errors.Join(errs...)
}

// LoggerConfig converts the [logging] section for logging.New.
func (c *Config) LoggerConfig() logging.Config {
	file := c.Logging.File
	if file == "" {
		if p, err := paths.LogPath(); err == nil {
			file = p
		}
	}
	return logging.Config{
		Level:      c.Logging.Level,
		File:       file,
		Console:    c.Logging.Console,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
	}
}

// DatabasePath returns the configured result database, falling back to the
// default location.
func (c *Config) DatabasePath() string {
	if c.Stats.Database != "" {
		return c.Stats.Database
	}
	dbPath, err := paths.DatabasePath()
	if err != nil {
		return "./stats.db"
	}
	return dbPath
}

func (c *Config) LookupTimeout() time.Duration {
	return time.Duration(c.Episodes.LookupTimeoutSeconds) * time.Second
}

// Save saves configuration to the default path.
func (c *Config) Save() error {
	configFile, err := paths.ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(configFile)
}

func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("unable to create config dir: %w", err)
	}
	// api keys live in this file
	return os.WriteFile(path, []byte(c.ToTOML()), 0600)
}

func ConfigExists() bool {
	path, err := paths.ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func (c *Config) ToTOML() string {
	return fmt.Sprintf(`# mediastats configuration
# Generated by: mediastats config init

# ============================================================================
# MEDIA SERVER
# Jellyfin or Emby server to read the library and per-user watch state from.
# API key: Dashboard -> API Keys
# ============================================================================
[server]
url = %q
api_key = %q
timeout_seconds = %d
page_size = %d

# ============================================================================
# EPISODE COUNTS
# Authoritative aired-episode totals per series, tried in order.
#   tvdb_cache - read the server's TVDB metadata cache
#   sonarr     - ask Sonarr for the series episode list
# ============================================================================
[episodes]
providers = %s
tvdb_cache_dir = %q
workers = %d
lookup_timeout_seconds = %d
rate_per_second = %.2f
burst = %d

[episodes.circuit_breaker]
failure_threshold = %d
failure_window_seconds = %d
cooldown_seconds = %d

[sonarr]
url = %q
api_key = %q
timeout_seconds = %d

# ============================================================================
# STATISTICS
# ============================================================================
[stats]
workers = %d
database = %q
keep_results = %d

# ============================================================================
# SCHEDULE (cron: minute hour day-of-month month day-of-week, empty = off)
# ============================================================================
[schedule]
full = %q
tv = %q
media = %q

# ============================================================================
# DAEMON
# ============================================================================
[daemon]
addr = %q
api_token = %q
watch_cache = %v
debounce_seconds = %d

[logging]
level = %q
file = %q
console = %v
max_size_mb = %d
max_backups = %d
`,
		c.Server.URL, c.Server.APIKey, c.Server.TimeoutSeconds, c.Server.PageSize,
		formatStringSlice(c.Episodes.Providers), c.Episodes.TvdbCacheDir, c.Episodes.Workers,
		c.Episodes.LookupTimeoutSeconds, c.Episodes.RatePerSecond, c.Episodes.Burst,
		c.Episodes.CircuitBreaker.FailureThreshold, c.Episodes.CircuitBreaker.FailureWindowSeconds,
		c.Episodes.CircuitBreaker.CooldownSeconds,
		c.Sonarr.URL, c.Sonarr.APIKey, c.Sonarr.TimeoutSeconds,
		c.Stats.Workers, c.Stats.Database, c.Stats.KeepResults,
		c.Schedule.Full, c.Schedule.TV, c.Schedule.Media,
		c.Daemon.Addr, c.Daemon.APIToken, c.Daemon.WatchCache, c.Daemon.DebounceSeconds,
		c.Logging.Level, c.Logging.File, c.Logging.Console, c.Logging.MaxSizeMB, c.Logging.MaxBackups,
	)
}

func formatStringSlice(s []string) string {
	if len(s) == 0 {
		return "[]"
	}
	quoted := make([]string, len(s))
	for i, v := range s {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
