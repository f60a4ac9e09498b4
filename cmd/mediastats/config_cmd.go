package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/app"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/config"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ui"
)

func newConfigCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage mediastats configuration",
		Long: `Commands for managing mediastats configuration.

The config file is stored at: ~/.config/mediastats/config.toml

Examples:
  mediastats config init              # Create default config file
  mediastats config show              # Display current configuration
  mediastats config test              # Test all connections
  mediastats config path              # Show config file path`,
	}

	cmd.AddCommand(newConfigInitCmd(g))
	cmd.AddCommand(newConfigShowCmd(g))
	cmd.AddCommand(newConfigTestCmd(g))
	cmd.AddCommand(newConfigPathCmd(g))

	return cmd
}

func newConfigInitCmd(g *globals) *cobra.Command {
	var (
		force     bool
		serverURL string
		apiKey    string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Long: `Create a new configuration file with default values and a fresh API
token for the daemon's run trigger.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := g.configPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}

			cfg := config.DefaultConfig()
			if serverURL != "" {
				cfg.Server.URL = serverURL
			}
			cfg.Server.APIKey = apiKey
			token, err := config.GenerateAPIToken()
			if err != nil {
				return err
			}
			cfg.Daemon.APIToken = token

			if err := cfg.SaveTo(path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			out := cmd.OutOrStdout()
			ui.SuccessMsg(out, "Created config file: %s", path)
			fmt.Fprintln(out, "\nNext steps:")
			fmt.Fprintln(out, "  1. Set [server] url and api_key and [episodes] tvdb_cache_dir")
			fmt.Fprintln(out, "  2. Run 'mediastats config test' to verify connections")
			fmt.Fprintln(out, "  3. Run 'mediastats run' to compute the first statistics")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config file")
	cmd.Flags().StringVar(&serverURL, "server-url", "", "media server URL")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "media server API key")

	return cmd
}

func newConfigShowCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := g.configPath()
			if err != nil {
				return err
			}
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config file: %s\n", path)
			if _, err := os.Stat(path); err != nil {
				fmt.Fprintln(out, ui.Dim("(not found, showing defaults)"))
			}

			fmt.Fprintln(out, "\n=== Server ===")
			fmt.Fprintf(out, "URL:     %s\n", cfg.Server.URL)
			fmt.Fprintf(out, "API Key: %s\n", maskAPIKey(cfg.Server.APIKey))
			fmt.Fprintf(out, "Timeout: %ds\n", cfg.Server.TimeoutSeconds)

			fmt.Fprintln(out, "\n=== Episodes ===")
			fmt.Fprintf(out, "Providers:  %s\n", strings.Join(cfg.Episodes.Providers, ", "))
			fmt.Fprintf(out, "TVDB cache: %s\n", cfg.Episodes.TvdbCacheDir)
			fmt.Fprintf(out, "Workers:    %d\n", cfg.Episodes.Workers)
			fmt.Fprintf(out, "Rate:       %.1f/s (burst %d)\n", cfg.Episodes.RatePerSecond, cfg.Episodes.Burst)

			fmt.Fprintln(out, "\n=== Sonarr ===")
			fmt.Fprintf(out, "URL:     %s\n", cfg.Sonarr.URL)
			fmt.Fprintf(out, "API Key: %s\n", maskAPIKey(cfg.Sonarr.APIKey))

			fmt.Fprintln(out, "\n=== Stats ===")
			fmt.Fprintf(out, "Workers:  %d\n", cfg.Stats.Workers)
			fmt.Fprintf(out, "Database: %s\n", cfg.DatabasePath())
			fmt.Fprintf(out, "Keep:     %d results\n", cfg.Stats.KeepResults)

			fmt.Fprintln(out, "\n=== Schedule ===")
			fmt.Fprintf(out, "Full:  %s\n", orDisabled(cfg.Schedule.Full))
			fmt.Fprintf(out, "TV:    %s\n", orDisabled(cfg.Schedule.TV))
			fmt.Fprintf(out, "Media: %s\n", orDisabled(cfg.Schedule.Media))

			fmt.Fprintln(out, "\n=== Daemon ===")
			fmt.Fprintf(out, "Address:     %s\n", cfg.Daemon.Addr)
			fmt.Fprintf(out, "API Token:   %s\n", maskAPIKey(cfg.Daemon.APIToken))
			fmt.Fprintf(out, "Watch cache: %v\n", cfg.Daemon.WatchCache)

			fmt.Fprintln(out, "\n=== Logging ===")
			fmt.Fprintf(out, "Level: %s\n", cfg.Logging.Level)
			fmt.Fprintf(out, "File:  %s\n", cfg.LoggerConfig().File)
			return nil
		},
	}
}

func newConfigTestCmd(g *globals) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test connections to the media server and episode sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := cfg.Validate(); err != nil {
				ui.ErrorMsg(out, "Configuration is incomplete:")
				for _, line := range strings.Split(err.Error(), "\n") {
					fmt.Fprintf(out, "  - %s\n", line)
				}
				return fmt.Errorf("invalid configuration")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			report := app.CheckSetup(ctx, cfg)
			for _, c := range report.Checks {
				switch {
				case c.OK:
					ui.SuccessMsg(out, "%s: %s", c.Service, c.Detail)
				case c.Severity == app.SeverityWarning:
					ui.WarningMsg(out, "%s: %s", c.Service, c.Detail)
				default:
					ui.ErrorMsg(out, "%s: %s", c.Service, c.Detail)
				}
			}
			if !report.Healthy {
				return fmt.Errorf("connection test failed")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall test timeout")

	return cmd
}

func newConfigPathCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := g.configPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func maskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func orDisabled(spec string) string {
	if spec == "" {
		return "disabled"
	}
	return spec
}
