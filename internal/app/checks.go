package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/config"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/sonarr"
)

// Severity of a setup issue.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Check is the outcome of probing one external dependency.
type Check struct {
	Service  string
	OK       bool
	Detail   string
	Severity string
}

// Report contains every check that ran.
type Report struct {
	Checks  []Check
	Healthy bool
}

// CheckSetup probes the media server, the episode count providers and the
// TVDB cache. A critical failure makes the report unhealthy; warnings do
// not.
func CheckSetup(ctx context.Context, cfg *config.Config) Report {
	checks := []Check{checkServer(ctx, cfg)}
	for _, p := range cfg.Episodes.Providers {
		switch p {
		case config.ProviderTvdbCache:
			checks = append(checks, checkTvdbCache(cfg.Episodes.TvdbCacheDir))
		case config.ProviderSonarr:
			checks = append(checks, checkSonarr(ctx, cfg))
		}
	}

	report := Report{Checks: checks, Healthy: true}
	for _, c := range checks {
		if !c.OK && c.Severity == SeverityCritical {
			report.Healthy = false
		}
	}
	return report
}

func checkServer(ctx context.Context, cfg *config.Config) Check {
	c := Check{Service: "server", Severity: SeverityCritical}
	client := NewClient(cfg)

	info, err := client.GetSystemInfo(ctx)
	if err != nil {
		c.Detail = err.Error()
		return c
	}
	folders, err := client.GetVirtualFolders(ctx)
	if err != nil {
		c.Detail = fmt.Sprintf("connected to %s but listing libraries failed: %v", info.ServerName, err)
		return c
	}

	var names []string
	hasMovies, hasShows := false, false
	for _, f := range folders {
		switch f.CollectionType {
		case "movies":
			hasMovies = true
		case "tvshows":
			hasShows = true
		}
		names = append(names, f.Name)
	}
	c.OK = true
	c.Detail = fmt.Sprintf("%s %s (libraries: %s)", info.ServerName, info.Version, strings.Join(names, ", "))
	if !hasMovies || !hasShows {
		c.Severity = SeverityWarning
		c.OK = false
		c.Detail += "; no movie or no tv library found"
	}
	return c
}

func checkSonarr(ctx context.Context, cfg *config.Config) Check {
	c := Check{Service: "sonarr", Severity: SeverityWarning}
	client := sonarr.NewClient(sonarr.Config{
		URL:     cfg.Sonarr.URL,
		APIKey:  cfg.Sonarr.APIKey,
		Timeout: time.Duration(cfg.Sonarr.TimeoutSeconds) * time.Second,
	})
	status, err := client.GetSystemStatus(ctx)
	if err != nil {
		c.Detail = err.Error()
		return c
	}
	c.OK = true
	c.Detail = fmt.Sprintf("%s %s", status.AppName, status.Version)
	return c
}

func checkTvdbCache(dir string) Check {
	c := Check{Service: "tvdb_cache", Severity: SeverityWarning}
	root := filepath.Join(dir, "tvdb")
	entries, err := os.ReadDir(root)
	if err != nil {
		c.Detail = fmt.Sprintf("cannot read %s: %v", root, err)
		return c
	}
	shows := 0
	for _, e := range entries {
		if e.IsDir() {
			shows++
		}
	}
	c.OK = shows > 0
	c.Detail = fmt.Sprintf("%d cached shows in %s", shows, root)
	return c
}
