// Package sonarr is a small Sonarr v3 API client used as a fallback source
// of authoritative episode counts.
package sonarr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
)

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) request(ctx context.Context, method, endpoint string, query url.Values) (*http.Response, error) {
	fullURL, err := url.JoinPath(c.baseURL, endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	return resp, nil
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, result any) error {
	resp, err := c.request(ctx, http.MethodGet, endpoint, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.GetSystemStatus(ctx)
	return err
}

func (c *Client) GetSystemStatus(ctx context.Context) (*SystemStatus, error) {
	var status SystemStatus
	if err := c.get(ctx, "/api/v3/system/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetSeriesByTvdbID returns nil, nil when Sonarr does not track the show.
func (c *Client) GetSeriesByTvdbID(ctx context.Context, tvdbID int) (*Series, error) {
	var series []Series
	q := url.Values{"tvdbId": {fmt.Sprint(tvdbID)}}
	if err := c.get(ctx, "/api/v3/series", q, &series); err != nil {
		return nil, err
	}
	for i := range series {
		if series[i].TvdbID == tvdbID {
			return &series[i], nil
		}
	}
	return nil, nil
}

func (c *Client) GetEpisodes(ctx context.Context, seriesID int) ([]Episode, error) {
	var episodes []Episode
	q := url.Values{"seriesId": {fmt.Sprint(seriesID)}}
	if err := c.get(ctx, "/api/v3/episode", q, &episodes); err != nil {
		return nil, err
	}
	return episodes, nil
}
