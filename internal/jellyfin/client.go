// Package jellyfin reads the library and per-user watch state from a
// Jellyfin or Emby server. Both speak the MediaBrowser API.
package jellyfin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const clientName = "mediastats"

type Config struct {
	URL        string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	// PageSize bounds the items fetched per request. Defaults to 500.
	PageSize int
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	deviceID   string
	hostname   string
	pageSize   int
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = clientName
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
		}
	} else if httpClient.Timeout == 0 {
		httpClient.Timeout = timeout
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 500
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		hostname:   hostname,
		deviceID:   fmt.Sprintf("%s-%s", clientName, hostname),
		pageSize:   pageSize,
	}
}

func (c *Client) authHeader() string {
	return fmt.Sprintf(`MediaBrowser Token="%s", Client="%s", Device="%s", DeviceId="%s", Version="1.0.0"`,
		c.apiKey, clientName, c.hostname, c.deviceID)
}

func (c *Client) request(ctx context.Context, endpoint string, query url.Values, withAuth bool) (*http.Response, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL: %q", c.baseURL)
	}

	fullURL := base.JoinPath(endpoint)
	fullURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if withAuth && c.apiKey != "" {
		req.Header.Set("Authorization", c.authHeader())
		// Emby ignores the MediaBrowser header on some endpoints.
		req.Header.Set("X-Emby-Token", c.apiKey)
	}
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
	resp, err := c.request(ctx, endpoint, query, true)
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
	_, err := c.GetSystemInfo(ctx)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

func (c *Client) GetSystemInfo(ctx context.Context) (*SystemInfo, error) {
	var info SystemInfo
	if err := c.get(ctx, "/System/Info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) GetPublicInfo(ctx context.Context) (*PublicSystemInfo, error) {
	resp, err := c.request(ctx, "/System/Info/Public", nil, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var info PublicSystemInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &info, nil
}

// GetUsers lists every account on the server.
func (c *Client) GetUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.get(ctx, "/Users", nil, &users); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}
