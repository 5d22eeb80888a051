package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Herman-H/Snake-Robot-Display/internal/infra/buildinfo"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 5 * time.Second

// HTTPClient queries the status routes of a running snakeview.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for server. A server without a scheme is
// reached over http, and a bare ":port" means localhost.
func NewHTTPClient(server string, timeout time.Duration) *HTTPClient {
	baseURL := strings.TrimRight(server, "/")
	if strings.HasPrefix(baseURL, ":") {
		baseURL = "localhost" + baseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "snakeview/"+buildinfo.Version)
	return c.client.Do(req)
}

// Health checks that the process answers /health.
func (c *HTTPClient) Health(ctx context.Context) error {
	resp, err := c.Get(ctx, "/health")
	if err != nil {
		return err
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := ParseResponse(resp, &body); err != nil {
		return err
	}
	if body.Status != "ok" {
		return fmt.Errorf("unhealthy: status %q", body.Status)
	}
	return nil
}

// Status returns the /status document of the process.
func (c *HTTPClient) Status(ctx context.Context) (map[string]any, error) {
	resp, err := c.Get(ctx, "/status")
	if err != nil {
		return nil, err
	}
	var status map[string]any
	if err := ParseResponse(resp, &status); err != nil {
		return nil, err
	}
	return status, nil
}

// ParseResponse decodes a JSON response body into target and closes it.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: not served", resp.Request.URL.Path)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
