// internal/identity/client.go
// Package identity provides a client for an external user service.
// When configured it answers "does this user exist" in place of the
// local accounts table.
package identity

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Client for interacting with the user service.
type Client struct {
	base string       // Base URL of the user service
	hc   *http.Client // HTTP client with custom configuration
}

// New creates a new identity client with the specified base URL.
// It configures appropriate timeouts for user service requests.
// Parameters:
//   - baseURL: Base URL of the user service
//
// Returns:
//   - *Client: Initialized identity client
func New(baseURL string) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: 2 * time.Second}).DialContext,
	}

	return &Client{
		base: baseURL,
		hc:   &http.Client{Transport: transport, Timeout: 3 * time.Second},
	}
}

// Exists reports whether the user service knows userID.
// It issues GET {base}/users/{userID}: 200 means yes, 404 means no,
// anything else is an error.
func (c *Client) Exists(ctx context.Context, userID string) (bool, error) {
	u, err := url.Parse(c.base)
	if err != nil {
		return false, fmt.Errorf("invalid identity base URL: %w", err)
	}
	u = u.JoinPath("users", userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return false, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("identity lookup failed: %s", resp.Status)
	}
}
