// Package client provides an HTTP client for the control API, used by the
// CLI and by driver scripts written in Go.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Svigo-o/PoCGen/pkg/api"
	"github.com/Svigo-o/PoCGen/pkg/capture"
)

// ErrNotFound is returned when the requested capture does not exist or has
// been evicted.
var ErrNotFound = errors.New("capture not found")

// Client talks to a running controller instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a client for the API at baseURL, e.g. "http://127.0.0.1:7001".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health checks that the controller is up.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.get(ctx, "/health")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("controller unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// Status returns the controller status.
func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	resp, err := c.get(ctx, "/status")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var status api.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}

// List returns summaries of all retained captures in insertion order.
func (c *Client) List(ctx context.Context) ([]capture.Summary, error) {
	resp, err := c.get(ctx, "/list")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var summaries []capture.Summary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return summaries, nil
}

// GetRaw returns the exact stored bytes of the capture with the given ID.
func (c *Client) GetRaw(ctx context.Context, id int64) ([]byte, error) {
	resp, err := c.get(ctx, "/get_raw?id="+strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, c.parseError(resp)
	}
}

// ReplayRaw sends raw request bytes to host:port through the controller and
// returns the raw response bytes.
func (c *Client) ReplayRaw(ctx context.Context, host string, port int, https bool, raw []byte) ([]byte, error) {
	q := url.Values{}
	q.Set("host", host)
	q.Set("port", strconv.Itoa(port))
	q.Set("https", strconv.FormatBool(https))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/replay_raw?"+q.Encode(), bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}
	return io.ReadAll(resp.Body)
}

// Clear empties the capture store and returns how many captures were dropped.
func (c *Client) Clear(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/clear", nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, c.parseError(resp)
	}

	var cleared api.ClearResponse
	if err := json.NewDecoder(resp.Body).Decode(&cleared); err != nil {
		return 0, fmt.Errorf("decode clear: %w", err)
	}
	return cleared.Cleared, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

// parseError turns a non-2xx response into an error carrying the server's
// message when one is present.
func (c *Client) parseError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("controller error (status %d): %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("controller error: status %d", resp.StatusCode)
}
