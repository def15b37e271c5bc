// Package remote is the HTTP client of the feedback service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kimhsiao/feedbacksync/internal/errors"
	"github.com/kimhsiao/feedbacksync/internal/models"
	"github.com/kimhsiao/feedbacksync/internal/stats"
)

// DefaultBaseURL is where the service listens by default.
const DefaultBaseURL = "http://localhost:3001"

// Config holds client configuration.
type Config struct {
	BaseURL string
	// Timeout bounds every request regardless of the caller's context.
	Timeout time.Duration
	Token   string
}

// Client talks to the feedback service. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient creates a Client. An empty base URL selects DefaultBaseURL.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Newf(errors.ErrConfig, "invalid remote base URL %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		token: cfg.Token,
	}, nil
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Ping probes GET /. Any 2xx answer means reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/", nil, nil)
}

// List fetches the full collection.
func (c *Client) List(ctx context.Context) ([]models.Feedback, error) {
	var resp ListResponse
	if err := c.do(ctx, http.MethodGet, "/feedbacks", nil, &resp); err != nil {
		return nil, err
	}
	out := resp.Data
	if out == nil {
		out = []models.Feedback{}
	}
	for i := range out {
		out[i].Normalize()
	}
	return out, nil
}

// Add uploads rec. The service keeps the client-supplied id, and answers
// an id it already stores with the stored record.
func (c *Client) Add(ctx context.Context, rec models.Feedback) (models.Feedback, error) {
	var resp ItemResponse
	if err := c.do(ctx, http.MethodPost, "/feedbacks", rec, &resp); err != nil {
		return models.Feedback{}, err
	}
	resp.Data.Normalize()
	return resp.Data, nil
}

// Delete removes the record with id. An id unknown to the service counts as
// deleted.
func (c *Client) Delete(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, "/feedbacks/"+url.PathEscape(id), nil, nil)
	if errors.Is(err, errors.ErrNotFound) {
		return nil
	}
	return err
}

// Clear removes every record and returns how many there were, or 0 when the
// service does not report it. Only success and removed are decoded, so any
// shape of the cleared flag is accepted.
func (c *Client) Clear(ctx context.Context) (int, error) {
	var resp struct {
		Success bool `json:"success"`
		Removed int  `json:"removed"`
	}
	if err := c.do(ctx, http.MethodDelete, "/feedbacks", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

// Stats fetches the service-side aggregate.
func (c *Client) Stats(ctx context.Context) (stats.Stats, error) {
	var resp StatsResponse
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &resp); err != nil {
		return stats.Stats{}, err
	}
	return resp.Data, nil
}

// Login exchanges credentials for a token. The token is not installed on
// the client; call SetToken.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	var resp LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", LoginRequest{Username: username, Password: password}, &resp)
	return resp, err
}

// do performs one request and maps the outcome onto error codes:
// transport failures, timeouts and 5xx are ErrRemoteUnavailable, 401/403
// ErrUnauthorized, 404 ErrNotFound, other non-2xx ErrRemoteRejected.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(errors.ErrInvalid, "failed to encode request", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(errors.ErrInternal, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return errors.Wrap(errors.ErrRemoteUnavailable, fmt.Sprintf("%s %s timed out", method, path), err)
		}
		return errors.Wrap(errors.ErrRemoteUnavailable, fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(method, path, resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(errors.ErrRemoteUnavailable, fmt.Sprintf("%s %s: malformed response", method, path), err)
	}
	return nil
}

func statusError(method, path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	reason := strings.TrimSpace(string(raw))
	var er ErrorResponse
	if json.Unmarshal(raw, &er) == nil && er.Error != "" {
		reason = er.Error
	}
	msg := fmt.Sprintf("%s %s: status %d: %s", method, path, resp.StatusCode, reason)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.New(errors.ErrUnauthorized, msg)
	case resp.StatusCode == http.StatusNotFound:
		return errors.New(errors.ErrNotFound, msg)
	case resp.StatusCode >= 500:
		return errors.New(errors.ErrRemoteUnavailable, msg)
	default:
		return errors.New(errors.ErrRemoteRejected, msg)
	}
}
