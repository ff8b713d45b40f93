// Package syncclient is the HTTP client for the remote offline-queue
// service. It carries bearer authentication and exposes the two calls the
// sync coordinator needs: batch token sync and generic action replay.
package syncclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// Client is an HTTP client for the sync service.
type Client struct {
	BaseURL   string
	AuthToken string
	HTTP      *http.Client
}

// New creates a sync client.
func New(baseURL, authToken string) *Client {
	return &Client{
		BaseURL:   baseURL,
		AuthToken: authToken,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
	}
}

// --- Token sync types ---

// SyncRequest is the body for POST /api/offline-queue/sync. Tokens are the
// raw queued-record envelopes; DeviceID lets the server recognize a retried
// batch from the same installation and deduplicate it.
type SyncRequest struct {
	Tokens   []json.RawMessage `json:"tokens"`
	DeviceID string            `json:"deviceId"`
}

// SyncedToken is one accepted record in a sync response.
type SyncedToken struct {
	LocalID  string `json:"localId"`
	ServerID string `json:"_id"`
}

// SyncDetails carries the per-record outcome buckets of one sync batch.
type SyncDetails struct {
	Synced    []SyncedToken     `json:"synced"`
	Conflicts []json.RawMessage `json:"conflicts,omitempty"`
	Errors    []json.RawMessage `json:"errors,omitempty"`
}

// SyncResponse is the response from a token sync request. Anything not
// listed in Details.Synced stays pending on the client.
type SyncResponse struct {
	Message string      `json:"message"`
	Details SyncDetails `json:"details"`
}

// HealthResponse is the response from GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthCheck hits the /healthz endpoint to verify server reachability.
func (c *Client) HealthCheck() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do("GET", "/healthz", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SyncTokens pushes a batch of pending queue tokens.
func (c *Client) SyncTokens(req *SyncRequest) (*SyncResponse, error) {
	var resp SyncResponse
	if err := c.do("POST", "/api/offline-queue/sync", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Replay re-issues a queued generic action against its original endpoint.
// Any non-2xx status is an error; the caller decides retry or drop.
func (c *Client) Replay(method, endpoint string, payload json.RawMessage) error {
	var body any
	if len(payload) > 0 {
		body = payload
	}
	return c.do(method, endpoint, body, nil)
}

// --- HTTP helpers ---

// apiError is the standard error body from the server.
type apiError struct {
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return e.Message
}

// do executes an authenticated HTTP request against BaseURL+path.
func (c *Client) do(method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			switch resp.StatusCode {
			case http.StatusUnauthorized:
				return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
			case http.StatusForbidden:
				return fmt.Errorf("%w: %s", ErrForbidden, apiErr.Message)
			case http.StatusNotFound:
				return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
			default:
				return &apiErr
			}
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
