// Package transport performs authenticated HTTP calls against the backend
// and surfaces status code and body uniformly. It never retries; retry
// policy belongs to the sync controllers and the orchestrator schedule.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds every remote call.
const DefaultTimeout = 30 * time.Second

// Response is the uniform result of a successful (2xx) call.
type Response struct {
	Status int
	Body   []byte
}

// Error reports a failed call. Status is zero when the request never
// reached the backend (network failure or timeout).
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
	}
	return "backend unreachable: " + e.Message
}

// Client wraps outbound calls to the backend API.
type Client struct {
	httpClient *http.Client
}

// NewClient constructs a client with a bounded timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Call performs a single HTTP request. A non-nil body is sent as JSON and
// a non-empty token is attached as a bearer credential. Non-2xx responses
// are returned as *Error carrying the status code and response text.
func (c *Client) Call(ctx context.Context, method, url string, body any, token string) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("transport: encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Status: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Status: resp.StatusCode, Message: errorText(data)}
	}
	return &Response{Status: resp.StatusCode, Body: data}, nil
}

// Ping checks whether the backend is reachable at all. Any HTTP response,
// including an error status, proves connectivity.
func (c *Client) Ping(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, baseURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

// errorText extracts a human-readable message from an error body, falling
// back to the raw text.
func errorText(data []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	const maxLen = 512
	text := string(data)
	if len(text) > maxLen {
		text = text[:maxLen]
	}
	return text
}
