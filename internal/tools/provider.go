// Package tools talks to capability providers: HTTP services that describe
// themselves at GET /manifest and do their work at POST /process.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

const (
	DefaultDiscoveryTimeout = 5 * time.Second
	DefaultProcessTimeout   = 20 * time.Second

	maxBodyBytes = 4 << 20
)

// ProviderError is any failed call to a provider: transport, status or body.
type ProviderError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("Failed to call MCP server %s: %v", e.Endpoint, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Response renders the failure as the error-shaped JSON a step records in
// place of a provider result.
func (e *ProviderError) Response() json.RawMessage {
	data, _ := json.Marshal(map[string]string{"error": e.Error()})
	return data
}

// Client calls providers with a separate bound for discovery and execution.
type Client struct {
	HTTP             *http.Client
	DiscoveryTimeout time.Duration
	ProcessTimeout   time.Duration
	UserAgent        string
}

func NewClient(discovery, process time.Duration) *Client {
	if discovery <= 0 {
		discovery = DefaultDiscoveryTimeout
	}
	if process <= 0 {
		process = DefaultProcessTimeout
	}
	return &Client{
		HTTP:             &http.Client{},
		DiscoveryTimeout: discovery,
		ProcessTimeout:   process,
		UserAgent:        "mcpflow/1.0",
	}
}

// Manifest fetches the provider's descriptor document.
func (c *Client) Manifest(ctx context.Context, endpoint string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.DiscoveryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, join(endpoint, "manifest"), nil)
	if err != nil {
		return nil, &ProviderError{Endpoint: endpoint, Err: err}
	}
	return c.do(req, endpoint)
}

// Process posts payload to the provider and returns its JSON reply verbatim.
// A 2xx reply of the form {"error": ...} is a result, not a failure.
func (c *Client) Process(ctx context.Context, endpoint string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ProviderError{Endpoint: endpoint, Err: fmt.Errorf("encode payload: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.ProcessTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, join(endpoint, "process"), bytes.NewReader(body))
	if err != nil {
		return nil, &ProviderError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, endpoint)
}

func (c *Client) do(req *http.Request, endpoint string) (json.RawMessage, error) {
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &ProviderError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &ProviderError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("status %d: %s", resp.StatusCode, errorBody(resp.Header.Get("Content-Type"), data)),
		}
	}
	if !json.Valid(data) {
		return nil, &ProviderError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: errors.New("response is not valid JSON")}
	}
	return json.RawMessage(data), nil
}

// errorBody renders a failed response body for the error message. HTML error
// pages from providers or proxies in front of them are reduced to their text.
func errorBody(contentType string, data []byte) string {
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return strings.TrimSpace(string(data))
	}
	text := html.UnescapeString(plainText().Sanitize(string(data)))
	return strings.Join(strings.Fields(text), " ")
}

var (
	plainTextOnce   sync.Once
	plainTextPolicy *bluemonday.Policy
)

func plainText() *bluemonday.Policy {
	plainTextOnce.Do(func() {
		plainTextPolicy = bluemonday.StrictPolicy()
	})
	return plainTextPolicy
}

func join(endpoint, path string) string {
	return strings.TrimRight(endpoint, "/") + "/" + path
}
