// Package jsonrpc is a batching JSON-RPC 2.0 client over a JSON HTTP
// transport.
package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a single HTTP exchange.
	DefaultTimeout = 5 * time.Second
	maxErrorBody   = 4 << 10
)

// Transport posts a JSON payload and decodes the JSON reply into out.
type Transport interface {
	Do(ctx context.Context, url string, payload any, out any) error
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("jsonrpc: http status %s", e.Status)
	}
	return fmt.Sprintf("jsonrpc: http status %s: %s", e.Status, e.Body)
}

// HTTPTransport is the JSON-over-HTTP Transport.
type HTTPTransport struct {
	client  *http.Client
	headers map[string]string
	timeout time.Duration
	method  string
}

// TransportOption customizes HTTPTransport construction.
type TransportOption func(*HTTPTransport)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(client *http.Client) TransportOption {
	return func(t *HTTPTransport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(name, value string) TransportOption {
	return func(t *HTTPTransport) {
		t.headers[name] = value
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(timeout time.Duration) TransportOption {
	return func(t *HTTPTransport) {
		if timeout > 0 {
			t.timeout = timeout
		}
	}
}

// NewHTTPTransport returns a transport that POSTs JSON.
func NewHTTPTransport(opts ...TransportOption) *HTTPTransport {
	t := &HTTPTransport{
		client:  http.DefaultClient,
		headers: map[string]string{},
		timeout: DefaultTimeout,
		method:  http.MethodPost,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Do implements Transport.
func (t *HTTPTransport) Do(ctx context.Context, url string, payload any, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("jsonrpc: encode payload: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, t.method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("jsonrpc: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for name, value := range t.headers {
		req.Header.Set(name, value)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("jsonrpc: post %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(bytes.TrimSpace(snippet)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("jsonrpc: decode response: %w", err)
	}
	return nil
}
