// Package jsonrpc provides the JSON-RPC 2.0 wire types shared by every
// transport and a client implementation over HTTP.
//
// Request ids are integers drawn from a single process-wide counter, so ids
// never collide across transports or connections.
package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	transporthttp "github.com/gabapcia/rpcwatch/internal/pkg/transport/http"

	"github.com/hashicorp/go-retryablehttp"
)

// Client defines the interface for a generic JSON-RPC client.
// It can be used to abstract the underlying implementation and facilitate mocking or testing.
type Client interface {
	// Fetch sends a JSON-RPC request with the given method name and parameters.
	// It returns the raw JSON result or an error if the request or response fails.
	Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// client is the default implementation of the Client interface.
// It sends JSON-RPC requests to the configured provider endpoint using the provided HTTP client.
type client struct {
	providerEndpoint string                // The URL of the remote JSON-RPC server
	httpClient       *retryablehttp.Client // The HTTP client used to perform requests
	headers          http.Header           // Static headers added to every request
}

// Compile-time assertion that client implements the Client interface.
var _ Client = (*client)(nil)

// Fetch sends a JSON-RPC request to the remote server with the given method and parameters.
//
// Retryable HTTP failures are retried by the underlying client. A final
// non-2xx status is reported as *HTTPRequestError and a JSON-RPC error object
// as *RPCError.
func (c *client) Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	body, err := json.Marshal(NewRequest(method, params...))
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.providerEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		details, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPRequestError{
			Status:  res.StatusCode,
			URL:     c.providerEndpoint,
			Details: strings.TrimSpace(string(details)),
		}
	}

	var data Message
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode response of %s: %w", method, err)
	}

	if err := data.Err(); err != nil {
		return nil, err
	}

	return data.Result, nil
}

// config holds the settings used by NewClient.
type config struct {
	httpOpts []transporthttp.Option
	headers  http.Header
}

// Option configures the JSON-RPC HTTP client.
type Option func(*config)

// WithHTTPOptions forwards options to the underlying retrying HTTP client.
func WithHTTPOptions(opts ...transporthttp.Option) Option {
	return func(c *config) {
		c.httpOpts = append(c.httpOpts, opts...)
	}
}

// WithHeader adds a static header (e.g. an API key) to every request.
func WithHeader(key, value string) Option {
	return func(c *config) {
		c.headers.Add(key, value)
	}
}

// NewClient constructs and returns a Client that will send JSON-RPC requests
// to the specified provider endpoint.
func NewClient(providerEndpoint string, opts ...Option) *client {
	cfg := config{headers: make(http.Header)}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &client{
		providerEndpoint: providerEndpoint,
		httpClient:       transporthttp.NewClient(cfg.httpOpts...),
		headers:          cfg.headers,
	}
}
