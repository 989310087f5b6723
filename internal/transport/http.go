package transport

import (
	"context"
	"encoding/json"

	transporthttp "github.com/gabapcia/rpcwatch/internal/pkg/transport/http"
	"github.com/gabapcia/rpcwatch/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/rpcwatch/internal/pkg/validator"
)

// HTTP is a transport over HTTP POST.
type HTTP struct {
	cfg      Config
	url      string
	pipeline *pipeline
}

var _ Transport = (*HTTP)(nil)

type httpParams struct {
	URL string `validate:"required,url"`
}

// NewHTTP creates an HTTP transport for url. Retries follow the HTTP retry
// policy of the transport/http package: connection errors, 5xx, 408, 413
// and 429 are retried, honoring Retry-After.
func NewHTTP(url string, opts ...Option) (*HTTP, error) {
	if err := validator.Validate(httpParams{URL: url}); err != nil {
		return nil, err
	}

	cfg := newConfig("http", "HTTP JSON-RPC", opts)

	rpcOpts := []jsonrpc.Option{
		jsonrpc.WithHTTPOptions(
			transporthttp.WithRetryMax(int(cfg.retryCount)),
			transporthttp.WithRetryDelay(cfg.retryDelay),
		),
	}
	for key, values := range cfg.headers {
		for _, v := range values {
			rpcOpts = append(rpcOpts, jsonrpc.WithHeader(key, v))
		}
	}
	client := jsonrpc.NewClient(url, rpcOpts...)

	t := &HTTP{
		cfg: cfg.describe(TypeHTTP),
		url: url,
	}
	t.pipeline = newPipeline(t.cfg, func(ctx context.Context, method string, params []any) (json.RawMessage, error) {
		return client.Fetch(ctx, method, params...)
	}, true)

	return t, nil
}

// URL returns the endpoint.
func (t *HTTP) URL() string {
	return t.url
}

func (t *HTTP) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	return t.pipeline.request(ctx, method, params)
}

func (t *HTTP) Config() Config {
	return t.cfg
}
