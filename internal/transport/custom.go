package transport

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNilProvider is returned by NewCustom without a provider.
var ErrNilProvider = errors.New("custom transport requires a provider")

// Provider is a user supplied request function, e.g. an injected wallet.
type Provider interface {
	Request(ctx context.Context, method string, params []any) (json.RawMessage, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, method string, params []any) (json.RawMessage, error)

func (f ProviderFunc) Request(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	return f(ctx, method, params)
}

// Custom is a transport backed by a Provider.
type Custom struct {
	cfg      Config
	pipeline *pipeline
}

var _ Transport = (*Custom)(nil)

// NewCustom wraps provider with the retry and timeout pipeline.
func NewCustom(provider Provider, opts ...Option) (*Custom, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}

	t := &Custom{cfg: newConfig("custom", "Custom Provider", opts).describe(TypeCustom)}
	t.pipeline = newPipeline(t.cfg, func(ctx context.Context, method string, params []any) (json.RawMessage, error) {
		return provider.Request(ctx, method, params)
	}, false)

	return t, nil
}

func (t *Custom) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	return t.pipeline.request(ctx, method, params)
}

func (t *Custom) Config() Config {
	return t.cfg
}
