// Package client binds a transport to the per-client state shared by chain
// watchers: a unique id, the default polling interval and the coalescing
// cache and observer set.
package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gabapcia/rpcwatch/internal/pkg/coalesce"
	"github.com/gabapcia/rpcwatch/internal/pkg/validator"
	"github.com/gabapcia/rpcwatch/internal/transport"

	"github.com/google/uuid"
)

// DefaultPollingInterval is the polling interval of a client created without
// WithPollingInterval.
const DefaultPollingInterval = 4 * time.Second

// Client is a transport plus the state used to deduplicate work issued
// through it.
type Client struct {
	uid             string
	transport       transport.Transport
	pollingInterval time.Duration
	cache           *coalesce.Cache
	observers       *coalesce.Observers
}

type params struct {
	Transport       transport.Transport `validate:"required"`
	UID             string              `validate:"required"`
	PollingInterval time.Duration       `validate:"gt=0"`
}

// config holds the settings used by New.
type config struct {
	uid             string
	pollingInterval time.Duration
	cache           *coalesce.Cache
	observers       *coalesce.Observers
}

// Option configures a Client.
type Option func(*config)

// WithPollingInterval sets the default interval of watchers using this client.
func WithPollingInterval(d time.Duration) Option {
	return func(c *config) {
		c.pollingInterval = d
	}
}

// WithCache shares a cache between clients.
func WithCache(cache *coalesce.Cache) Option {
	return func(c *config) {
		c.cache = cache
	}
}

// WithObservers shares an observer set between clients.
func WithObservers(o *coalesce.Observers) Option {
	return func(c *config) {
		c.observers = o
	}
}

// WithUID overrides the random client id.
func WithUID(uid string) Option {
	return func(c *config) {
		c.uid = uid
	}
}

// New creates a client over t.
func New(t transport.Transport, opts ...Option) (*Client, error) {
	cfg := config{
		uid:             uuid.NewString(),
		pollingInterval: DefaultPollingInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := validator.Validate(params{
		Transport:       t,
		UID:             cfg.uid,
		PollingInterval: cfg.pollingInterval,
	}); err != nil {
		return nil, err
	}

	if cfg.cache == nil {
		cfg.cache = coalesce.NewCache()
	}
	if cfg.observers == nil {
		cfg.observers = coalesce.NewObservers()
	}

	return &Client{
		uid:             cfg.uid,
		transport:       t,
		pollingInterval: cfg.pollingInterval,
		cache:           cfg.cache,
		observers:       cfg.observers,
	}, nil
}

// UID identifies the client in cache and observer keys.
func (c *Client) UID() string { return c.uid }

// Transport returns the underlying transport.
func (c *Client) Transport() transport.Transport { return c.transport }

// PollingInterval returns the default polling interval.
func (c *Client) PollingInterval() time.Duration { return c.pollingInterval }

// Cache returns the request cache.
func (c *Client) Cache() *coalesce.Cache { return c.cache }

// Observers returns the observer set.
func (c *Client) Observers() *coalesce.Observers { return c.observers }

// Request forwards to the transport.
func (c *Client) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	return c.transport.Request(ctx, method, params...)
}
