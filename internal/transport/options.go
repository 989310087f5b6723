package transport

import (
	"net/http"
	"time"

	"github.com/gabapcia/rpcwatch/internal/pkg/transport/socket"
)

const (
	defaultRetryCount = 3
	defaultRetryDelay = 150 * time.Millisecond
	defaultTimeout    = 10 * time.Second
)

// config holds the settings shared by every transport constructor.
type config struct {
	key        string
	name       string
	retryCount uint
	retryDelay time.Duration
	timeout    time.Duration
	headers    http.Header
	registry   *socket.Registry
}

// Option configures a transport.
type Option func(*config)

func newConfig(key, name string, opts []Option) config {
	cfg := config{
		key:        key,
		name:       name,
		retryCount: defaultRetryCount,
		retryDelay: defaultRetryDelay,
		timeout:    defaultTimeout,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c config) describe(t Type) Config {
	return Config{
		Key:        c.key,
		Name:       c.name,
		Type:       t,
		RetryCount: c.retryCount,
		RetryDelay: c.retryDelay,
		Timeout:    c.timeout,
	}
}

// WithKey overrides the transport key.
func WithKey(key string) Option {
	return func(c *config) {
		c.key = key
	}
}

// WithName overrides the transport name.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithRetryCount sets how many times a failed request is retried. Default: 3.
func WithRetryCount(n uint) Option {
	return func(c *config) {
		c.retryCount = n
	}
}

// WithRetryDelay sets the base delay of the backoff. Default: 150ms.
func WithRetryDelay(d time.Duration) Option {
	return func(c *config) {
		c.retryDelay = d
	}
}

// WithTimeout bounds a whole request including its retries. Zero disables
// the bound. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithHeader adds a static header to every HTTP request.
func WithHeader(key, value string) Option {
	return func(c *config) {
		c.headers.Add(key, value)
	}
}

// WithRegistry sets the socket registry used by WebSocket and IPC
// transports. Without it each transport owns a private registry.
func WithRegistry(r *socket.Registry) Option {
	return func(c *config) {
		c.registry = r
	}
}
