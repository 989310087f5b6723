// Package socket multiplexes JSON-RPC requests and subscriptions over one
// duplex connection per URL.
//
// A Registry owns the connections. The first GetSocket for a URL dials and
// waits for the connection to be ready; concurrent first callers share that
// dial. Later calls return the cached socket without blocking. When a
// connection drops, the socket is evicted so the next GetSocket dials again.
//
// Supported URLs are ws://, wss://, ipc:// or unix:// URLs and absolute
// filesystem paths (IPC).
package socket

import (
	"context"
	"sync"
	"time"

	"github.com/gabapcia/rpcwatch/internal/pkg/logger"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/singleflight"
)

// Registry caches one live Socket per normalized URL.
type Registry struct {
	dial DialFunc

	group singleflight.Group

	mu      sync.Mutex
	closed  bool
	sockets map[string]*Socket
}

// config holds the settings used by NewRegistry.
type config struct {
	handshakeTimeout time.Duration
	dial             DialFunc
}

// Option configures a Registry.
type Option func(*config)

// WithHandshakeTimeout bounds the WebSocket opening handshake. Defaults to 10s.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *config) {
		c.handshakeTimeout = d
	}
}

// WithDialFunc replaces the default dialer.
func WithDialFunc(dial DialFunc) Option {
	return func(c *config) {
		c.dial = dial
	}
}

// NewRegistry creates an empty registry. The caller owns it and must Close it.
func NewRegistry(opts ...Option) *Registry {
	cfg := config{handshakeTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.dial == nil {
		dialer := *websocket.DefaultDialer
		dialer.HandshakeTimeout = cfg.handshakeTimeout
		cfg.dial = newDialFunc(&dialer)
	}

	return &Registry{
		dial:    cfg.dial,
		sockets: make(map[string]*Socket),
	}
}

// GetSocket returns the live socket for rawURL, dialing it on first use.
//
// A dial error is returned to every caller that joined the dial and nothing
// is cached. ctx bounds only this caller's wait; the shared dial itself is
// bounded by the handshake timeout.
func (r *Registry) GetSocket(ctx context.Context, rawURL string) (*Socket, error) {
	key, u, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	if s, err := r.lookup(key); s != nil || err != nil {
		return s, err
	}

	ch := r.group.DoChan(key, func() (any, error) {
		if s, err := r.lookup(key); s != nil || err != nil {
			return s, err
		}

		conn, err := r.dial(context.WithoutCancel(ctx), u)
		if err != nil {
			return nil, err
		}

		s := newSocket(key, conn, r.evict)

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			_ = conn.Close()
			return nil, ErrRegistryClosed
		}
		r.sockets[key] = s
		r.mu.Unlock()

		go s.readLoop()

		logger.Debug(ctx, "socket opened", "url", key)
		return s, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Socket), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len reports the number of live sockets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sockets)
}

// Close closes every socket and rejects further GetSocket calls.
func (r *Registry) Close() error {
	r.mu.Lock()
	r.closed = true
	sockets := make([]*Socket, 0, len(r.sockets))
	for _, s := range r.sockets {
		sockets = append(sockets, s)
	}
	r.mu.Unlock()

	for _, s := range sockets {
		_ = s.Close()
	}

	return nil
}

func (r *Registry) lookup(key string) (*Socket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	return r.sockets[key], nil
}

// evict drops s from the registry unless the key already maps to a newer socket.
func (r *Registry) evict(s *Socket) {
	r.mu.Lock()
	if r.sockets[s.url] == s {
		delete(r.sockets, s.url)
	}
	r.mu.Unlock()

	logger.Debug(context.Background(), "socket evicted", "url", s.url)
}
