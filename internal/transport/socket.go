package transport

import (
	"context"
	"encoding/json"

	"github.com/gabapcia/rpcwatch/internal/pkg/resilience/timeout"
	"github.com/gabapcia/rpcwatch/internal/pkg/transport/socket"
	"github.com/gabapcia/rpcwatch/internal/pkg/validator"
)

// Socket is a WebSocket or IPC transport. Transports pointing to the same URL
// through the same registry share one connection.
type Socket struct {
	cfg         Config
	url         string
	registry    *socket.Registry
	ownRegistry bool
	pipeline    *pipeline
}

var _ Subscriber = (*Socket)(nil)

type socketParams struct {
	URL string `validate:"required"`
}

// NewWebSocket creates a transport for a ws:// or wss:// url.
func NewWebSocket(url string, opts ...Option) (*Socket, error) {
	return newSocketTransport(TypeWebSocket, url, newConfig("webSocket", "WebSocket JSON-RPC", opts))
}

// NewIPC creates a transport for a unix socket path or ipc:// url.
func NewIPC(path string, opts ...Option) (*Socket, error) {
	return newSocketTransport(TypeIPC, path, newConfig("ipc", "IPC JSON-RPC", opts))
}

func newSocketTransport(typ Type, url string, cfg config) (*Socket, error) {
	if err := validator.Validate(socketParams{URL: url}); err != nil {
		return nil, err
	}

	t := &Socket{
		cfg:      cfg.describe(typ),
		url:      url,
		registry: cfg.registry,
	}
	if t.registry == nil {
		t.registry = socket.NewRegistry()
		t.ownRegistry = true
	}

	t.pipeline = newPipeline(t.cfg, func(ctx context.Context, method string, params []any) (json.RawMessage, error) {
		s, err := t.registry.GetSocket(ctx, t.url)
		if err != nil {
			return nil, err
		}
		return s.Request(ctx, method, params...)
	}, false)

	return t, nil
}

// GetSocket returns the live socket of the transport, dialing it if needed.
func (t *Socket) GetSocket(ctx context.Context) (*socket.Socket, error) {
	return t.registry.GetSocket(ctx, t.url)
}

func (t *Socket) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	return t.pipeline.request(ctx, method, params)
}

// Subscribe sends eth_subscribe and routes pushes to args. The handshake is
// bounded by the transport timeout and is not retried.
func (t *Socket) Subscribe(ctx context.Context, args SubscribeArgs) (*Subscription, error) {
	onData, onError := args.OnData, args.OnError
	if onData == nil {
		onData = func(json.RawMessage) {}
	}
	if onError == nil {
		onError = func(error) {}
	}

	return timeout.Do(ctx, "eth_subscribe", t.cfg.Timeout, func(ctx context.Context) (*Subscription, error) {
		s, err := t.registry.GetSocket(ctx, t.url)
		if err != nil {
			return nil, err
		}

		id, err := s.Subscribe(ctx, args.Params, onData, onError)
		if err != nil {
			return nil, err
		}

		return NewSubscription(id, func(ctx context.Context) (bool, error) {
			return timeout.Do(ctx, "eth_unsubscribe", t.cfg.Timeout, func(ctx context.Context) (bool, error) {
				return s.Unsubscribe(ctx, id)
			})
		}), nil
	})
}

func (t *Socket) Config() Config {
	return t.cfg
}

// Close releases the registry when the transport created its own.
func (t *Socket) Close() error {
	if t.ownRegistry {
		return t.registry.Close()
	}
	return nil
}
