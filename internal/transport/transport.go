// Package transport turns JSON-RPC endpoints into a uniform Request function.
//
// Every transport composes the same pipeline: the raw call is retried with
// jittered exponential backoff and the whole retry loop is bounded by a
// timeout. Each request is traced and counted through OpenTelemetry.
//
// Four transports are provided:
//   - HTTP, retried by a retrying HTTP client that honors Retry-After.
//   - WebSocket and IPC, multiplexed over a shared socket.Registry and able to
//     subscribe to push notifications.
//   - Custom, wrapping any Provider.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/gabapcia/rpcwatch/internal/pkg/resilience/timeout"
	"github.com/gabapcia/rpcwatch/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/rpcwatch/internal/pkg/transport/socket"

	"github.com/gorilla/websocket"
)

// Type identifies the kind of a transport.
type Type string

const (
	TypeHTTP      Type = "http"
	TypeWebSocket Type = "webSocket"
	TypeIPC       Type = "ipc"
	TypeCustom    Type = "custom"
)

// Config describes a transport and its resilience settings.
type Config struct {
	Key        string
	Name       string
	Type       Type
	RetryCount uint
	RetryDelay time.Duration
	Timeout    time.Duration
}

// Transport sends JSON-RPC requests.
type Transport interface {
	// Request sends method with params and returns the raw result.
	//
	// Errors are one of: *jsonrpc.RPCError for error objects returned by the
	// node, *timeout.Error when the configured bound elapsed, a transport
	// error (see IsTransportError) once retries are exhausted, or the
	// context's error.
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)

	// Config returns the transport description.
	Config() Config
}

// SubscribeArgs describes an eth_subscribe call.
type SubscribeArgs struct {
	Params  []any                 // e.g. []any{"newHeads"}
	OnData  func(json.RawMessage) // called with each pushed result
	OnError func(error)           // called with pushed errors and when the socket closes
}

// Subscription is an active eth_subscribe.
type Subscription struct {
	ID string

	unsubscribe func(ctx context.Context) (bool, error)
}

// NewSubscription binds a subscription id to the function ending it.
func NewSubscription(id string, unsubscribe func(ctx context.Context) (bool, error)) *Subscription {
	return &Subscription{ID: id, unsubscribe: unsubscribe}
}

// Unsubscribe sends eth_unsubscribe and reports the node's answer.
func (s *Subscription) Unsubscribe(ctx context.Context) (bool, error) {
	return s.unsubscribe(ctx)
}

// Subscriber is a Transport able to receive push notifications.
type Subscriber interface {
	Transport
	Subscribe(ctx context.Context, args SubscribeArgs) (*Subscription, error)
}

// IsTransportError reports whether err means the endpoint could not be
// reached or answered garbage: HTTP failures, closed or malformed sockets and
// network errors. RPC error objects, timeouts and context errors are not
// transport errors.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}

	if timeout.IsTimeout(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return false
	}

	switch {
	case errors.Is(err, jsonrpc.ErrHTTPRequest),
		errors.Is(err, socket.ErrSocketClosed),
		errors.Is(err, socket.ErrMalformedFrame),
		errors.Is(err, websocket.ErrBadHandshake):
		return true
	}

	var (
		reqErr  *socket.RequestError
		netErr  net.Error
		syntax  *json.SyntaxError
		closeWS *websocket.CloseError
	)
	return errors.As(err, &reqErr) ||
		errors.As(err, &netErr) ||
		errors.As(err, &syntax) ||
		errors.As(err, &closeWS)
}
