package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
)

const (
	// Version is the only JSON-RPC protocol version spoken on the wire.
	Version = "2.0"

	// SubscriptionMethod is the method name carried by unsolicited subscription pushes.
	SubscriptionMethod = "eth_subscription"
)

var (
	// ErrProviderReturnedError indicates that the remote JSON-RPC server returned an error response.
	ErrProviderReturnedError = errors.New("provider error")

	// ErrHTTPRequest indicates that the HTTP exchange itself failed (non-2xx status).
	ErrHTTPRequest = errors.New("http request failed")
)

// lastID is the process-wide request id counter. Ids are unique for the
// lifetime of the process regardless of which transport sends them.
var lastID atomic.Int64

// NextID returns a fresh, monotonically increasing request id.
func NextID() int64 {
	return lastID.Add(1)
}

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// NewRequest builds a request for method and assigns it the next process-wide id.
// A nil params slice is encoded as an empty array.
func NewRequest(method string, params ...any) Request {
	if params == nil {
		params = []any{}
	}

	return Request{
		JSONRPC: Version,
		ID:      NextID(),
		Method:  method,
		Params:  params,
	}
}

// RPCError is the error object of a JSON-RPC response.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s: [%d] - %s", ErrProviderReturnedError, e.Code, e.Message)
}

func (e *RPCError) Unwrap() error {
	return ErrProviderReturnedError
}

// SubscriptionParams is the params object of an eth_subscription push.
type SubscriptionParams struct {
	Subscription string          `json:"subscription"`
	Result       json.RawMessage `json:"result,omitempty"`
	Error        *RPCError       `json:"error,omitempty"`
}

// Message is any inbound JSON-RPC frame: a response to a request (ID set)
// or a subscription push (Method == SubscriptionMethod, Params set).
type Message struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      *int64              `json:"id,omitempty"`
	Result  json.RawMessage     `json:"result,omitempty"`
	Error   *RPCError           `json:"error,omitempty"`
	Method  string              `json:"method,omitempty"`
	Params  *SubscriptionParams `json:"params,omitempty"`
}

// IsSubscription reports whether the message is a subscription push.
func (m Message) IsSubscription() bool {
	return m.Method == SubscriptionMethod && m.Params != nil
}

// Err returns the error carried by the message, if any. For subscription
// pushes the error lives inside params.
func (m Message) Err() error {
	if m.IsSubscription() {
		if m.Params.Error != nil {
			return m.Params.Error
		}
		return nil
	}

	if m.Error != nil {
		return m.Error
	}
	return nil
}

// HTTPRequestError reports a non-successful HTTP status returned by the provider.
type HTTPRequestError struct {
	Status  int
	URL     string
	Details string
}

func (e *HTTPRequestError) Error() string {
	return fmt.Sprintf("%s: status %d from %s: %s", ErrHTTPRequest, e.Status, e.URL, e.Details)
}

func (e *HTTPRequestError) Unwrap() error {
	return ErrHTTPRequest
}
