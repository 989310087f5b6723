package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gabapcia/rpcwatch/internal/pkg/logger"
	"github.com/gabapcia/rpcwatch/internal/pkg/transport/jsonrpc"
)

// unsubscribeTimeout bounds the eth_unsubscribe of an abandoned subscription.
const unsubscribeTimeout = 10 * time.Second

type state int

const (
	stateOpen state = iota
	stateClosing
	stateClosed
)

// Socket is one live connection shared by every transport targeting the
// same URL. Responses are routed by numeric request id and delivered once;
// subscription pushes are routed by subscription id until unsubscribed.
//
// Callbacks run on the socket's read goroutine and must not block.
type Socket struct {
	url  string
	conn Conn

	writeMu sync.Mutex // serializes writes on conn

	mu            sync.Mutex
	state         state
	requests      map[int64]func(jsonrpc.Message)
	subscriptions map[string]subscription

	closeOnce sync.Once
	done      chan struct{}
	onClose   func(*Socket)
}

// subscription holds the listeners of one active eth_subscribe.
type subscription struct {
	onData  func(json.RawMessage)
	onError func(error)
}

func newSocket(url string, conn Conn, onClose func(*Socket)) *Socket {
	return &Socket{
		url:           url,
		conn:          conn,
		state:         stateOpen,
		requests:      make(map[int64]func(jsonrpc.Message)),
		subscriptions: make(map[string]subscription),
		done:          make(chan struct{}),
		onClose:       onClose,
	}
}

// URL returns the normalized URL the socket is connected to.
func (s *Socket) URL() string {
	return s.url
}

// Done is closed once the underlying connection is gone.
func (s *Socket) Done() <-chan struct{} {
	return s.done
}

// Send writes req and registers onMessage to receive its response. It fails
// immediately with *RequestError when the socket is not open.
func (s *Socket) Send(req jsonrpc.Request, onMessage func(jsonrpc.Message)) error {
	s.mu.Lock()
	if s.state != stateOpen {
		s.mu.Unlock()
		return &RequestError{URL: s.url, Method: req.Method, Err: ErrSocketClosed}
	}
	s.requests[req.ID] = onMessage
	s.mu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		s.forget(req.ID)
		return err
	}

	s.writeMu.Lock()
	err = s.conn.WriteMessage(data)
	s.writeMu.Unlock()

	if err != nil {
		s.forget(req.ID)
		return &RequestError{URL: s.url, Method: req.Method, Err: err}
	}

	return nil
}

// Request sends method with params and waits for the matching response or
// for ctx to be done. Closing the socket does not wake a pending Request.
func (s *Socket) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	req := jsonrpc.NewRequest(method, params...)

	response := make(chan jsonrpc.Message, 1)
	if err := s.Send(req, func(m jsonrpc.Message) { response <- m }); err != nil {
		return nil, err
	}

	select {
	case m := <-response:
		if err := m.Err(); err != nil {
			return nil, err
		}
		return m.Result, nil
	case <-ctx.Done():
		s.forget(req.ID)
		return nil, ctx.Err()
	}
}

// Subscribe sends eth_subscribe with params. Once the node acknowledges it,
// every push for the returned subscription id is passed to onData, or to
// onError when the push carries an error. If the socket closes, onError
// receives ErrSocketClosed.
func (s *Socket) Subscribe(ctx context.Context, params []any, onData func(json.RawMessage), onError func(error)) (string, error) {
	req := jsonrpc.NewRequest("eth_subscribe", params...)

	type ack struct {
		id  string
		err error
	}
	acked := make(chan ack, 1)

	// abandoned is set once the caller stopped waiting. An ack arriving
	// after that is unsubscribed instead of registered.
	var (
		ackMu     sync.Mutex
		abandoned bool
	)

	// The ack is processed on the read goroutine, so the subscription is
	// registered before the next frame is read.
	err := s.Send(req, func(m jsonrpc.Message) {
		if err := m.Err(); err != nil {
			acked <- ack{err: err}
			return
		}

		var id string
		if err := json.Unmarshal(m.Result, &id); err != nil {
			acked <- ack{err: fmt.Errorf("%w: subscription id: %v", ErrMalformedFrame, err)}
			return
		}

		ackMu.Lock()
		defer ackMu.Unlock()

		if abandoned {
			go s.dropSubscription(id)
			return
		}

		s.mu.Lock()
		s.subscriptions[id] = subscription{onData: onData, onError: onError}
		s.mu.Unlock()

		acked <- ack{id: id}
	})
	if err != nil {
		return "", err
	}

	select {
	case a := <-acked:
		return a.id, a.err
	case <-ctx.Done():
		// The request entry stays until the ack so a late subscription is
		// still ended on the node.
		ackMu.Lock()
		abandoned = true
		ackMu.Unlock()

		select {
		case a := <-acked:
			if a.id != "" {
				go s.dropSubscription(a.id)
			}
		default:
		}

		return "", ctx.Err()
	}
}

// dropSubscription ends a subscription nobody waits for.
func (s *Socket) dropSubscription(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), unsubscribeTimeout)
	defer cancel()

	if _, err := s.Unsubscribe(ctx, id); err != nil {
		logger.Debug(ctx, "unsubscribe of abandoned subscription failed", "url", s.url, "subscription.id", id, "error", err)
	}
}

// Unsubscribe detaches the subscription listener and sends eth_unsubscribe.
// It reports the node's answer.
func (s *Socket) Unsubscribe(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	delete(s.subscriptions, id)
	s.mu.Unlock()

	result, err := s.Request(ctx, "eth_unsubscribe", id)
	if err != nil {
		return false, err
	}

	var ok bool
	if err := json.Unmarshal(result, &ok); err != nil {
		return false, fmt.Errorf("%w: unsubscribe result: %v", ErrMalformedFrame, err)
	}

	return ok, nil
}

// Close closes the connection. The read loop then evicts the socket from its
// registry. Close is idempotent.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.state == stateOpen {
		s.state = stateClosing
	}
	s.mu.Unlock()

	var err error
	s.closeOnce.Do(func() { err = s.conn.Close() })
	return err
}

func (s *Socket) forget(id int64) {
	s.mu.Lock()
	delete(s.requests, id)
	s.mu.Unlock()
}

// readLoop dispatches inbound frames until the connection fails.
func (s *Socket) readLoop() {
	ctx := context.Background()
	defer s.finalize()

	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, ErrMalformedFrame) {
				logger.Warn(ctx, "socket stream corrupted", "url", s.url, "error", err)
			} else {
				logger.Debug(ctx, "socket read loop ended", "url", s.url, "error", err)
			}
			return
		}

		var m jsonrpc.Message
		if err := json.Unmarshal(data, &m); err != nil {
			logger.Warn(ctx, "dropping malformed frame", "url", s.url, "error", err)
			continue
		}

		s.dispatch(m)
	}
}

func (s *Socket) dispatch(m jsonrpc.Message) {
	if m.IsSubscription() {
		s.mu.Lock()
		sub, ok := s.subscriptions[m.Params.Subscription]
		s.mu.Unlock()

		if !ok {
			return
		}
		if err := m.Err(); err != nil {
			sub.onError(err)
			return
		}
		sub.onData(m.Params.Result)
		return
	}

	if m.ID == nil {
		return
	}

	s.mu.Lock()
	callback, ok := s.requests[*m.ID]
	delete(s.requests, *m.ID)
	s.mu.Unlock()

	if ok {
		callback(m)
	}
}

// finalize marks the socket closed, detaches subscription listeners and
// notifies the registry. Pending requests are left to their own deadlines.
func (s *Socket) finalize() {
	s.mu.Lock()
	s.state = stateClosed
	subscriptions := s.subscriptions
	s.subscriptions = make(map[string]subscription)
	s.mu.Unlock()

	s.closeOnce.Do(func() { _ = s.conn.Close() })
	close(s.done)

	if s.onClose != nil {
		s.onClose(s)
	}

	for id, sub := range subscriptions {
		sub.onError(fmt.Errorf("%w: subscription %s on %s", ErrSocketClosed, id, s.url))
	}
}
