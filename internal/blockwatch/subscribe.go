package blockwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gabapcia/rpcwatch/internal/chain"
	"github.com/gabapcia/rpcwatch/internal/client"
	"github.com/gabapcia/rpcwatch/internal/pkg/logger"
	"github.com/gabapcia/rpcwatch/internal/pkg/poll"
	"github.com/gabapcia/rpcwatch/internal/pkg/x/chflow"
	"github.com/gabapcia/rpcwatch/internal/transport"
)

// headsBufferSize bounds the heads queued while a handler is busy. Heads
// arriving on a full queue are dropped; the next one triggers backfilling
// when WithEmitMissed is set.
const headsBufferSize = 16

// subscribeHeads feeds newHeads notifications to handle, one at a time, when
// polling is disabled and the transport can subscribe. ok is false when the
// caller must poll instead.
func subscribeHeads(parent context.Context, c *client.Client, cfg config, handle func(context.Context, *chain.Block)) (stop poll.StopFunc, ok bool) {
	if cfg.poll {
		return nil, false
	}

	sub, ok := c.Transport().(transport.Subscriber)
	if !ok {
		logger.Debug(parent, "transport cannot subscribe, polling instead", "transport.type", c.Transport().Config().Type)
		return nil, false
	}

	ctx, cancel := context.WithCancel(parent)
	heads := make(chan *chain.Block, headsBufferSize)

	var (
		mu           sync.Mutex
		stopped      bool
		subscription *transport.Subscription
	)

	unsubscribe := func(s *transport.Subscription) {
		if _, err := s.Unsubscribe(context.WithoutCancel(parent)); err != nil {
			logger.Warn(parent, "unsubscribe from new heads failed", "subscription.id", s.ID, "error", err)
		}
	}

	stop = poll.StopFunc(sync.OnceFunc(func() {
		cancel()

		mu.Lock()
		stopped = true
		s := subscription
		mu.Unlock()

		if s != nil {
			go unsubscribe(s)
		}
	}))

	go func() {
		defer stop()
		for {
			head, ok := chflow.Receive(ctx, heads)
			if !ok {
				return
			}
			handle(ctx, head)
		}
	}()

	go func() {
		s, err := sub.Subscribe(ctx, transport.SubscribeArgs{
			Params: []any{"newHeads"},
			OnData: func(raw json.RawMessage) {
				var head chain.Block
				if err := json.Unmarshal(raw, &head); err != nil {
					cfg.fail(ctx, fmt.Errorf("decode new head: %w", err))
					return
				}

				if !chflow.Offer(heads, &head) {
					logger.Warn(ctx, "new head dropped, watcher is behind", "block.number", head.BlockNumber())
				}
			},
			OnError: func(err error) {
				if ctx.Err() == nil {
					cfg.fail(ctx, err)
				}
			},
		})
		if err != nil {
			if ctx.Err() == nil {
				cfg.fail(ctx, fmt.Errorf("subscribe to new heads: %w", err))
			}
			return
		}

		mu.Lock()
		subscription = s
		late := stopped
		mu.Unlock()

		if late {
			unsubscribe(s)
		}
	}()

	return stop, true
}
