package blockwatch

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gabapcia/rpcwatch/internal/chain"
	"github.com/gabapcia/rpcwatch/internal/client"
	"github.com/gabapcia/rpcwatch/internal/pkg/poll"
)

// NumberFunc receives an emitted block number and the number emitted before
// it, nil for the first emission. Both are copies owned by the callee.
type NumberFunc func(n, prev *big.Int)

type numberWatcher struct {
	cfg        config
	onNumber   NumberFunc
	checkpoint *checkpointer

	last *big.Int
}

// WatchBlockNumber calls onNumber every time the latest block number
// increases and returns a function that stops watching. With WithEmitMissed
// every skipped number is emitted too, without fetching anything. WithBlockTag
// and WithIncludeTransactions are ignored.
func WatchBlockNumber(ctx context.Context, c *client.Client, onNumber NumberFunc, opts ...Option) poll.StopFunc {
	cfg := newConfig(c, opts)
	w := &numberWatcher{
		cfg:        cfg,
		onNumber:   onNumber,
		checkpoint: newCheckpointer(cfg),
	}

	onHead := func(ctx context.Context, head *chain.Block) {
		if n := head.BlockNumber(); n != nil {
			w.restore(ctx)
			w.handle(ctx, n)
		}
	}
	if stop, ok := subscribeHeads(ctx, c, cfg, onHead); ok {
		return stop
	}

	return poll.Poll(ctx, func(ctx context.Context, _ poll.StopFunc) {
		w.restore(ctx)

		n, err := chain.GetBlockNumber(ctx, c, cfg.interval)
		if err != nil {
			cfg.fail(ctx, err)
			return
		}
		w.handle(ctx, n)
	}, poll.WithInterval(cfg.interval), poll.WithEmitOnBegin(cfg.emitOnBegin))
}

func (w *numberWatcher) restore(ctx context.Context) {
	n, err := w.checkpoint.load(ctx)
	if err != nil {
		w.cfg.fail(ctx, fmt.Errorf("load checkpoint: %w", err))
		return
	}
	if n != nil && w.last == nil {
		w.last = n
	}
}

func (w *numberWatcher) handle(ctx context.Context, n *big.Int) {
	if w.last != nil {
		if n.Cmp(w.last) <= 0 {
			return
		}

		if w.cfg.emitMissed {
			for i := new(big.Int).Add(w.last, one); i.Cmp(n) < 0; i.Add(i, one) {
				w.emit(ctx, new(big.Int).Set(i))
			}
		}
	}

	w.emit(ctx, n)
}

func (w *numberWatcher) emit(ctx context.Context, n *big.Int) {
	var prev *big.Int
	if w.last != nil {
		prev = new(big.Int).Set(w.last)
	}
	w.onNumber(new(big.Int).Set(n), prev)
	w.last = n

	if err := w.checkpoint.save(ctx, n); err != nil {
		w.cfg.fail(ctx, fmt.Errorf("save checkpoint: %w", err))
	}
}
