// Package blockwatch emits new blocks, or block numbers, as the chain head
// advances.
//
// Watchers poll through the client's coalescer, so watchers of the same
// client and block tag share one request per interval. Emissions never go
// backwards: a block whose number is not above the last emitted one is
// dropped. Pending blocks carry no number and are always emitted. With
// WithEmitMissed, numbers skipped between two ticks are fetched and emitted
// in order.
package blockwatch

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gabapcia/rpcwatch/internal/chain"
	"github.com/gabapcia/rpcwatch/internal/client"
	"github.com/gabapcia/rpcwatch/internal/pkg/coalesce"
	"github.com/gabapcia/rpcwatch/internal/pkg/poll"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var one = big.NewInt(1)

// BlockFunc receives an emitted block and the block emitted before it. prev
// is nil for the first emission. A prev restored from a checkpoint only
// carries its Number.
//
// Blocks may be shared with other watchers of the same client and must not
// be modified.
type BlockFunc func(block, prev *chain.Block)

// BlockCacheKey is the coalescer key of the block watched under tag.
func BlockCacheKey(uid string, tag chain.BlockTag, includeTransactions bool) string {
	return fmt.Sprintf("getBlock.%s.%s.%t", uid, tag, includeTransactions)
}

// blockWatcher holds the state of one WatchBlocks call. It is only used from
// one goroutine at a time.
type blockWatcher struct {
	client     *client.Client
	cfg        config
	onBlock    BlockFunc
	checkpoint *checkpointer

	last *chain.Block // last emitted block with a number
}

// WatchBlocks calls onBlock for every new block and returns a function that
// stops watching. Fetch errors go to WithOnError and do not stop the watcher.
func WatchBlocks(ctx context.Context, c *client.Client, onBlock BlockFunc, opts ...Option) poll.StopFunc {
	cfg := newConfig(c, opts)
	w := &blockWatcher{
		client:     c,
		cfg:        cfg,
		onBlock:    onBlock,
		checkpoint: newCheckpointer(cfg),
	}

	if stop, ok := subscribeHeads(ctx, c, cfg, w.onHead); ok {
		return stop
	}

	return poll.Poll(ctx, func(ctx context.Context, _ poll.StopFunc) {
		w.restore(ctx)

		block, err := w.fetchHead(ctx)
		if err != nil {
			cfg.fail(ctx, err)
			return
		}

		if err := w.handle(ctx, block); err != nil {
			cfg.fail(ctx, err)
		}
	}, poll.WithInterval(cfg.interval), poll.WithEmitOnBegin(cfg.emitOnBegin))
}

func (w *blockWatcher) restore(ctx context.Context) {
	n, err := w.checkpoint.load(ctx)
	if err != nil {
		w.cfg.fail(ctx, fmt.Errorf("load checkpoint: %w", err))
		return
	}
	if n != nil && w.last == nil {
		w.last = &chain.Block{Number: (*hexutil.Big)(n)}
	}
}

func (w *blockWatcher) fetchHead(ctx context.Context) (*chain.Block, error) {
	key := BlockCacheKey(w.client.UID(), w.cfg.blockTag, w.cfg.includeTransactions)
	return coalesce.WithCache(ctx, w.client.Cache(), key, w.cfg.interval, func(ctx context.Context) (*chain.Block, error) {
		return chain.GetBlock(ctx, w.client, chain.BlockQuery{
			Tag:                 w.cfg.blockTag,
			IncludeTransactions: w.cfg.includeTransactions,
		})
	})
}

func (w *blockWatcher) fetchNumber(ctx context.Context, n *big.Int) (*chain.Block, error) {
	return chain.GetBlock(ctx, w.client, chain.BlockQuery{
		Number:              new(big.Int).Set(n),
		IncludeTransactions: w.cfg.includeTransactions,
	})
}

// onHead handles a block header pushed by a newHeads subscription.
func (w *blockWatcher) onHead(ctx context.Context, head *chain.Block) {
	w.restore(ctx)

	block := head
	if w.cfg.includeTransactions && head.BlockNumber() != nil {
		full, err := w.fetchNumber(ctx, head.BlockNumber())
		if err != nil {
			w.cfg.fail(ctx, err)
			return
		}
		block = full
	}

	if err := w.handle(ctx, block); err != nil {
		w.cfg.fail(ctx, err)
	}
}

// handle applies the ordering rules to a fetched block. When backfilling
// fails, the blocks emitted so far are kept and the next tick resumes from
// the last of them.
func (w *blockWatcher) handle(ctx context.Context, block *chain.Block) error {
	n := block.BlockNumber()
	if n == nil || w.last == nil {
		w.emit(ctx, block)
		return nil
	}

	prev := w.last.BlockNumber()
	if n.Cmp(prev) <= 0 {
		return nil
	}

	if w.cfg.emitMissed {
		for i := new(big.Int).Add(prev, one); i.Cmp(n) < 0; i.Add(i, one) {
			missed, err := w.fetchNumber(ctx, i)
			if err != nil {
				return fmt.Errorf("fetch missed block %s: %w", i, err)
			}
			w.emit(ctx, missed)
		}
	}

	w.emit(ctx, block)
	return nil
}

func (w *blockWatcher) emit(ctx context.Context, block *chain.Block) {
	w.onBlock(block, w.last)

	n := block.BlockNumber()
	if n == nil {
		return
	}
	w.last = block

	if err := w.checkpoint.save(ctx, n); err != nil {
		w.cfg.fail(ctx, fmt.Errorf("save checkpoint: %w", err))
	}
}
