package txwatch

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/gabapcia/rpcwatch/internal/chain"
	"github.com/gabapcia/rpcwatch/internal/client"
	"github.com/gabapcia/rpcwatch/internal/pkg/logger"
	"github.com/gabapcia/rpcwatch/internal/pkg/poll"

	"github.com/ethereum/go-ethereum/common"
)

// watch is the state of one shared wait. onBlockNumber runs on the block
// number watcher's goroutine, one block at a time.
type watch struct {
	ctx           context.Context
	client        *client.Client
	key           string
	hash          common.Hash
	confirmations uint64
	emit          func(func(subscriber))

	transaction *chain.Transaction // last seen while pending
	receipt     *chain.Receipt
	replacement *ReplacementResult
	done        bool

	mu      sync.Mutex
	stop    poll.StopFunc
	stopped bool
}

func (w *watch) setStop(stop poll.StopFunc) {
	w.mu.Lock()
	w.stop = stop
	stopped := w.stopped
	w.mu.Unlock()

	if stopped {
		stop()
	}
}

// halt stops the block number watcher. It may run before setStop.
func (w *watch) halt() {
	w.mu.Lock()
	w.stopped = true
	stop := w.stop
	w.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func (w *watch) onBlockNumber(n, _ *big.Int) {
	if w.done {
		return
	}

	if w.receipt != nil {
		if w.confirmed(n) {
			w.resolve()
		}
		return
	}

	pending := w.transaction

	tx, err := chain.GetTransaction(w.ctx, w.client, w.hash)
	if err == nil {
		w.transaction = tx

		var receipt *chain.Receipt
		receipt, err = chain.GetTransactionReceipt(w.ctx, w.client, w.hash)
		if err == nil {
			w.receipt = receipt
			if w.confirmed(n) {
				w.resolve()
			}
			return
		}
	}

	switch {
	case !chain.IsNotFound(err):
		w.reject(err)
	case pending != nil:
		w.lookForReplacement(n, pending)
	case w.transaction == nil:
		// never seen pending
		w.reject(err)
	}
}

// lookForReplacement scans the block at n for a transaction with the sender
// and nonce of pending.
func (w *watch) lookForReplacement(n *big.Int, pending *chain.Transaction) {
	block, err := chain.GetBlock(w.ctx, w.client, chain.BlockQuery{Number: n, IncludeTransactions: true})
	if err != nil {
		if !chain.IsNotFound(err) {
			w.reject(err)
		}
		return
	}

	var found *chain.Transaction
	for i := range block.Transactions {
		tx := &block.Transactions[i]
		if tx.From == pending.From && tx.Nonce == pending.Nonce {
			found = tx
			break
		}
	}
	if found == nil {
		logger.Debug(w.ctx, "transaction still pending", "tx.hash", w.hash, "block.number", n)
		return
	}

	receipt, err := chain.GetTransactionReceipt(w.ctx, w.client, found.Hash)
	if err != nil {
		if !chain.IsNotFound(err) {
			w.reject(err)
		}
		return
	}
	w.receipt = receipt

	// found is the watched transaction itself when its own lookup missed
	if found.Hash != w.hash {
		w.replacement = &ReplacementResult{
			Reason:              classify(pending, found),
			ReplacedTransaction: pending,
			Transaction:         found,
			TransactionReceipt:  receipt,
		}
	}

	if w.confirmed(n) {
		w.resolve()
	}
}

func (w *watch) confirmed(n *big.Int) bool {
	if w.receipt.BlockNumber == nil {
		return false
	}

	depth := new(big.Int).Sub(n, w.receipt.BlockNumber.ToInt())
	depth.Add(depth, big.NewInt(1))
	return depth.Cmp(new(big.Int).SetUint64(w.confirmations)) >= 0
}

// finish stops watching and releases the key before the result is emitted,
// so later waits on the same hash start afresh.
func (w *watch) finish() {
	w.done = true
	w.halt()
	w.client.Observers().Detach(w.key)
}

func (w *watch) resolve() {
	w.finish()

	receipt, replacement := w.receipt, w.replacement
	if replacement != nil {
		logger.Info(w.ctx, "transaction replaced",
			"tx.hash", w.hash,
			"tx.replacement", replacement.Transaction.Hash,
			"tx.reason", replacement.Reason,
		)
		w.emit(func(s subscriber) {
			if s.onReplaced != nil {
				s.onReplaced(*replacement)
			}
		})
	}

	w.emit(func(s subscriber) { s.resolve(receipt) })
}

func (w *watch) reject(err error) {
	w.finish()

	err = fmt.Errorf("wait for transaction %s: %w", w.hash.Hex(), err)
	w.emit(func(s subscriber) { s.reject(err) })
}

// classify names a replacement: same recipient and value is a repricing, a
// zero value transfer to the sender is a cancellation.
func classify(original, replacement *chain.Transaction) Reason {
	switch {
	case sameAddress(original.To, replacement.To) && sameValue(original, replacement):
		return ReasonRepriced
	case replacement.To != nil && *replacement.To == replacement.From && isZero(replacement):
		return ReasonCancelled
	default:
		return ReasonReplaced
	}
}

func sameAddress(a, b *common.Address) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func value(tx *chain.Transaction) *big.Int {
	if tx.Value == nil {
		return new(big.Int)
	}
	return tx.Value.ToInt()
}

func sameValue(a, b *chain.Transaction) bool {
	return value(a).Cmp(value(b)) == 0
}

func isZero(tx *chain.Transaction) bool {
	return value(tx).Sign() == 0
}
