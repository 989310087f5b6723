// Package txwatch waits for transactions to be mined and confirmed.
//
// A wait follows the chain head block by block. Once the receipt is known it
// resolves as soon as the receipt is buried under the requested number of
// confirmations. A pending transaction that disappears is looked for by
// sender and nonce in the current block, so speed-ups and cancellations
// resolve with the receipt of the replacement.
//
// Concurrent waits for the same hash on the same client share one watch.
package txwatch

import (
	"context"
	"fmt"
	"time"

	"github.com/gabapcia/rpcwatch/internal/blockwatch"
	"github.com/gabapcia/rpcwatch/internal/chain"
	"github.com/gabapcia/rpcwatch/internal/client"
	"github.com/gabapcia/rpcwatch/internal/pkg/coalesce"
	"github.com/gabapcia/rpcwatch/internal/pkg/resilience/timeout"
	"github.com/gabapcia/rpcwatch/internal/pkg/validator"
	"github.com/gabapcia/rpcwatch/internal/pkg/x/chflow"

	"github.com/ethereum/go-ethereum/common"
)

// Reason classifies a replacement.
type Reason string

const (
	// ReasonRepriced means the replacement kept the recipient and value.
	ReasonRepriced Reason = "repriced"
	// ReasonCancelled means the replacement sends nothing to its sender.
	ReasonCancelled Reason = "cancelled"
	// ReasonReplaced covers every other replacement.
	ReasonReplaced Reason = "replaced"
)

// ReplacementResult describes a transaction that was replaced by another one
// with the same sender and nonce.
type ReplacementResult struct {
	Reason              Reason
	ReplacedTransaction *chain.Transaction
	Transaction         *chain.Transaction
	TransactionReceipt  *chain.Receipt
}

// TimeoutError is returned when the receipt is not confirmed within the
// configured timeout.
type TimeoutError struct {
	Hash    common.Hash
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for transaction %s to be confirmed", e.Timeout, e.Hash)
}

func (e *TimeoutError) Unwrap() error {
	return timeout.ErrTimeout
}

// ObserverKey is the observer key shared by waits on hash through the client
// identified by uid.
func ObserverKey(uid string, hash common.Hash) string {
	return fmt.Sprintf("waitForTransactionReceipt.%s.%s", uid, hash.Hex())
}

type config struct {
	confirmations uint64
	interval      time.Duration
	timeout       time.Duration
	onReplaced    func(ReplacementResult)
}

type params struct {
	Confirmations   uint64        `validate:"min=1"`
	PollingInterval time.Duration `validate:"gt=0"`
	Timeout         time.Duration `validate:"gte=0"`
}

// Option configures WaitForTransactionReceipt.
type Option func(*config)

// WithConfirmations sets how many blocks, counting the one that includes the
// transaction, must exist before resolving. Defaults to 1.
func WithConfirmations(n uint64) Option {
	return func(c *config) {
		c.confirmations = n
	}
}

// WithPollingInterval overrides the client's polling interval.
func WithPollingInterval(d time.Duration) Option {
	return func(c *config) {
		c.interval = d
	}
}

// WithTimeout bounds the wait. Zero waits until ctx is done.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithOnReplaced is called before resolving when the transaction was
// replaced.
func WithOnReplaced(f func(ReplacementResult)) Option {
	return func(c *config) {
		c.onReplaced = f
	}
}

// subscriber is one caller attached to a shared watch.
type subscriber struct {
	onReplaced func(ReplacementResult)
	resolve    func(*chain.Receipt)
	reject     func(error)
}

type outcome struct {
	receipt *chain.Receipt
	err     error
}

// WaitForTransactionReceipt blocks until the transaction identified by hash
// has the requested number of confirmations and returns its receipt, or the
// receipt of the transaction that replaced it.
//
// It fails with a *TimeoutError when the timeout elapses, with ctx's error
// when ctx is done, and with the underlying error, wrapped with the hash,
// when a fetch fails for a
// reason other than the transaction being unknown to the node. A transaction
// unknown before it was ever seen pending is an error too.
//
// Returning early only detaches this caller; the shared watch stops once no
// caller is left.
func WaitForTransactionReceipt(ctx context.Context, c *client.Client, hash common.Hash, opts ...Option) (*chain.Receipt, error) {
	cfg := config{
		confirmations: 1,
		interval:      c.PollingInterval(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := validator.Validate(params{
		Confirmations:   cfg.confirmations,
		PollingInterval: cfg.interval,
		Timeout:         cfg.timeout,
	}); err != nil {
		return nil, err
	}

	results := make(chan outcome, 1)
	deliver := func(o outcome) { chflow.Offer(results, o) }

	sub := subscriber{
		onReplaced: cfg.onReplaced,
		resolve:    func(r *chain.Receipt) { deliver(outcome{receipt: r}) },
		reject:     func(err error) { deliver(outcome{err: err}) },
	}

	key := ObserverKey(c.UID(), hash)
	unobserve := coalesce.Observe(c.Observers(), key, sub, func(emit func(func(subscriber))) func() {
		w := &watch{
			ctx:           context.WithoutCancel(ctx),
			client:        c,
			key:           key,
			hash:          hash,
			confirmations: cfg.confirmations,
			emit:          emit,
		}

		w.setStop(blockwatch.WatchBlockNumber(w.ctx, c, w.onBlockNumber,
			blockwatch.WithEmitMissed(true),
			blockwatch.WithEmitOnBegin(true),
			blockwatch.WithPollingInterval(cfg.interval),
		))
		return w.halt
	})
	defer unobserve()

	var expired <-chan time.Time
	if cfg.timeout > 0 {
		timer := time.NewTimer(cfg.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case o := <-results:
		return o.receipt, o.err
	case <-expired:
		return nil, &TimeoutError{Hash: hash, Timeout: cfg.timeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
