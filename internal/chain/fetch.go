package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gabapcia/rpcwatch/internal/client"
	"github.com/gabapcia/rpcwatch/internal/pkg/coalesce"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("not found")

	ErrBlockNotFound       = fmt.Errorf("block %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrReceiptNotFound     = fmt.Errorf("transaction receipt %w", ErrNotFound)
)

// NotFoundError reports that the node returned null for a lookup.
type NotFoundError struct {
	Kind error  // ErrBlockNotFound, ErrTransactionNotFound or ErrReceiptNotFound
	ID   string // hash, number or tag that was looked up
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return e.Kind
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// BlockNumberCacheKey is the cache key of the client's latest block number.
func BlockNumberCacheKey(uid string) string {
	return "blockNumber." + uid
}

// GetBlockNumber returns the latest block number. Results are shared through
// the client cache for maxAge; a non-positive maxAge uses the client's
// polling interval.
func GetBlockNumber(ctx context.Context, c *client.Client, maxAge time.Duration) (*big.Int, error) {
	if maxAge <= 0 {
		maxAge = c.PollingInterval()
	}

	n, err := coalesce.WithCache(ctx, c.Cache(), BlockNumberCacheKey(c.UID()), maxAge, func(ctx context.Context) (*big.Int, error) {
		raw, err := c.Request(ctx, "eth_blockNumber")
		if err != nil {
			return nil, err
		}

		var n hexutil.Big
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("decode block number: %w", err)
		}
		return n.ToInt(), nil
	})
	if err != nil {
		return nil, err
	}

	// the cached value is shared between callers
	return new(big.Int).Set(n), nil
}

// BlockQuery selects a block by number or, when Number is nil, by tag.
type BlockQuery struct {
	Number              *big.Int
	Tag                 BlockTag // defaults to latest
	IncludeTransactions bool
}

func (q BlockQuery) id() string {
	if q.Number != nil {
		return hexutil.EncodeBig(q.Number)
	}
	if q.Tag == "" {
		return string(BlockTagLatest)
	}
	return string(q.Tag)
}

// GetBlock fetches the block selected by q.
func GetBlock(ctx context.Context, c *client.Client, q BlockQuery) (*Block, error) {
	id := q.id()

	raw, err := c.Request(ctx, "eth_getBlockByNumber", id, q.IncludeTransactions)
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, &NotFoundError{Kind: ErrBlockNotFound, ID: id}
	}

	var block Block
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, fmt.Errorf("decode block %s: %w", id, err)
	}
	return &block, nil
}

// GetTransaction fetches a transaction by hash. A transaction unknown to the
// node yields a NotFoundError.
func GetTransaction(ctx context.Context, c *client.Client, hash common.Hash) (*Transaction, error) {
	raw, err := c.Request(ctx, "eth_getTransactionByHash", hash)
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, &NotFoundError{Kind: ErrTransactionNotFound, ID: hash.Hex()}
	}

	var tx Transaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("decode transaction %s: %w", hash, err)
	}
	return &tx, nil
}

// GetTransactionReceipt fetches the receipt of a mined transaction. A pending
// or unknown transaction yields a NotFoundError.
func GetTransactionReceipt(ctx context.Context, c *client.Client, hash common.Hash) (*Receipt, error) {
	raw, err := c.Request(ctx, "eth_getTransactionReceipt", hash)
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, &NotFoundError{Kind: ErrReceiptNotFound, ID: hash.Hex()}
	}

	var receipt Receipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, fmt.Errorf("decode receipt %s: %w", hash, err)
	}
	return &receipt, nil
}
