package redis

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/gabapcia/rpcwatch/internal/blockwatch"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/redis/go-redis/v9"
)

// checkpointKeyPrefix namespaces every checkpoint key.
const checkpointKeyPrefix = "rpcwatch"

// checkpointKey builds the key holding the checkpoint of a watcher:
//
//	"rpcwatch:checkpoint:<name>"
func checkpointKey(name string) string {
	return fmt.Sprintf("%s:checkpoint:%s", checkpointKeyPrefix, name)
}

// SaveCheckpoint stores number, hex encoded and without expiration, as the
// checkpoint of name.
func (c *Client) SaveCheckpoint(ctx context.Context, name string, number *big.Int) error {
	return c.conn.Set(ctx, checkpointKey(name), hexutil.EncodeBig(number), 0).Err()
}

// LoadLatestCheckpoint returns the checkpoint of name, or
// blockwatch.ErrNoCheckpointFound when none was saved.
func (c *Client) LoadLatestCheckpoint(ctx context.Context, name string) (*big.Int, error) {
	val, err := c.conn.Get(ctx, checkpointKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			err = blockwatch.ErrNoCheckpointFound
		}

		return nil, err
	}

	return decodeCheckpoint(name, val)
}

func decodeCheckpoint(name, val string) (*big.Int, error) {
	n, err := hexutil.DecodeBig(val)
	if err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", name, err)
	}
	return n, nil
}

var _ blockwatch.CheckpointStorage = (*Client)(nil)
