package blockwatch

import (
	"context"
	"errors"
	"math/big"
)

// ErrNoCheckpointFound is returned by LoadLatestCheckpoint when nothing has
// been saved under the requested name.
var ErrNoCheckpointFound = errors.New("no checkpoint found")

// CheckpointStorage persists the last block number emitted by a watcher so
// that a restarted watcher resumes where it stopped.
type CheckpointStorage interface {
	// SaveCheckpoint records number as the latest checkpoint of name,
	// overwriting any previous value.
	SaveCheckpoint(ctx context.Context, name string, number *big.Int) error

	// LoadLatestCheckpoint returns the number saved under name, or
	// ErrNoCheckpointFound.
	LoadLatestCheckpoint(ctx context.Context, name string) (*big.Int, error)
}

// checkpointer wraps an optional CheckpointStorage.
type checkpointer struct {
	storage CheckpointStorage
	name    string
	loaded  bool
}

func newCheckpointer(cfg config) *checkpointer {
	return &checkpointer{storage: cfg.checkpointStorage, name: cfg.checkpointName}
}

// load returns the saved number the first time it is called. Later calls and
// watchers without storage return nil.
func (c *checkpointer) load(ctx context.Context) (*big.Int, error) {
	if c.storage == nil || c.loaded {
		return nil, nil
	}
	c.loaded = true

	n, err := c.storage.LoadLatestCheckpoint(ctx, c.name)
	if errors.Is(err, ErrNoCheckpointFound) {
		return nil, nil
	}
	return n, err
}

func (c *checkpointer) save(ctx context.Context, n *big.Int) error {
	if c.storage == nil || n == nil {
		return nil
	}
	return c.storage.SaveCheckpoint(ctx, c.name, n)
}
