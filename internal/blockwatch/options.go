package blockwatch

import (
	"context"
	"time"

	"github.com/gabapcia/rpcwatch/internal/chain"
	"github.com/gabapcia/rpcwatch/internal/client"
	"github.com/gabapcia/rpcwatch/internal/pkg/logger"
)

// config holds the settings shared by WatchBlocks and WatchBlockNumber.
type config struct {
	blockTag            chain.BlockTag
	emitMissed          bool
	emitOnBegin         bool
	includeTransactions bool
	interval            time.Duration
	poll                bool
	onError             func(error)

	checkpointStorage CheckpointStorage
	checkpointName    string
}

// Option configures a watcher.
type Option func(*config)

func newConfig(c *client.Client, opts []Option) config {
	cfg := config{
		blockTag: chain.BlockTagLatest,
		interval: c.PollingInterval(),
		poll:     true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.interval <= 0 {
		cfg.interval = c.PollingInterval()
	}
	if cfg.blockTag == "" {
		cfg.blockTag = chain.BlockTagLatest
	}
	return cfg
}

// WithBlockTag selects the watched block. Defaults to latest.
func WithBlockTag(tag chain.BlockTag) Option {
	return func(c *config) {
		c.blockTag = tag
	}
}

// WithEmitMissed emits every block skipped between two ticks.
func WithEmitMissed(b bool) Option {
	return func(c *config) {
		c.emitMissed = b
	}
}

// WithEmitOnBegin fetches and emits immediately instead of waiting one interval.
func WithEmitOnBegin(b bool) Option {
	return func(c *config) {
		c.emitOnBegin = b
	}
}

// WithIncludeTransactions fetches blocks with full transaction objects.
func WithIncludeTransactions(b bool) Option {
	return func(c *config) {
		c.includeTransactions = b
	}
}

// WithPollingInterval overrides the client's polling interval.
func WithPollingInterval(d time.Duration) Option {
	return func(c *config) {
		c.interval = d
	}
}

// WithPoll selects polling (the default). With false and a transport able to
// subscribe, new heads are pushed through eth_subscribe instead.
func WithPoll(b bool) Option {
	return func(c *config) {
		c.poll = b
	}
}

// WithOnError receives fetch errors. Without it they are logged.
func WithOnError(f func(error)) Option {
	return func(c *config) {
		c.onError = f
	}
}

// WithCheckpoint restores the last emitted number from storage under name
// when the watcher starts and saves every number emitted afterwards.
func WithCheckpoint(storage CheckpointStorage, name string) Option {
	return func(c *config) {
		c.checkpointStorage = storage
		c.checkpointName = name
	}
}

func (c config) fail(ctx context.Context, err error) {
	if c.onError != nil {
		c.onError(err)
		return
	}
	logger.Warn(ctx, "block watcher failed", "error", err)
}
