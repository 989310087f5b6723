package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/gabapcia/rpcwatch/internal/blockwatch"
	"github.com/gabapcia/rpcwatch/internal/chain"
	"github.com/gabapcia/rpcwatch/internal/client"
	"github.com/gabapcia/rpcwatch/internal/pkg/logger"
	"github.com/gabapcia/rpcwatch/internal/pkg/validator"

	"github.com/urfave/cli/v3"
)

// ErrCheckpointUnavailable is returned by `blocks --checkpoint` when no
// checkpoint storage is configured.
var ErrCheckpointUnavailable = errors.New("checkpoint storage is not configured")

type blocksParams struct {
	Tag string `validate:"blocktag"`
}

// watchContext ends on SIGINT or SIGTERM and can be canceled once enough
// emissions were printed.
func watchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(ctx)
	return ctx, func() {
		cancel()
		stop()
	}
}

// counter cancels once limit emissions were counted. A non-positive limit
// never cancels.
func counter(limit int64, cancel context.CancelFunc) func() {
	var seen int64
	return func() {
		seen++
		if limit > 0 && seen >= limit {
			cancel()
		}
	}
}

func numberString(n *big.Int) string {
	if n == nil {
		return "none"
	}
	return n.String()
}

func printBlock(w io.Writer, block, prev *chain.Block) {
	number := "pending"
	if n := block.BlockNumber(); n != nil {
		number = n.String()
	}

	hash := "none"
	if block.Hash != nil {
		hash = block.Hash.Hex()
	}

	fmt.Fprintf(w, "block=%s hash=%s transactions=%d prev=%s\n",
		number, hash, len(block.TransactionHashes), numberString(prev.BlockNumber()))
}

func watchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "emit-missed",
			Usage: "Also print blocks skipped between two polls",
		},
		&cli.BoolFlag{
			Name:  "emit-on-begin",
			Usage: "Print the current head immediately",
		},
		&cli.BoolFlag{
			Name:  "poll",
			Usage: "Poll the node; set to false to subscribe to new heads over WebSocket or IPC",
			Value: true,
		},
		&cli.IntFlag{
			Name:  "count",
			Usage: "Exit after printing this many emissions (0 runs until interrupted)",
		},
	}
}

func watchOptions(cmd *cli.Command) []blockwatch.Option {
	return []blockwatch.Option{
		blockwatch.WithEmitMissed(cmd.Bool("emit-missed")),
		blockwatch.WithEmitOnBegin(cmd.Bool("emit-on-begin")),
		blockwatch.WithPoll(cmd.Bool("poll")),
	}
}

// watchBlocksCommand returns a CLI command that prints every new block.
//
// Usage example:
//
//	rpcwatch blocks --tag safe --emit-missed --checkpoint mainnet
//
// The process runs until it receives an interrupt (SIGINT or SIGTERM) or
// --count blocks were printed.
func watchBlocksCommand(c *client.Client, storage blockwatch.CheckpointStorage) *cli.Command {
	flags := append(watchFlags(),
		&cli.StringFlag{
			Name:  "tag",
			Usage: "Block tag to follow (latest, safe, finalized, pending)",
			Value: string(chain.BlockTagLatest),
		},
		&cli.BoolFlag{
			Name:  "include-transactions",
			Usage: "Fetch blocks with full transaction objects",
		},
		&cli.StringFlag{
			Name:  "checkpoint",
			Usage: "Resume from and save progress under this name",
		},
	)

	return &cli.Command{
		Name:        "blocks",
		Description: "Print every new block as the chain head advances.",
		Usage:       "Follows a block tag and prints each new block. Terminates on Ctrl+C or termination signals.",
		Flags:       flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			tag := cmd.String("tag")
			if err := validator.Validate(blocksParams{Tag: tag}); err != nil {
				return err
			}

			opts := append(watchOptions(cmd),
				blockwatch.WithBlockTag(chain.BlockTag(tag)),
				blockwatch.WithIncludeTransactions(cmd.Bool("include-transactions")),
				blockwatch.WithOnError(func(err error) {
					logger.Error(ctx, "watch blocks failed", "error", err)
				}),
			)

			if name := cmd.String("checkpoint"); name != "" {
				if storage == nil {
					return ErrCheckpointUnavailable
				}
				opts = append(opts, blockwatch.WithCheckpoint(storage, name))
			}

			ctx, cancel := watchContext(ctx)
			defer cancel()

			w := cmd.Root().Writer
			count := counter(int64(cmd.Int("count")), cancel)

			stop := blockwatch.WatchBlocks(ctx, c, func(block, prev *chain.Block) {
				printBlock(w, block, prev)
				count()
			}, opts...)
			defer stop()

			<-ctx.Done()
			return nil
		},
	}
}

// watchBlockNumberCommand returns a CLI command that prints every new block
// number.
//
// Usage example:
//
//	rpcwatch block-number --emit-on-begin
func watchBlockNumberCommand(c *client.Client) *cli.Command {
	return &cli.Command{
		Name:        "block-number",
		Description: "Print every new block number as the chain head advances.",
		Usage:       "Follows eth_blockNumber and prints each new number. Terminates on Ctrl+C or termination signals.",
		Flags:       watchFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, cancel := watchContext(ctx)
			defer cancel()

			w := cmd.Root().Writer
			count := counter(int64(cmd.Int("count")), cancel)

			opts := append(watchOptions(cmd), blockwatch.WithOnError(func(err error) {
				logger.Error(ctx, "watch block number failed", "error", err)
			}))

			stop := blockwatch.WatchBlockNumber(ctx, c, func(n, prev *big.Int) {
				fmt.Fprintf(w, "block-number=%s prev=%s\n", n, numberString(prev))
				count()
			}, opts...)
			defer stop()

			<-ctx.Done()
			return nil
		},
	}
}
