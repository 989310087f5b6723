package cli

import (
	"context"
	"os"

	"github.com/gabapcia/rpcwatch/internal/blockwatch"
	"github.com/gabapcia/rpcwatch/internal/client"

	"github.com/urfave/cli/v3"
)

// Run initializes and executes the rpcwatch CLI application.
//
// It registers all available commands:
//
//   - `blocks`: Prints every new block.
//   - `block-number`: Prints every new block number.
//   - `wait`: Waits for a transaction receipt.
//
// storage may be nil, in which case `blocks --checkpoint` fails.
func Run(ctx context.Context, c *client.Client, storage blockwatch.CheckpointStorage) error {
	app := &cli.Command{
		EnableShellCompletion: true,
		Name:                  "rpcwatch",
		Description:           "Command-line interface for following an Ethereum node through JSON-RPC.",
		Usage:                 "rpcwatch [command] [flags]",
		Commands: []*cli.Command{
			watchBlocksCommand(c, storage),
			watchBlockNumberCommand(c),
			waitForReceiptCommand(c),
		},
	}

	return app.Run(ctx, os.Args)
}
