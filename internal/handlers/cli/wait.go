package cli

import (
	"context"
	"fmt"

	"github.com/gabapcia/rpcwatch/internal/client"
	"github.com/gabapcia/rpcwatch/internal/pkg/validator"
	"github.com/gabapcia/rpcwatch/internal/txwatch"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v3"
)

type waitParams struct {
	Hash          string `validate:"required,hash"`
	Confirmations uint64 `validate:"min=1"`
}

// waitForReceiptCommand returns a CLI command that blocks until a transaction
// is confirmed and prints its receipt.
//
// Usage example:
//
//	rpcwatch wait --hash 0xabc... --confirmations 3 --timeout 2m
func waitForReceiptCommand(c *client.Client) *cli.Command {
	return &cli.Command{
		Name:        "wait",
		Description: "Wait for a transaction to be mined and confirmed, following replacements.",
		Usage:       "Prints the receipt once the transaction has enough confirmations.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "hash",
				Usage:    "Transaction hash to wait for",
				Required: true,
			},
			&cli.UintFlag{
				Name:  "confirmations",
				Usage: "Number of blocks, including the one with the transaction, to wait for",
				Value: 1,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Give up after this long (0 waits forever)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			params := waitParams{
				Hash:          cmd.String("hash"),
				Confirmations: uint64(cmd.Uint("confirmations")),
			}
			if err := validator.Validate(params); err != nil {
				return err
			}

			w := cmd.Root().Writer
			receipt, err := txwatch.WaitForTransactionReceipt(ctx, c, common.HexToHash(params.Hash),
				txwatch.WithConfirmations(params.Confirmations),
				txwatch.WithTimeout(cmd.Duration("timeout")),
				txwatch.WithOnReplaced(func(res txwatch.ReplacementResult) {
					fmt.Fprintf(w, "replaced reason=%s replacement=%s\n", res.Reason, res.Transaction.Hash.Hex())
				}),
			)
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "receipt transaction=%s block=%s status=%d gas-used=%d\n",
				receipt.TransactionHash.Hex(),
				receipt.BlockNumber.ToInt(),
				uint64(receipt.Status),
				uint64(receipt.GasUsed),
			)
			return nil
		},
	}
}
