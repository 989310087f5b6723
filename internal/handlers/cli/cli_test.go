package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gabapcia/rpcwatch/internal/blockwatch"
	blockwatchtest "github.com/gabapcia/rpcwatch/internal/blockwatch/mocks"
	"github.com/gabapcia/rpcwatch/internal/client"
	"github.com/gabapcia/rpcwatch/internal/pkg/validator"
	"github.com/gabapcia/rpcwatch/internal/transport"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

const txHash = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"

// node answers with an increasing head on every head request.
type node struct {
	mu   sync.Mutex
	head uint64
}

func (n *node) request(_ context.Context, method string, params []any) (json.RawMessage, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch method {
	case "eth_blockNumber":
		n.head++
		return json.Marshal(hexutil.EncodeUint64(n.head))
	case "eth_getBlockByNumber":
		number := n.head
		if id := params[0].(string); id == "latest" {
			n.head++
			number = n.head
		} else {
			number = hexutil.MustDecodeUint64(id)
		}
		return json.RawMessage(fmt.Sprintf(`{"number":"%s","transactions":[]}`, hexutil.EncodeUint64(number))), nil
	case "eth_getTransactionByHash":
		return json.RawMessage(`{"hash":"` + txHash + `","from":"0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266","nonce":"0x1","value":"0x0"}`), nil
	case "eth_getTransactionReceipt":
		return json.RawMessage(`{"transactionHash":"` + txHash + `","blockNumber":"0x1","status":"0x1","gasUsed":"0x5208"}`), nil
	}

	return nil, fmt.Errorf("unexpected method %s", method)
}

func newTestClient(t *testing.T) *client.Client {
	t.Helper()

	tr, err := transport.NewCustom(transport.ProviderFunc((&node{}).request), transport.WithRetryCount(0))
	require.NoError(t, err)

	c, err := client.New(tr, client.WithPollingInterval(10*time.Millisecond))
	require.NoError(t, err)
	return c
}

func run(t *testing.T, cmd *cli.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := &cli.Command{
		Writer:   &out,
		Commands: []*cli.Command{cmd},
	}

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	err := app.Run(ctx, append([]string{"test"}, args...))
	return out.String(), err
}

func TestRun(t *testing.T) {
	// Save original os.Args to restore after tests
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
	}()

	t.Run("should print help", func(t *testing.T) {
		// Arrange
		os.Args = []string{"rpcwatch", "--help"}

		// Act
		err := Run(t.Context(), newTestClient(t), nil)

		// Assert
		assert.NoError(t, err)
	})

	t.Run("should run a registered command", func(t *testing.T) {
		// Arrange
		os.Args = []string{"rpcwatch", "block-number", "--emit-on-begin", "--count", "1"}

		// Act
		err := Run(t.Context(), newTestClient(t), nil)

		// Assert
		assert.NoError(t, err)
	})

	t.Run("should fail on a missing required flag", func(t *testing.T) {
		// Arrange
		os.Args = []string{"rpcwatch", "wait"}

		// Act
		err := Run(t.Context(), newTestClient(t), nil)

		// Assert
		assert.Error(t, err)
	})
}

func TestWatchBlocksCommand(t *testing.T) {
	t.Run("should create command with correct metadata", func(t *testing.T) {
		// Act
		cmd := watchBlocksCommand(newTestClient(t), nil)

		// Assert
		assert.Equal(t, "blocks", cmd.Name)
		assert.Len(t, cmd.Flags, 7)
		assert.NotNil(t, cmd.Action)
	})

	t.Run("should print blocks until count is reached", func(t *testing.T) {
		// Act
		out, err := run(t, watchBlocksCommand(newTestClient(t), nil), "blocks", "--emit-on-begin", "--count", "3")

		// Assert
		require.NoError(t, err)
		assert.Equal(t,
			"block=1 hash=none transactions=0 prev=none\n"+
				"block=2 hash=none transactions=0 prev=1\n"+
				"block=3 hash=none transactions=0 prev=2\n",
			out,
		)
	})

	t.Run("should save checkpoints", func(t *testing.T) {
		// Arrange
		storage := blockwatchtest.NewCheckpointStorage(t)
		storage.EXPECT().LoadLatestCheckpoint(mock.Anything, "local").Return(nil, blockwatch.ErrNoCheckpointFound).Once()
		storage.EXPECT().SaveCheckpoint(mock.Anything, "local", mock.Anything).Return(nil)

		// Act
		out, err := run(t, watchBlocksCommand(newTestClient(t), storage), "blocks", "--emit-on-begin", "--count", "1", "--checkpoint", "local")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "block=1 hash=none transactions=0 prev=none\n", out)
	})

	t.Run("should reject checkpoint without storage", func(t *testing.T) {
		// Act
		_, err := run(t, watchBlocksCommand(newTestClient(t), nil), "blocks", "--checkpoint", "local")

		// Assert
		assert.ErrorIs(t, err, ErrCheckpointUnavailable)
	})

	t.Run("should reject an unknown tag", func(t *testing.T) {
		// Act
		_, err := run(t, watchBlocksCommand(newTestClient(t), nil), "blocks", "--tag", "newest")

		// Assert
		assert.ErrorIs(t, err, validator.ErrValidationFailed)
	})

	t.Run("should stop when the context is canceled", func(t *testing.T) {
		// Arrange
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		app := &cli.Command{Commands: []*cli.Command{watchBlocksCommand(newTestClient(t), nil)}}

		// Act
		err := app.Run(ctx, []string{"test", "blocks"})

		// Assert
		assert.NoError(t, err)
	})
}

func TestWatchBlockNumberCommand(t *testing.T) {
	t.Run("should print numbers until count is reached", func(t *testing.T) {
		// Act
		out, err := run(t, watchBlockNumberCommand(newTestClient(t)), "block-number", "--emit-on-begin", "--count", "2")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "block-number=1 prev=none\nblock-number=2 prev=1\n", out)
	})
}

func TestWaitForReceiptCommand(t *testing.T) {
	t.Run("should create command with correct metadata", func(t *testing.T) {
		// Act
		cmd := waitForReceiptCommand(newTestClient(t))

		// Assert
		assert.Equal(t, "wait", cmd.Name)
		assert.Len(t, cmd.Flags, 3)

		hashFlag := cmd.Flags[0].(*cli.StringFlag)
		assert.Equal(t, "hash", hashFlag.Name)
		assert.True(t, hashFlag.Required)
	})

	t.Run("should print the receipt", func(t *testing.T) {
		// Act
		out, err := run(t, waitForReceiptCommand(newTestClient(t)), "wait", "--hash", txHash)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "receipt transaction="+txHash+" block=1 status=1 gas-used=21000\n", out)
	})

	t.Run("should reject a malformed hash", func(t *testing.T) {
		// Act
		_, err := run(t, waitForReceiptCommand(newTestClient(t)), "wait", "--hash", "0x1234")

		// Assert
		assert.ErrorIs(t, err, validator.ErrValidationFailed)
	})

	t.Run("should reject zero confirmations", func(t *testing.T) {
		// Act
		_, err := run(t, waitForReceiptCommand(newTestClient(t)), "wait", "--hash", txHash, "--confirmations", "0")

		// Assert
		assert.ErrorIs(t, err, validator.ErrValidationFailed)
	})
}
