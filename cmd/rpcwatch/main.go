// Command rpcwatch follows an Ethereum node through JSON-RPC.
//
// It is configured through RPCWATCH_* environment variables, see the config
// package.
package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/gabapcia/rpcwatch/internal/blockwatch"
	"github.com/gabapcia/rpcwatch/internal/client"
	"github.com/gabapcia/rpcwatch/internal/config"
	"github.com/gabapcia/rpcwatch/internal/handlers/cli"
	"github.com/gabapcia/rpcwatch/internal/infra/storage/redis"
	"github.com/gabapcia/rpcwatch/internal/pkg/logger"
	"github.com/gabapcia/rpcwatch/internal/pkg/telemetry"
	"github.com/gabapcia/rpcwatch/internal/transport"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.TelemetryEnabled {
		shutdown, err := telemetry.Init(ctx, cfg.ServiceName)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer shutdown(context.WithoutCancel(ctx))
	}

	if err := logger.Init(logger.WithLevel(cfg.LogLevel)); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	t, err := newTransport(cfg)
	if err != nil {
		return err
	}
	if closer, ok := t.(io.Closer); ok {
		defer closer.Close()
	}

	c, err := client.New(t, client.WithPollingInterval(cfg.PollingInterval))
	if err != nil {
		return err
	}

	var storage blockwatch.CheckpointStorage
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rdb.Close()

		storage = rdb
	}

	return cli.Run(ctx, c, storage)
}

// newTransport picks the transport from the RPC URL scheme. ipc:// and
// unix:// URLs and plain paths are IPC sockets.
func newTransport(cfg config.Config) (transport.Transport, error) {
	opts := []transport.Option{
		transport.WithRetryCount(cfg.RetryCount),
		transport.WithRetryDelay(cfg.RetryDelay),
		transport.WithTimeout(cfg.Timeout),
	}

	var scheme string
	if u, err := url.Parse(cfg.RPCURL); err == nil {
		scheme = u.Scheme
	}

	var (
		t   transport.Transport
		err error
	)
	switch scheme {
	case "http", "https":
		t, err = transport.NewHTTP(cfg.RPCURL, opts...)
	case "ws", "wss":
		t, err = transport.NewWebSocket(cfg.RPCURL, opts...)
	default:
		t, err = transport.NewIPC(cfg.RPCURL, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("create transport: %w", err)
	}

	return t, nil
}
