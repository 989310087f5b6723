// Package redis stores block watcher checkpoints in Redis.
package redis

import (
	"context"

	redis "github.com/redis/go-redis/v9"
)

// Client is a Redis connection that implements blockwatch.CheckpointStorage.
type Client struct {
	conn *redis.Client
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// NewClient connects to addr and pings the server.
func NewClient(ctx context.Context, addr, username, password string, db int) (*Client, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       db,
	})

	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &Client{
		conn: conn,
	}, nil
}
