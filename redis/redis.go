// Package redis archives final connection telemetry snapshots in redis,
// keyed by connection UUID, so that access-log and analysis pipelines
// can join on the UUID after the connection is gone. The record itself
// defines no serialization; this package owns the archival envelope.
package redis

import (
	"github.com/redis/go-redis/v9"
)

// Client wraps the redis client.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new redis client connected to the given address,
// e.g. "localhost:6379".
func NewClient(addr string) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &Client{rdb: rdb}
}

// Close closes the redis client connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
