// Package redis owns the Redis connection the backend stores all of
// its state in: giveaways, winner sets, claims, wallets and
// notifications.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client wraps the go-redis client so repositories depend on one
// project type instead of the driver directly.
type Client struct {
	*redis.Client
}

// Open connects to Redis at addr and pings it before handing the
// client out, so a misconfigured address fails at startup rather than
// on the first draw.
func Open(ctx context.Context, addr, password string, db int) (*Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty redis addr")
	}
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &Client{Client: c}, nil
}
