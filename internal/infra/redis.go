// README: Redis client initialization for the shared quote cache and rate-limit windows.
package infra

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

func NewRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrapf(err, "redis ping %s", addr)
	}
	return client, nil
}
