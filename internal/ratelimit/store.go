package ratelimit

import (
	"fmt"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const defaultPrefix = "toko-pricing:ratelimit"

// NewStore returns a Redis backed store, or an in-process store when client is nil.
func NewStore(client *redis.Client, prefix string) (limiter.Store, error) {
	if prefix == "" {
		prefix = defaultPrefix
	}
	opts := limiter.StoreOptions{Prefix: prefix, CleanUpInterval: limiter.DefaultCleanUpInterval}
	if client == nil {
		return memory.NewStoreWithOptions(opts), nil
	}
	store, err := limiterredis.NewStoreWithOptions(client, opts)
	if err != nil {
		return nil, fmt.Errorf("ratelimit store: %w", err)
	}
	return store, nil
}

// New builds a limiter from a formatted rate such as "300-M".
func New(store limiter.Store, formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", formatted, err)
	}
	return limiter.New(store, rate), nil
}
