package stores

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/brandgrowthos/bgos/pkg/settings"
)

type RedisClient = redis.UniversalClient

var (
	rcOnce sync.Once
	rcu    RedisClient
)

// SgtRC start return a singleton instance of redis client
func SgtRC() RedisClient {
	rcOnce.Do(func() {
		redisURI := settings.Current.RedisURI
		opt, err := redis.ParseURL(redisURI)
		if err != nil {
			logger().Panicw("prase redisURI fail", "uri", redisURI, "err", err)
		}
		rcu = redis.NewClient(opt)
		pingStatus := rcu.Ping(context.Background())
		if err = pingStatus.Err(); err != nil {
			logger().Panicw("ping redis fail", "err", err)
		}
	})

	return rcu
}

// SetRC overrides the shared redis client, for wiring and tests.
func SetRC(rc RedisClient) {
	rcOnce.Do(func() {})
	rcu = rc
}
