package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/inkpost/inkpost/config"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// InitRedis establishes the shared Redis client. When RedisHost is empty the
// client stays nil and every caching layer falls back to its in-memory or
// no-op path, which is what the test suite relies on.
func InitRedis(cfg config.AppConfig) {
	redisOnce.Do(func() {
		if cfg.RedisHost == "" {
			return
		}
		redisClient = redis.NewClient(&redis.Options{
			Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  3 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		})
		// Ping to surface connectivity problems early; errors are tolerated
		// so the server can boot with caching degraded.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil && Sugar != nil {
			Sugar.Warnf("redis ping failed, caching degraded: %v", err)
		}
	})
}

// GetRedis returns the shared Redis client, or nil when Redis is not configured.
func GetRedis() *redis.Client {
	return redisClient
}
