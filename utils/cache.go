// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"innkeeper/config"

	"github.com/go-redis/redis/v8"
)

var (
	// CacheClient holds cached stay projections.
	CacheClient *redis.Client
	// IdemClient is the dedicated client for inbound command idempotency keys.
	IdemClient *redis.Client
)

// InitCache initializes the Redis client used for stay projection caching.
func InitCache() {
	CacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisCacheDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := CacheClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Cache): %v", err)
	}
}

// GetCacheClient returns the projection cache client.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		InitCache()
	}
	return CacheClient
}

// InitIdemCache initializes the Redis client for command idempotency keys.
func InitIdemCache() {
	IdemClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisIdemDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := IdemClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Idempotency): %v", err)
	}
}

// GetIdemClient returns the Redis client for idempotency keys.
func GetIdemClient() *redis.Client {
	if IdemClient == nil {
		InitIdemCache()
	}
	return IdemClient
}

// InitRedis brings up every Redis client the engine uses.
func InitRedis() {
	InitCache()
	InitIdemCache()
}
