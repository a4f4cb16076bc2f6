package utils

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// HealthStatus represents current status of external services.
type HealthStatus struct {
	Mongo     bool      `json:"mongo"`
	Redis     []bool    `json:"redis"`
	CheckedAt time.Time `json:"checkedAt"`
}

var (
	currentHealth HealthStatus
	healthMu      sync.RWMutex
)

// GetHealthStatus returns the latest stored health snapshot.
func GetHealthStatus() HealthStatus {
	healthMu.RLock()
	defer healthMu.RUnlock()
	return currentHealth
}

// StartHealthMonitor pings Mongo and each Redis client at the given interval
// and stores the result for the health endpoint.
func StartHealthMonitor(client *mongo.Client, redisClients []*redis.Client, interval time.Duration) {
	go func() {
		for {
			status := HealthStatus{CheckedAt: time.Now()}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			status.Mongo = client.Ping(ctx, nil) == nil
			cancel()

			for _, rc := range redisClients {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				status.Redis = append(status.Redis, rc.Ping(ctx).Err() == nil)
				cancel()
			}

			healthMu.Lock()
			currentHealth = status
			healthMu.Unlock()

			time.Sleep(interval)
		}
	}()
}
