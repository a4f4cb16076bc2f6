package middleware

import (
	"net/http"
	"time"

	"innkeeper/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const idemKeyPrefix = "idem:"

// IdempotencyMiddleware de-duplicates command requests by their
// Idempotency-Key header. The first request claims the key; replays inside
// the TTL are rejected so a retried POST cannot apply a transition twice.
// Requests without the header pass through untouched.
func IdempotencyMiddleware(client *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("Idempotency-Key")
		if key == "" || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		ttl := time.Duration(config.AppConfig.IdempotencyTTL) * time.Second
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}

		claimed, err := client.SetNX(c.Request.Context(), idemKeyPrefix+key, c.FullPath(), ttl).Result()
		if err != nil {
			// Redis being down must not block commands; log and continue.
			zap.L().Warn("idempotency check unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !claimed {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": "Duplicate request: this idempotency key was already used",
			})
			return
		}
		c.Next()
	}
}
