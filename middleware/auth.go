package middleware

import (
	"net/http"
	"strings"

	"innkeeper/models"
	"innkeeper/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// AgentAuthMiddleware authenticates the calling booking agent via a bearer
// token. The token subject becomes the acting actor on every transition the
// request produces.
func AgentAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := utils.ValidateToken(tokenString)
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token missing subject"})
			return
		}

		c.Set("actor", models.Actor("agent:"+sub))
		c.Next()
	}
}

// ActorFromContext returns the authenticated actor, defaulting to system for
// internal callers.
func ActorFromContext(c *gin.Context) models.Actor {
	if v, ok := c.Get("actor"); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.ActorSystem
}
