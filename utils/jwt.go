package utils

import (
	"errors"
	"time"

	"innkeeper/config"

	"github.com/golang-jwt/jwt"
)

func secretKey() []byte {
	secret := config.AppConfig.JWTSecret
	if secret == "" {
		secret = "innkeeper-dev"
	}
	return []byte(secret)
}

// GenerateToken creates a signed JWT for the given agent identifier.
// The token expires after the specified duration.
func GenerateToken(agentID string, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": agentID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey())
}

// ValidateToken parses and validates a token string and returns the token if valid.
func ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey(), nil
	})
}
