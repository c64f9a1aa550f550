package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ContextHostIDKey   = "current_host_id"
	ContextHostNameKey = "current_host_name"
)

var ErrInvalidToken = errors.New("invalid token")

// HostClaims is what a verified host token carries.
type HostClaims struct {
	HostID string
	Name   string
}

// ParseHostToken verifies an HS256 host token and extracts its claims.
func ParseHostToken(secret, tokenStr string) (HostClaims, error) {
	if secret == "" {
		return HostClaims{}, fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		// only accept HMAC signing
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return HostClaims{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return HostClaims{}, fmt.Errorf("%w: claims", ErrInvalidToken)
	}

	var hostID string
	if sub, ok := claims["sub"].(string); ok {
		hostID = sub
	} else if subf, ok := claims["sub"].(float64); ok {
		// jwt lib may parse numeric as float64
		hostID = strconv.Itoa(int(subf))
	}
	if hostID == "" {
		return HostClaims{}, fmt.Errorf("%w: subject", ErrInvalidToken)
	}
	name, _ := claims["name"].(string)
	if strings.TrimSpace(name) == "" {
		name = "Host"
	}
	return HostClaims{HostID: hostID, Name: name}, nil
}

// SignHostToken issues a host token; used by operators, there is no login flow.
func SignHostToken(secret, hostID, name string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT_SECRET_KEY is empty")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  hostID,
		"name": name,
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "missing authorization header"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid authorization header"})
			return
		}

		claims, err := ParseHostToken(secret, parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid token"})
			return
		}

		c.Set(ContextHostIDKey, claims.HostID)
		c.Set(ContextHostNameKey, claims.Name)
		c.Next()
	}
}
