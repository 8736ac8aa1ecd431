package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/casevault/casevault/internal/logging"
	"github.com/casevault/casevault/models"
)

const identityContextKey = "identity"

// AuthMiddleware validates the bearer token and attaches the caller identity
// to the request context. Token issuance lives elsewhere; this service only
// verifies and trusts the resulting identity.
func AuthMiddleware(secret string, l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.Envelope{
				Success: false,
				Error:   "missing bearer token",
			})
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			l.Warn("rejected invalid token", "path", c.FullPath(), "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.Envelope{
				Success: false,
				Error:   "invalid token",
			})
			return
		}

		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.Envelope{
				Success: false,
				Error:   "token has no subject",
			})
			return
		}

		c.Set(identityContextKey, models.Identity{UserID: sub})
		c.Next()
	}
}

// IdentityFromContext returns the identity the middleware attached.
func IdentityFromContext(c *gin.Context) models.Identity {
	if v, ok := c.Get(identityContextKey); ok {
		if id, ok := v.(models.Identity); ok {
			return id
		}
	}
	return models.Identity{}
}
