package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"skillswap-service/internal/identity"
	"skillswap-service/internal/logger"
)

const (
	UserIDKey   = "userID"
	UserNameKey = "userName"
)

// AuthMiddleware validates the bearer token through the identity verifier.
func AuthMiddleware(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		token, ok := parseBearer(header)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		id, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, identity.ErrUnauthorized) {
				logger.Get().Error().Err(err).Msg("token verification failed")
			}
			msg := "invalid token"
			if errors.Is(err, identity.ErrExpiredToken) {
				msg = "token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(UserIDKey, id.UserID)
		c.Set(UserNameKey, id.Name)
		c.Next()
	}
}

// TokenFromRequest returns the bearer token of the Authorization header or,
// failing that, the token query parameter used by browser websockets.
func TokenFromRequest(r *http.Request) string {
	if token, ok := parseBearer(r.Header.Get("Authorization")); ok {
		return token
	}
	return r.URL.Query().Get("token")
}

func parseBearer(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
