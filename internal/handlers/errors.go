package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"skillswap-service/internal/logger"
	"skillswap-service/internal/middleware"
	"skillswap-service/internal/services"
)

// respondError maps service errors to HTTP statuses. Unknown errors are logged
// and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		log := logger.WithRequest(requestIDFromContext(c), c.GetInt(middleware.UserIDKey))
		log.Error().Err(err).Str("route", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathID(c *gin.Context, name string) (int, bool) {
	id, err := parsePositive(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
