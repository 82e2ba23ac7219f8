package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"skillswap-service/internal/middleware"
	"skillswap-service/internal/telemetry"
)

// requestIDFromContext returns the id set by middleware.RequestID, minting one
// for routes mounted without it.
func requestIDFromContext(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	id := uuid.NewString()
	c.Set(middleware.RequestIDKey, id)
	return id
}

// recordAudit attributes a to the authenticated caller.
func recordAudit(c *gin.Context, emitter *telemetry.AuditEmitter, a telemetry.Action) {
	if emitter == nil {
		return
	}
	emitter.Emit(c.Request.Context(), a, requestIDFromContext(c), c.GetInt(middleware.UserIDKey))
}
