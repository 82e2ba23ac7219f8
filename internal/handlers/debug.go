package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skillswap-service/internal/telemetry"
)

type relayStats interface {
	Stats() (rooms, clients int)
}

// RegisterDebugRoutes wires debug-only endpoints. Nothing is mounted unless enabled.
func RegisterDebugRoutes(router gin.IRouter, emitter *telemetry.AuditEmitter, relay relayStats, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		recordAudit(c, emitter, telemetry.Action{Name: telemetry.ActionAuditProbe, Detail: "audit test"})
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/debug/relay", func(c *gin.Context) {
		if relay == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "relay not configured"})
			return
		}
		rooms, clients := relay.Stats()
		c.JSON(http.StatusOK, gin.H{"rooms": rooms, "connections": clients})
	})
}
