package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// Health pings every backing service and reports 503 if any is down.
func (h *Handler) Health(c *gin.Context) {
	status := http.StatusOK
	services := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(c.Request.Context()); err != nil {
			h.log.Warnw("health check failed", "service", name, "error", err)
			services[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		services[name] = "up"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	c.JSON(status, gin.H{"status": overall, "services": services})
}
