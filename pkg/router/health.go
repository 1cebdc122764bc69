package router

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// Track server start time for uptime calculations
var startTime = time.Now()

// setupHealthRoutes registers the component health endpoints
func (r *Router) setupHealthRoutes() {
	checker := r.Container.Health

	r.Engine.GET("/health", checker.Handler())

	r.Engine.GET("/health/runtime", func(c *gin.Context) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		c.JSON(http.StatusOK, gin.H{
			"status":     checker.Overall(),
			"uptime":     time.Since(startTime).Round(time.Second).String(),
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"ws_clients": r.Container.Hub.Clients(),
			"memory": gin.H{
				"alloc_mb":  memStats.Alloc / 1024 / 1024,
				"sys_mb":    memStats.Sys / 1024 / 1024,
				"gc_cycles": memStats.NumGC,
			},
		})
	})
}
