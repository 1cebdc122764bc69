package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler serves the component report; 503 when a critical component is down
func (c *Checker) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		code := http.StatusOK
		if !c.IsSystemHealthy() {
			code = http.StatusServiceUnavailable
		}

		ctx.JSON(code, gin.H{
			"status":     c.Overall(),
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"components": c.GetStatus(),
		})
	}
}
