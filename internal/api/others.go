package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// OthersHandler serves the liveness endpoints under /others
type OthersHandler struct {
	name string
	now  func() time.Time
}

// NewOthersHandler creates a new OthersHandler
func NewOthersHandler(projectName string) *OthersHandler {
	return &OthersHandler{name: projectName, now: time.Now}
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Root reports that the service is running
func (h *OthersHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": h.name + " service is running"})
}

// Health is a dependency-free liveness probe
func (h *OthersHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: h.now().UTC(),
	})
}
