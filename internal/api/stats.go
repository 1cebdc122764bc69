package api

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"article-api/backend/internal/models"
	"article-api/backend/internal/service"
	"article-api/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

const (
	defaultPopularLimit = 10
	maxPopularLimit     = 50
	maxBatchOperations  = 100
)

// StatsHandler serves dashboard, search, batch and export endpoints
type StatsHandler struct {
	service *service.StatsService
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(service *service.StatsService) *StatsHandler {
	return &StatsHandler{service: service}
}

// Overview returns user and article totals (admin)
func (h *StatsHandler) Overview(c *gin.Context) {
	out, err := h.service.Overview(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, models.OK("Statistics retrieved", out))
}

// Popular returns the most viewed published articles
func (h *StatsHandler) Popular(c *gin.Context) {
	limit := defaultPopularLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPopularLimit {
			c.Error(errors.NewBadRequestError("VALIDATION_ERROR", "limit must be between 1 and 50"))
			return
		}
		limit = n
	}

	out, err := h.service.Popular(c.Request.Context(), limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, models.OK("Popular articles retrieved", out))
}

// Search looks up published articles and active users
func (h *StatsHandler) Search(c *gin.Context) {
	var q models.SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	out, err := h.service.Search(c.Request.Context(), q)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, models.OK("Search completed", out))
}

// Batch applies publish, unpublish or delete to several articles (admin)
func (h *StatsHandler) Batch(c *gin.Context) {
	var ops []models.BatchOperation
	if err := c.ShouldBindJSON(&ops); err != nil {
		bindError(c, err)
		return
	}
	if len(ops) > maxBatchOperations {
		c.Error(errors.NewBadRequestError("VALIDATION_ERROR", "too many operations"))
		return
	}

	results := h.service.Batch(c.Request.Context(), ops)
	c.JSON(http.StatusOK, models.OK("Batch completed", results))
}

var exportHeader = []string{"id", "title", "content", "summary", "is_published", "view_count", "created_at", "author_name"}

// Export dumps every article as JSON or as a CSV attachment (admin)
func (h *StatsHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "csv" {
		c.Error(errors.NewBadRequestError("VALIDATION_ERROR", "format must be json or csv"))
		return
	}

	rows, err := h.service.Export(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	if format == "json" {
		c.JSON(http.StatusOK, rows)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=articles.csv")
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write(exportHeader)
	for _, r := range rows {
		_ = w.Write([]string{
			strconv.FormatUint(uint64(r.ID), 10),
			r.Title,
			r.Content,
			r.Summary,
			strconv.FormatBool(r.IsPublished),
			strconv.FormatInt(r.ViewCount, 10),
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.AuthorName,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		c.Error(err)
	}
}
