package api

import (
	"net/http"

	"article-api/backend/internal/models"
	"article-api/backend/internal/service"
	"article-api/backend/pkg/logger"
	"article-api/backend/pkg/ws"

	"github.com/gin-gonic/gin"
)

// ArticleHandler serves article CRUD
type ArticleHandler struct {
	service  *service.ArticleService
	notifier Notifier
}

// NewArticleHandler creates a new ArticleHandler; notifier may be nil
func NewArticleHandler(service *service.ArticleService, notifier Notifier) *ArticleHandler {
	return &ArticleHandler{service: service, notifier: notifier}
}

// List returns one page of articles
func (h *ArticleHandler) List(c *gin.Context) {
	var q models.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	articles, total, err := h.service.ListArticles(c.Request.Context(), q)
	if err != nil {
		c.Error(err)
		return
	}

	items := make([]models.ArticleResponse, 0, len(articles))
	for i := range articles {
		items = append(items, articles[i].ToResponse())
	}
	c.JSON(http.StatusOK, models.NewPage(items, total, q.Page, q.PageSize))
}

// Get returns one article and counts the view
func (h *ArticleHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	article, err := h.service.GetArticle(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, article.ToResponse())
}

// Create stores an article written by the caller
func (h *ArticleHandler) Create(c *gin.Context) {
	var req models.ArticleCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	actor := actorFrom(c)
	article, err := h.service.CreateArticle(c.Request.Context(), actor.ID, &req)
	if err != nil {
		c.Error(err)
		return
	}

	logger.FromContext(c).Info("article created", "article_id", article.ID, "published", article.IsPublished)
	h.publish(ws.EventArticleCreated, article)
	if article.IsPublished {
		h.publish(ws.EventArticlePublished, article)
	}
	c.JSON(http.StatusOK, models.OK("Article created", gin.H{"article_id": article.ID}))
}

// Update changes an article; only its author or an admin may do so
func (h *ArticleHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req models.ArticleUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	article, err := h.service.UpdateArticle(c.Request.Context(), actorFrom(c), id, &req)
	if err != nil {
		serviceError(c, err)
		return
	}

	if req.IsPublished != nil && *req.IsPublished {
		h.publish(ws.EventArticlePublished, article)
	}
	c.JSON(http.StatusOK, models.OK("Article updated", gin.H{"article_id": article.ID}))
}

// Delete removes an article; only its author or an admin may do so
func (h *ArticleHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteArticle(c.Request.Context(), actorFrom(c), id); err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.OK("Article deleted", nil))
}

func (h *ArticleHandler) publish(eventType string, article *models.Article) {
	if h.notifier == nil {
		return
	}
	resp := article.ToResponse()
	h.notifier.Publish(eventType, gin.H{
		"article_id":  resp.ID,
		"title":       resp.Title,
		"author_name": resp.AuthorName,
	})
}
