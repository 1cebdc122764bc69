package api

import (
	"net/http"

	"article-api/backend/internal/models"
	"article-api/backend/internal/service"
	"article-api/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// UserHandler serves user management endpoints
type UserHandler struct {
	service *service.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service *service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// List returns one page of users (admin)
func (h *UserHandler) List(c *gin.Context) {
	var q models.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	users, total, err := h.service.ListUsers(c.Request.Context(), q)
	if err != nil {
		c.Error(err)
		return
	}

	items := make([]models.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, users[i].ToResponse())
	}
	c.JSON(http.StatusOK, models.NewPage(items, total, q.Page, q.PageSize))
}

// Get returns one user; callers may only read themselves unless admin
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if !service.CanAccess(actorFrom(c), id) {
		c.Error(errors.NewForbiddenError("INSUFFICIENT_PERMISSIONS", "Not allowed to view this user"))
		return
	}

	user, err := h.service.GetUserByID(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.ToResponse())
}

// Update changes profile fields
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req models.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.service.UpdateUser(c.Request.Context(), actorFrom(c), id, &req)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.OK("User updated", gin.H{"user_id": user.ID}))
}

// Delete removes a user (admin)
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteUser(c.Request.Context(), id); err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.OK("User deleted", nil))
}
