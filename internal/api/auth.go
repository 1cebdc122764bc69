package api

import (
	"net/http"

	"article-api/backend/internal/models"
	"article-api/backend/internal/service"
	"article-api/backend/pkg/errors"
	"article-api/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles registration, login and the current-user endpoint
type AuthHandler struct {
	service *service.UserService
	logger  *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service *service.UserService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

// Register handles public user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.UserCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		serviceError(c, err)
		return
	}

	h.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	c.JSON(http.StatusOK, models.OK("Registration successful", gin.H{
		"user_id":  user.ID,
		"username": user.Username,
	}))
}

// Login authenticates a JSON {username, password} body
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.UserLogin
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	h.login(c, &req)
}

// Token is the OAuth2 password-flow endpoint; it reads a form body
func (h *AuthHandler) Token(c *gin.Context) {
	var req models.UserLogin
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}
	h.login(c, &req)
}

func (h *AuthHandler) login(c *gin.Context, req *models.UserLogin) {
	user, token, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		h.logger.Debug("login failed", "username", req.Username)
		serviceError(c, err)
		return
	}

	h.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)
	c.JSON(http.StatusOK, models.NewBearerToken(token))
}

// Me returns the current authenticated user
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Not authenticated"))
		return
	}
	c.JSON(http.StatusOK, user.ToResponse())
}
