package api

import (
	"context"
	stderrors "errors"
	"strconv"

	"article-api/backend/internal/models"
	"article-api/backend/internal/service"
	"article-api/backend/pkg/errors"
	"article-api/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// CurrentUserKey holds the *models.User resolved by RequireActiveUser
const CurrentUserKey = "currentUser"

// Notifier publishes domain events to subscribers
type Notifier interface {
	Publish(eventType string, data any)
}

// UserResolver loads the token holder
type UserResolver interface {
	CurrentUser(ctx context.Context, username string) (*models.User, error)
}

// RequireActiveUser loads the token subject and rejects unknown or inactive
// accounts. It must run after the JWT middleware. The role on the claims is
// refreshed from the database so role checks see demotions immediately.
func RequireActiveUser(users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := middleware.ClaimsFromContext(c)
		if !ok {
			c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Not authenticated"))
			c.Abort()
			return
		}

		user, err := users.CurrentUser(c.Request.Context(), claims.Username())
		switch {
		case err == nil:
		case stderrors.Is(err, service.ErrUserNotFound):
			c.Error(errors.NewUnauthorizedError("INVALID_TOKEN", "Could not validate credentials"))
			c.Abort()
			return
		case stderrors.Is(err, service.ErrUserInactive):
			c.Error(errors.NewBadRequestError("USER_INACTIVE", "Inactive user"))
			c.Abort()
			return
		default:
			c.Error(err)
			c.Abort()
			return
		}

		claims.Role = user.Role
		c.Set(middleware.UserRoleCtx, user.Role)
		c.Set(CurrentUserKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(CurrentUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

func actorFrom(c *gin.Context) service.Actor {
	if user, ok := currentUser(c); ok {
		return service.Actor{ID: user.ID, Role: user.Role}
	}
	if claims, ok := middleware.ClaimsFromContext(c); ok {
		return service.Actor{ID: claims.UserID, Role: claims.Role}
	}
	return service.Actor{}
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		c.Error(errors.NewBadRequestError("INVALID_ID", "Invalid "+param))
		return 0, false
	}
	return uint(id), true
}

func bindError(c *gin.Context, err error) {
	c.Error(errors.BadRequestWithDetails("VALIDATION_ERROR", "Invalid request", err.Error()))
}

// serviceError maps service sentinels to HTTP errors; anything else is a 500
func serviceError(c *gin.Context, err error) {
	switch {
	case stderrors.Is(err, service.ErrUserNotFound):
		c.Error(errors.NewNotFoundError("USER_NOT_FOUND", "User not found"))
	case stderrors.Is(err, service.ErrArticleNotFound):
		c.Error(errors.NewNotFoundError("ARTICLE_NOT_FOUND", "Article not found"))
	case stderrors.Is(err, service.ErrUserAlreadyExists):
		c.Error(errors.NewBadRequestError("USER_EXISTS", "Username or email already registered"))
	case stderrors.Is(err, service.ErrForbidden):
		c.Error(errors.NewForbiddenError("INSUFFICIENT_PERMISSIONS", "Not enough permissions"))
	case stderrors.Is(err, service.ErrNoFields):
		c.Error(errors.NewBadRequestError("NO_FIELDS", "No fields to update"))
	case stderrors.Is(err, service.ErrInvalidCredentials):
		c.Error(errors.NewUnauthorizedError("INVALID_CREDENTIALS", "Incorrect username or password"))
	default:
		c.Error(err)
	}
}
