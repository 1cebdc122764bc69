package middleware

import (
	"strings"

	"article-api/backend/pkg/errors"
	"article-api/backend/pkg/jwt"
	"article-api/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Gin context keys set by the auth middleware
const (
	ClaimsKey   = "claims"
	UserIDCtx   = "userID"
	UserRoleCtx = "userRole"
)

// TokenValidator verifies access tokens
type TokenValidator interface {
	ValidateToken(token string) (*jwt.JWTClaims, error)
}

// bearerToken returns the token from "Authorization: Bearer <token>"
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func setClaims(c *gin.Context, claims *jwt.JWTClaims) {
	c.Set(ClaimsKey, claims)
	c.Set(UserIDCtx, claims.UserID)
	c.Set(UserRoleCtx, claims.Role)
}

// JWTAuthMiddleware checks that the request has a valid JWT and adds claims to the context
func JWTAuthMiddleware(tokens TokenValidator, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := ClaimsFromContext(c); ok {
			c.Next()
			return
		}

		token := bearerToken(c)
		if token == "" {
			c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Not authenticated"))
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			log.Debug("invalid access token", "error", err.Error())
			c.Error(errors.NewUnauthorizedError("INVALID_TOKEN", "Could not validate credentials"))
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// IdentifyCaller attaches claims when a valid bearer token is present and
// never rejects, so per-user rate limiting can run before authentication.
func IdentifyCaller(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if claims, err := tokens.ValidateToken(token); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

// RequireRole returns a middleware that requires the user to have a specific role
func RequireRole(role jwt.Role) gin.HandlerFunc {
	return RequireAnyRole(role)
}

// RequireAnyRole requires at least one of roles; admins always pass
func RequireAnyRole(roles ...jwt.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Not authenticated"))
			c.Abort()
			return
		}

		for _, role := range roles {
			if claims.HasRole(role) {
				c.Next()
				return
			}
		}

		c.Error(errors.NewForbiddenError("INSUFFICIENT_PERMISSIONS", "Not enough permissions"))
		c.Abort()
	}
}
