package errors

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"article-api/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Body renders the JSON envelope used for every error response
func Body(appErr *AppError) gin.H {
	body := gin.H{
		"success": false,
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if appErr.Details != nil {
		body["details"] = appErr.Details
	}
	return body
}

// ErrorHandler returns a middleware that catches and formats application errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := FromError(c.Errors[0].Err)

		log := logger.FromContext(c)
		if appErr.StatusCode >= http.StatusInternalServerError {
			log.Error("Request error",
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"status_code", appErr.StatusCode,
				"error_code", appErr.Code,
				"cause", c.Errors[0].Err.Error(),
			)
		} else {
			log.Debug("Request rejected",
				"path", c.Request.URL.Path,
				"status_code", appErr.StatusCode,
				"error_code", appErr.Code,
			)
		}

		for k, v := range appErr.Headers {
			c.Header(k, v)
		}
		c.AbortWithStatusJSON(appErr.StatusCode, Body(appErr))
	}
}

// RecoveryWithLogger returns a middleware that recovers from any panics
// and logs the error with the request-scoped logger
func RecoveryWithLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())

				logger.FromContext(c).Error("Panic recovered",
					"error", r,
					"stack", stack,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				appErr := NewInternalServerError("SERVER_ERROR", "The server encountered an unexpected error")
				if gin.Mode() == gin.DebugMode {
					appErr.Details = fmt.Sprintf("Panic: %v", r)
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, Body(appErr))
			}
		}()

		c.Next()
	}
}
