package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	notFound := NewNotFoundError("USER_NOT_FOUND", "User not found")
	assert.Same(t, notFound, FromError(fmt.Errorf("lookup: %w", notFound)))

	opaque := FromError(stderrors.New("pq: relation does not exist"))
	assert.Equal(t, http.StatusInternalServerError, opaque.StatusCode)
	assert.Equal(t, "Internal server error", opaque.Message)
}

func TestErrorHandlerRendersEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/limited", func(c *gin.Context) {
		c.Error(NewTooManyRequestsError("RATE_LIMIT_EXCEEDED", "Rate limit exceeded: 5 per 1 minute").
			WithHeader("Retry-After", "42"))
	})
	r.GET("/auth", func(c *gin.Context) {
		c.Error(NewUnauthorizedError("AUTH_REQUIRED", "Not authenticated"))
	})
	r.GET("/boom", func(c *gin.Context) {
		c.Error(stderrors.New("database exploded"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "42", w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])
	assert.Equal(t, "Rate limit exceeded: 5 per 1 minute", body["message"])
	assert.NotContains(t, body, "details")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "exploded")
}

func TestRecoveryWithLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RecoveryWithLogger())
	r.GET("/panic", func(c *gin.Context) { panic("nope") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "SERVER_ERROR")
}
