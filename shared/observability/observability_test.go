package observability

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
)

func TestTracingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	tp, shutdown, err := SetupTracing("test-service", true, &buf)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	mp, err := SetupMeterProvider("test-service", reg)
	require.NoError(t, err)

	r := gin.New()
	r.Use(Tracing(tp, mp, propagation.TraceContext{}))
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Header().Get("X-Trace-ID"), 32)

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "GET /items/:id")

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "http_server_active_requests")
	require.NoError(t, mp.Shutdown(context.Background()))
}
