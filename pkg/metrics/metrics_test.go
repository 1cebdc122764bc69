package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveDecision(t *testing.T) {
	m := New()

	m.ObserveDecision("auth_login", true)
	m.ObserveDecision("auth_login", true)
	m.ObserveDecision("auth_login", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues("auth_login", "allowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("auth_login", "rejected")))
}

func TestTrackKeys(t *testing.T) {
	m := New()
	counts := map[string]int{"a": 3, "b": 0}
	require.NoError(t, m.TrackKeys([]string{"a", "b"}, func(p string) int { return counts[p] }))

	expected := `
# HELP ratelimit_tracked_keys Caller keys currently held in memory by each policy.
# TYPE ratelimit_tracked_keys gauge
ratelimit_tracked_keys{policy="a"} 3
ratelimit_tracked_keys{policy="b"} 0
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "ratelimit_tracked_keys"))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/articles/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/articles/1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/articles/2", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/articles/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",route="/articles/:id",status="200"} 2`)
	assert.Contains(t, w.Body.String(), "http_request_duration_seconds_bucket")
}
