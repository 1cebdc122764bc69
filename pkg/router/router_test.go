package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"article-api/backend/internal/models"
	"article-api/backend/pkg/config"
	"article-api/backend/pkg/di"
	"article-api/backend/pkg/jwt"
	"article-api/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	router    *Router
	container *di.Container
}

func newTestApp(t *testing.T, mutate func(*config.Config)) *testApp {
	t.Helper()

	cfg := config.FromEnv()
	cfg.Server.Env = "test"
	cfg.Vault.Enabled = false
	cfg.Redis.Enabled = false
	cfg.RateLimit.Backend = "memory"
	cfg.RateLimit.PoliciesFile = ""
	cfg.Observability.TracesStdout = false
	cfg.Observability.Metrics = true
	cfg.Features.OpenAPIValidation = false
	cfg.Features.EnableWebSockets = true
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	container, err := di.New(context.Background(), cfg, di.Options{DB: db, Logger: logger.Discard()})
	require.NoError(t, err)
	require.NoError(t, container.Migrate())
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	r := New(container)
	r.SetupRoutes()
	return &testApp{router: r, container: container}
}

func (a *testApp) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	return a.doFrom(t, "192.0.2.1:1234", method, path, body, token)
}

func (a *testApp) doFrom(t *testing.T, remoteAddr, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = remoteAddr
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.Engine.ServeHTTP(w, req)
	return w
}

func (a *testApp) createUser(t *testing.T, username string, role jwt.Role) string {
	t.Helper()
	user, err := a.container.UserService.CreateUser(context.Background(), &models.UserCreate{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret1",
		Role:     role,
	})
	require.NoError(t, err)

	token, err := a.container.JWTService.GenerateToken(user.ID, user.Username, user.Role)
	require.NoError(t, err)
	return token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func login(username string) map[string]string {
	return map[string]string{"username": username, "password": "secret1"}
}

func TestLoginIsRateLimitedPerClient(t *testing.T) {
	app := newTestApp(t, nil)
	app.createUser(t, "alice", jwt.RoleUser)

	for i := 1; i <= 5; i++ {
		w := app.do(t, http.MethodPost, "/api/v1/auth/login", login("alice"), "")
		require.Equal(t, http.StatusOK, w.Code, "attempt %d: %s", i, w.Body.String())
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(5-i), w.Header().Get("X-RateLimit-Remaining"))
	}

	w := app.do(t, http.MethodPost, "/api/v1/auth/login", login("alice"), "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.True(t, retry >= 1 && retry <= 60, "retry after %d", retry)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])
	assert.Equal(t, "Rate limit exceeded: 5 per 1 minute", body["message"])

	other := app.doFrom(t, "198.51.100.7:4321", http.MethodPost, "/api/v1/auth/login", login("alice"), "")
	assert.Equal(t, http.StatusOK, other.Code, "a different client has its own window")

	search := app.do(t, http.MethodGet, "/api/v1/stats/search?q=go", nil, "")
	assert.Equal(t, http.StatusOK, search.Code, "policies are independent")
}

func TestRegisterLimit(t *testing.T) {
	app := newTestApp(t, nil)

	for i := 0; i < 3; i++ {
		w := app.do(t, http.MethodPost, "/api/v1/auth/register", models.UserCreate{
			Username: "user" + strconv.Itoa(i),
			Email:    "user" + strconv.Itoa(i) + "@example.com",
			Password: "secret1",
		}, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := app.do(t, http.MethodPost, "/api/v1/auth/register", models.UserCreate{
		Username: "user9", Email: "user9@example.com", Password: "secret1",
	}, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimitingDisabled(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) { c.RateLimit.Enabled = false })
	app.createUser(t, "alice", jwt.RoleUser)

	for i := 0; i < 10; i++ {
		w := app.do(t, http.MethodPost, "/api/v1/auth/login", login("alice"), "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestGlobalLimitAppliesToEveryRoute(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) { c.RateLimit.MaxRequests = 2 })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/api/v1/others", nil, "").Code)
	}
	w := app.do(t, http.MethodGet, "/api/v1/others/health", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Rate limit exceeded: 2 per 1 minute", decode(t, w)["message"])
}

func TestUserKeyStrategySeparatesTokenHolders(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) { c.RateLimit.KeyStrategy = "user" })
	alice := app.createUser(t, "alice", jwt.RoleUser)
	bob := app.createUser(t, "bob", jwt.RoleUser)

	for i := 0; i < 10; i++ {
		w := app.do(t, http.MethodPost, "/api/v1/articles", models.ArticleCreate{Title: "t", Content: "c"}, alice)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	assert.Equal(t, http.StatusTooManyRequests,
		app.do(t, http.MethodPost, "/api/v1/articles", models.ArticleCreate{Title: "t", Content: "c"}, alice).Code)
	assert.Equal(t, http.StatusOK,
		app.do(t, http.MethodPost, "/api/v1/articles", models.ArticleCreate{Title: "t", Content: "c"}, bob).Code,
		"same address, different user")
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.do(t, http.MethodPost, "/api/v1/auth/register", models.UserCreate{
		Username: "carol", Email: "carol@example.com", Password: "secret1", Role: jwt.RoleAdmin,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["success"])

	dup := app.do(t, http.MethodPost, "/api/v1/auth/register", models.UserCreate{
		Username: "carol", Email: "other@example.com", Password: "secret1",
	}, "")
	assert.Equal(t, http.StatusBadRequest, dup.Code)
	assert.Equal(t, "USER_EXISTS", decode(t, dup)["code"])

	invalid := app.doFrom(t, "198.51.100.1:1", http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "x", "email": "not-an-email", "password": "1",
	}, "")
	assert.Equal(t, http.StatusBadRequest, invalid.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, invalid)["code"])

	bad := app.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "carol", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
	assert.Equal(t, "Bearer", bad.Header().Get("WWW-Authenticate"))

	ok := app.do(t, http.MethodPost, "/api/v1/auth/login", login("carol"), "")
	require.Equal(t, http.StatusOK, ok.Code)
	var tok models.Token
	require.NoError(t, json.Unmarshal(ok.Body.Bytes(), &tok))
	assert.Equal(t, "bearer", tok.TokenType)

	me := app.do(t, http.MethodGet, "/api/v1/auth/me", nil, tok.AccessToken)
	require.Equal(t, http.StatusOK, me.Code)
	body := decode(t, me)
	assert.Equal(t, "carol", body["username"])
	assert.Equal(t, "user", body["role"], "public registration cannot pick a role")

	anon := app.do(t, http.MethodGet, "/api/v1/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, anon.Code)
	assert.Equal(t, "AUTH_REQUIRED", decode(t, anon)["code"])

	garbage := app.do(t, http.MethodGet, "/api/v1/auth/me", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, garbage.Code)
	assert.Equal(t, "INVALID_TOKEN", decode(t, garbage)["code"])
}

func TestTokenEndpointAcceptsForm(t *testing.T) {
	app := newTestApp(t, nil)
	app.createUser(t, "dave", jwt.RoleUser)

	form := url.Values{"username": {"dave"}, "password": {"secret1"}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	app.router.Engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "bearer", decode(t, w)["token_type"])
}

func TestArticlesAndStats(t *testing.T) {
	app := newTestApp(t, nil)
	user := app.createUser(t, "erin", jwt.RoleUser)
	admin := app.createUser(t, "root", jwt.RoleAdmin)

	created := app.do(t, http.MethodPost, "/api/v1/articles", models.ArticleCreate{
		Title: "Hello", Content: "World", IsPublished: true, Tags: []string{"intro"},
	}, user)
	require.Equal(t, http.StatusOK, created.Code, created.Body.String())
	data := decode(t, created)["data"].(map[string]any)
	id := strconv.Itoa(int(data["article_id"].(float64)))

	assert.Equal(t, http.StatusUnauthorized,
		app.do(t, http.MethodPost, "/api/v1/articles", models.ArticleCreate{Title: "x", Content: "y"}, "").Code)

	got := app.do(t, http.MethodGet, "/api/v1/articles/"+id, nil, "")
	require.Equal(t, http.StatusOK, got.Code)
	article := decode(t, got)
	assert.Equal(t, "erin", article["author_name"])
	assert.EqualValues(t, 1, article["view_count"])

	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, "/api/v1/articles/999", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodGet, "/api/v1/articles/abc", nil, "").Code)

	list := app.do(t, http.MethodGet, "/api/v1/articles?page=1&page_size=5", nil, "")
	require.Equal(t, http.StatusOK, list.Code)
	page := decode(t, list)
	assert.EqualValues(t, 1, page["total"])
	assert.EqualValues(t, 5, page["page_size"])
	assert.EqualValues(t, 1, page["total_pages"])

	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodGet, "/api/v1/articles?page_size=500", nil, "").Code)

	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/api/v1/stats/overview", nil, user).Code)
	overview := app.do(t, http.MethodGet, "/api/v1/stats/overview", nil, admin)
	require.Equal(t, http.StatusOK, overview.Code)
	stats := decode(t, overview)["data"].(map[string]any)
	assert.EqualValues(t, 2, stats["user_stats"].(map[string]any)["total_users"])

	popular := app.do(t, http.MethodGet, "/api/v1/stats/popular?limit=5", nil, user)
	require.Equal(t, http.StatusOK, popular.Code)
	assert.Len(t, decode(t, popular)["data"], 1)
	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodGet, "/api/v1/stats/popular?limit=99", nil, user).Code)

	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodGet, "/api/v1/stats/search", nil, "").Code)

	export := app.do(t, http.MethodGet, "/api/v1/stats/export?format=csv", nil, admin)
	require.Equal(t, http.StatusOK, export.Code)
	assert.Equal(t, "attachment; filename=articles.csv", export.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(export.Body.String(), "id,title,content,summary,is_published,view_count,created_at,author_name\n"))

	batch := app.do(t, http.MethodPost, "/api/v1/stats/batch", []models.BatchOperation{
		{Type: models.BatchUnpublish, ArticleID: uint(data["article_id"].(float64))},
	}, admin)
	require.Equal(t, http.StatusOK, batch.Code, batch.Body.String())
	results := decode(t, batch)["data"].([]any)
	assert.Equal(t, "unpublished", results[0].(map[string]any)["status"])

	other := app.createUser(t, "frank", jwt.RoleUser)
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodDelete, "/api/v1/articles/"+id, nil, other).Code)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodDelete, "/api/v1/articles/"+id, nil, admin).Code)
}

func TestUserManagement(t *testing.T) {
	app := newTestApp(t, nil)
	user := app.createUser(t, "gina", jwt.RoleUser)
	admin := app.createUser(t, "root", jwt.RoleAdmin)

	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/api/v1/users", nil, user).Code)

	list := app.do(t, http.MethodGet, "/api/v1/users?search=gin", nil, admin)
	require.Equal(t, http.StatusOK, list.Code)
	page := decode(t, list)
	assert.EqualValues(t, 1, page["total"])

	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/api/v1/users/1", nil, user).Code)
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/api/v1/users/2", nil, user).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, "/api/v1/users/99", nil, admin).Code)

	empty := app.do(t, http.MethodPut, "/api/v1/users/1", map[string]any{}, user)
	assert.Equal(t, http.StatusBadRequest, empty.Code)

	banned := app.do(t, http.MethodPut, "/api/v1/users/1", map[string]any{"status": "banned"}, admin)
	require.Equal(t, http.StatusOK, banned.Code, banned.Body.String())

	inactive := app.do(t, http.MethodGet, "/api/v1/auth/me", nil, user)
	assert.Equal(t, http.StatusBadRequest, inactive.Code)
	assert.Equal(t, "USER_INACTIVE", decode(t, inactive)["code"])

	assert.Equal(t, http.StatusOK, app.do(t, http.MethodDelete, "/api/v1/users/1", nil, admin).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodDelete, "/api/v1/users/1", nil, admin).Code)
}

func TestOperationalEndpoints(t *testing.T) {
	app := newTestApp(t, nil)
	app.container.Health.RunChecks(context.Background())

	w := app.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	components := decode(t, w)["components"].(map[string]any)
	assert.Equal(t, "up", components["database"].(map[string]any)["status"])

	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/health/runtime", nil, "").Code)

	others := app.do(t, http.MethodGet, "/api/v1/others/health", nil, "")
	require.Equal(t, http.StatusOK, others.Code)
	assert.Equal(t, "healthy", decode(t, others)["status"])
	assert.NotEmpty(t, others.Header().Get("X-Process-Time"))
	assert.NotEmpty(t, others.Header().Get("X-Request-ID"))

	metrics := app.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), `ratelimit_decisions_total{decision="allowed",policy="global"}`)
	assert.Contains(t, metrics.Body.String(), `ratelimit_tracked_keys{policy="global"}`)
}
