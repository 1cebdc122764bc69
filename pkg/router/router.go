package router

import (
	"article-api/backend/internal/api"
	"article-api/backend/internal/ws"
	"article-api/backend/pkg/config"
	"article-api/backend/pkg/di"
	"article-api/backend/pkg/errors"
	"article-api/backend/pkg/jwt"
	"article-api/backend/pkg/logger"
	"article-api/backend/pkg/middleware"
	"article-api/backend/shared/observability"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates the engine and installs the middleware shared by every route
func New(container *di.Container) *Router {
	cfg := container.Config

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		container.Logger.Warn("invalid trusted proxies, trusting none", "error", err.Error())
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(middleware.CORS(cfg.Security.AllowedOrigins))
	engine.Use(middleware.ProcessTime())
	engine.Use(middleware.BodyLimit(cfg.Security.MaxBodySize))
	if cfg.Observability.Metrics {
		engine.Use(container.Metrics.Middleware())
	}
	engine.Use(observability.Tracing(container.TracerProvider, container.MeterProvider, otel.GetTextMapPropagator()))

	// Caller identity is resolved before limits so the user key strategy works
	engine.Use(middleware.IdentifyCaller(container.JWTService))
	engine.Use(container.RateLimiter.Limit(config.PolicyGlobal))

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	if r.Config.Features.OpenAPIValidation {
		r.AddOpenAPIValidation(r.Config.Features.OpenAPISpecPath)
	}

	c := r.Container
	limit := c.RateLimiter.Limit
	jwtAuth := middleware.JWTAuthMiddleware(c.JWTService, r.Logger)
	activeUser := api.RequireActiveUser(c.UserService)
	authenticated := []gin.HandlerFunc{jwtAuth, activeUser}
	adminOnly := []gin.HandlerFunc{jwtAuth, activeUser, middleware.RequireRole(jwt.RoleAdmin)}

	authHandler := api.NewAuthHandler(c.UserService, r.Logger)
	userHandler := api.NewUserHandler(c.UserService)
	articleHandler := api.NewArticleHandler(c.ArticleService, c.Hub)
	statsHandler := api.NewStatsHandler(c.StatsService)
	othersHandler := api.NewOthersHandler(r.Config.Server.ProjectName)

	// OAuth2 password flow
	r.Engine.POST("/token", authHandler.Token)

	v1 := r.Engine.Group(r.Config.Server.APIPrefix)

	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/login", limit(config.PolicyAuthLogin), authHandler.Login)
		authRoutes.POST("/register", limit(config.PolicyAuthRegister), authHandler.Register)
		authRoutes.GET("/me", with(authenticated, authHandler.Me)...)
	}

	userRoutes := v1.Group("/users")
	{
		userRoutes.GET("", with(append([]gin.HandlerFunc{limit(config.PolicyUsersList)}, adminOnly...), userHandler.List)...)
		userRoutes.GET("/:id", with(authenticated, userHandler.Get)...)
		userRoutes.PUT("/:id", with(authenticated, userHandler.Update)...)
		userRoutes.DELETE("/:id", with(adminOnly, userHandler.Delete)...)
	}

	articleRoutes := v1.Group("/articles")
	{
		articleRoutes.GET("", limit(config.PolicyArticlesList), articleHandler.List)
		articleRoutes.GET("/:id", limit(config.PolicyArticlesGet), articleHandler.Get)
		articleRoutes.POST("", with(append([]gin.HandlerFunc{limit(config.PolicyArticlesCreate)}, authenticated...), articleHandler.Create)...)
		articleRoutes.PUT("/:id", with(authenticated, articleHandler.Update)...)
		articleRoutes.DELETE("/:id", with(authenticated, articleHandler.Delete)...)
	}

	statsRoutes := v1.Group("/stats")
	{
		statsRoutes.GET("/overview", with(adminOnly, statsHandler.Overview)...)
		statsRoutes.GET("/popular", with(authenticated, statsHandler.Popular)...)
		statsRoutes.GET("/search", limit(config.PolicyStatsSearch), statsHandler.Search)
		statsRoutes.POST("/batch", with(adminOnly, statsHandler.Batch)...)
		statsRoutes.GET("/export", with(adminOnly, statsHandler.Export)...)
	}

	othersRoutes := v1.Group("/others")
	{
		othersRoutes.GET("", othersHandler.Root)
		othersRoutes.GET("/health", othersHandler.Health)
	}

	r.setupHealthRoutes()

	if r.Config.Observability.Metrics {
		r.Engine.GET("/metrics", gin.WrapH(c.Metrics.Handler()))
	}

	if r.Config.Features.EnableWebSockets {
		r.Engine.GET("/ws/notifications", func(ctx *gin.Context) {
			ws.ServeWs(c.Hub, ctx)
		})
	}
}

// with appends the final handler to a copy of a middleware chain
func with(chain []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(chain)+1)
	out = append(out, chain...)
	return append(out, h)
}
