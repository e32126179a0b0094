package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"doctext-backend/internal/account"
	googleauth "doctext-backend/internal/auth"
	"doctext-backend/internal/services/health"
	"doctext-backend/internal/shared/auth"
	"doctext-backend/internal/shared/config"
	"doctext-backend/internal/shared/metrics"
	"doctext-backend/internal/shared/server/middleware"
	"doctext-backend/internal/shared/server/respond"
	"doctext-backend/internal/uploads"
	"doctext-backend/internal/users"
)

const (
	groupDefault = "DEFAULT"
	groupUpload  = "UPLOAD"
	groupAuth    = "AUTH"
)

type RouterDeps struct {
	Config         config.Config
	Sessions       *auth.Sessions
	Health         *health.Service
	UserHandler    *users.Handler
	UploadHandler  *uploads.Handler
	AccountHandler *account.Handler
	GoogleAuth     *googleauth.GoogleService
	RateLimiter    *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if !deps.Config.IsDevLike() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.Use(
		middleware.Auth(deps.Sessions),
		middleware.RateLimit(rateLimitConfig(deps.Config.RateLimitPerMinute, deps.RateLimiter)),
	)
	api.GET("/health", func(c *gin.Context) {
		report := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})

	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api)
	}
	if deps.UploadHandler != nil {
		deps.UploadHandler.RegisterRoutes(api)
	}
	if deps.AccountHandler != nil {
		deps.AccountHandler.RegisterRoutes(api)
	}
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	return r
}

// rateLimitConfig gives uploads a fifth of the default budget and login
// attempts a third.
func rateLimitConfig(perMinute int, limiter *middleware.RateLimiter) middleware.RateLimitConfig {
	if perMinute <= 0 {
		perMinute = 60
	}
	return middleware.RateLimitConfig{
		DefaultGroup: groupDefault,
		Limiter:      limiter,
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method != http.MethodPost {
				return groupDefault
			}
			switch c.FullPath() {
			case "/api/v1/upload":
				return groupUpload
			case "/api/v1/auth/login", "/api/v1/auth/register":
				return groupAuth
			}
			return groupDefault
		},
		Rules: map[string]middleware.RateLimitRule{
			groupDefault: middleware.PerMinute(perMinute),
			groupUpload:  middleware.PerMinute(max(1, perMinute/5)),
			groupAuth:    middleware.PerMinute(max(1, perMinute/3)),
		},
	}
}
