package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"doctext-backend/internal/account"
	"doctext-backend/internal/activity"
	googleauth "doctext-backend/internal/auth"
	"doctext-backend/internal/extract"
	"doctext-backend/internal/services/health"
	"doctext-backend/internal/shared/auth"
	"doctext-backend/internal/shared/config"
	"doctext-backend/internal/shared/server"
	"doctext-backend/internal/shared/server/middleware"
	"doctext-backend/internal/shared/storage/db"
	"doctext-backend/internal/shared/storage/object"
	localstore "doctext-backend/internal/shared/storage/object/local"
	s3store "doctext-backend/internal/shared/storage/object/s3"
	"doctext-backend/internal/shared/telemetry"
	"doctext-backend/internal/tier"
	"doctext-backend/internal/uploads"
	"doctext-backend/internal/users"
)

// App holds shared dependencies and the HTTP router.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Redis  *redis.Client
	Store  object.ObjectStore

	UsersRepo    users.Repo
	ActivityRepo activity.Repo

	Sessions        *auth.Sessions
	UsersService    *users.Service
	ActivityService *activity.Service
	UploadsService  *uploads.Service
	AccountService  *account.Service

	UsersHandler   *users.Handler
	UploadsHandler *uploads.Handler
	AccountHandler *account.Handler
	GoogleAuth     *googleauth.GoogleService
}

// Build wires every service from cfg. In dev-like environments a missing or
// unreachable database falls back to in-memory repositories.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := buildRedis(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Redis:  redisClient,
		Store:  store,
	}
	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:         cfg,
		Sessions:       app.Sessions,
		Health:         buildHealth(app),
		UserHandler:    app.UsersHandler,
		UploadHandler:  app.UploadsHandler,
		AccountHandler: app.AccountHandler,
		GoogleAuth:     app.GoogleAuth,
		RateLimiter:    middleware.NewRateLimiter(nil),
	})
	return app, nil
}

// Close releases the database and Redis connections.
func (a *App) Close() {
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_store", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
		if err != nil {
			_ = sqlDB.Close()
		}
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_store", map[string]any{"reason": "database unavailable", "err": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.UploadDir), nil
	}
}

func buildRedis(cfg config.Config) (*redis.Client, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func buildOCR(cfg config.Config) extract.Engine {
	if cfg.OCREngine == "gosseract" {
		return extract.NewGosseractEngine(cfg.OCRLanguages, cfg.TessdataPrefix)
	}
	return extract.NewCLIEngine(cfg.TesseractCmd, cfg.OCRLanguages, cfg.TessdataPrefix)
}

func buildServices(app *App) error {
	cfg := app.Config

	if app.DB != nil {
		app.UsersRepo = &users.PGRepo{DB: app.DB}
		app.ActivityRepo = &activity.PGRepo{DB: app.DB}
	} else {
		app.UsersRepo = users.NewMemoryRepo()
		app.ActivityRepo = activity.NewMemoryRepo()
	}

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("session issuer: %w", err)
	}
	var revoker auth.Revoker = auth.NewMemoryRevoker()
	if app.Redis != nil {
		revoker = auth.NewRedisRevoker(app.Redis)
	}
	app.Sessions = auth.NewSessions(issuer, revoker)

	policy := tier.NewPolicy(tier.Limits{
		FreeFileSizeMB: cfg.FreeFileSizeLimitMB,
		FreeTextLimit:  cfg.FreeTextLimit,
	})

	app.UsersService = users.NewService(app.UsersRepo, cfg.PremiumPeriodDays)
	app.ActivityService = activity.NewService(app.ActivityRepo)
	app.UploadsService = uploads.NewService(
		app.Store,
		extract.New(buildOCR(cfg)),
		policy,
		app.UsersService,
		app.ActivityService,
		cfg.AllowedExtensions,
	)
	app.AccountService = account.NewService(app.UsersService, app.ActivityService, app.ActivityService, policy, cfg.PremiumPeriodDays)

	secureCookie := !cfg.IsDevLike()
	app.UsersHandler = users.NewHandler(app.UsersService, app.Sessions, app.ActivityService, secureCookie)
	app.UploadsHandler = uploads.NewHandler(app.UploadsService, cfg.MaxUploadMB)
	app.AccountHandler = account.NewHandler(app.AccountService)
	app.GoogleAuth = googleauth.NewGoogleService(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		cfg.UIRedirectURL,
		app.UsersService,
		app.UsersHandler,
		app.ActivityService,
	)
	return nil
}

func buildHealth(app *App) *health.Service {
	checks := map[string]health.Checker{}
	if app.DB != nil {
		checks["database"] = health.CheckFunc(app.DB.PingContext)
	}
	if app.Redis != nil {
		checks["redis"] = health.CheckFunc(func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		})
	}
	return health.NewService(checks)
}
