package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"doctext-backend/internal/extract"
)

// Config holds application configuration.
type Config struct {
	Port            string   `env:"PORT" envDefault:"8080"`
	Env             string   `env:"ENV" envDefault:"dev"`
	DatabaseURL     string   `env:"DATABASE_URL"`
	CORSAllowOrigin []string `env:"CORS_ALLOW_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`

	// Transient upload storage.
	ObjectStoreType string `env:"OBJECT_STORE" envDefault:"local"`
	UploadDir       string `env:"UPLOAD_FOLDER" envDefault:"./uploads"`
	AWSRegion       string `env:"AWS_REGION"`
	S3Bucket        string `env:"S3_BUCKET"`
	S3Prefix        string `env:"S3_PREFIX" envDefault:"transient/"`
	SSEKMSKeyID     string `env:"SSE_KMS_KEY_ID"`

	// Extraction and tiers.
	AllowedExtensions   []string `env:"ALLOWED_EXTENSIONS" envDefault:"pdf,png,jpg,jpeg" envSeparator:","`
	FreeFileSizeLimitMB float64  `env:"FREE_FILE_SIZE_LIMIT" envDefault:"5"`
	FreeTextLimit       int      `env:"FREE_TEXT_LIMIT" envDefault:"5000"`
	MaxUploadMB         int64    `env:"MAX_UPLOAD_MB" envDefault:"50"`
	OCREngine           string   `env:"OCR_ENGINE" envDefault:"cli"`
	TesseractCmd        string   `env:"TESSERACT_CMD" envDefault:"/usr/bin/tesseract"`
	TessdataPrefix      string   `env:"TESSDATA_PREFIX"`
	OCRLanguages        []string `env:"OCR_LANGUAGES" envDefault:"rus,eng" envSeparator:","`

	// Accounts.
	JWTSecret         string        `env:"JWT_SECRET"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	PremiumPeriodDays int           `env:"PREMIUM_PERIOD_DAYS" envDefault:"30"`
	RedisURL          string        `env:"REDIS_URL"`

	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogPath       string `env:"LOG_PATH"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"10"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"1"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"7"`
	LogCompress   bool   `env:"LOG_COMPRESS" envDefault:"false"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
	UIRedirectURL      string `env:"UI_REDIRECT_URL"`
}

const devJWTSecret = "dev-secret"

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsDevLike reports whether in-memory fallbacks are acceptable.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}

// AllowedExtensionSet returns the allowed extensions, lowercased and without dots.
func (c Config) AllowedExtensionSet() map[string]struct{} {
	out := make(map[string]struct{}, len(c.AllowedExtensions))
	for _, ext := range c.AllowedExtensions {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext != "" {
			out[ext] = struct{}{}
		}
	}
	return out
}

func (c *Config) normalize() {
	c.Env = normalizeEnv(c.Env)
	c.ObjectStoreType = normalizeStoreType(c.ObjectStoreType)
	c.OCREngine = strings.ToLower(strings.TrimSpace(c.OCREngine))
	c.CORSAllowOrigin = trimAll(c.CORSAllowOrigin)
	c.OCRLanguages = trimAll(c.OCRLanguages)
	if strings.TrimSpace(c.JWTSecret) == "" && c.IsDevLike() {
		c.JWTSecret = devJWTSecret
	}
}

func (c Config) validate() error {
	if c.Env == "production" && strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required in production")
	}
	if !c.IsDevLike() && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required in %s", c.Env)
	}
	if c.FreeFileSizeLimitMB <= 0 {
		return errors.New("FREE_FILE_SIZE_LIMIT must be positive")
	}
	if c.FreeTextLimit <= 0 {
		return errors.New("FREE_TEXT_LIMIT must be positive")
	}
	if len(c.AllowedExtensionSet()) == 0 {
		return errors.New("ALLOWED_EXTENSIONS must not be empty")
	}
	for ext := range c.AllowedExtensionSet() {
		if _, err := extract.KindFor("file." + ext); err != nil {
			return fmt.Errorf("ALLOWED_EXTENSIONS: %q has no extraction path", ext)
		}
	}
	switch c.OCREngine {
	case "cli", "gosseract":
	default:
		return fmt.Errorf("OCR_ENGINE %q is not supported", c.OCREngine)
	}
	return nil
}

func trimAll(in []string) []string {
	var out []string
	for _, p := range in {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
