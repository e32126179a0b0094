package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"doctext-backend/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"user_id":     UserIDFromContext(c),
			"is_guest":    IsGuest(c),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if fileName := c.GetString("fileName"); fileName != "" {
			fields["file_name"] = fileName
		}
		if tierName := c.GetString("tier"); tierName != "" {
			fields["tier"] = tierName
		}
		telemetry.Info("request.complete", fields)
	}
}
