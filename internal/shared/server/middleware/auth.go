package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"doctext-backend/internal/shared/auth"
	"doctext-backend/internal/shared/server/respond"
)

const (
	userIDKey   = "userId"
	usernameKey = "username"
	isGuestKey  = "isGuest"
	sessionKey  = "session"

	// SessionCookie carries the session token for browser clients.
	SessionCookie = "session"
)

// Auth resolves the caller from a Bearer token or the session cookie.
// Requests without credentials continue as guests. An invalid Bearer token
// is rejected; an invalid cookie is ignored.
func Auth(sessions *auth.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		c.Set(isGuestKey, true)

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			claims, err := sessions.Validate(c.Request.Context(), token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			setIdentity(c, claims)
			c.Next()
			return
		}

		if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
			if claims, err := sessions.Validate(c.Request.Context(), token); err == nil {
				setIdentity(c, claims)
			}
		}
		c.Next()
	}
}

// RequireUser rejects guests with 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserIDFromContext(c) == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "login required", nil)
			return
		}
		c.Next()
	}
}

func setIdentity(c *gin.Context, claims *auth.Claims) {
	c.Set(userIDKey, claims.UserID)
	c.Set(usernameKey, claims.Username)
	c.Set(sessionKey, claims)
	c.Set(isGuestKey, false)
}

// SetSessionCookie stores token in an HttpOnly cookie.
func SetSessionCookie(c *gin.Context, token string, ttl time.Duration, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(ttl/time.Second), "/", "", secure, true)
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", secure, true)
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}

// UsernameFromContext fetches the username set by the auth middleware.
func UsernameFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(usernameKey)
}

// SessionFromContext returns the validated session claims, if any.
func SessionFromContext(c *gin.Context) *auth.Claims {
	if c == nil {
		return nil
	}
	val, _ := c.Get(sessionKey)
	claims, _ := val.(*auth.Claims)
	return claims
}

// IsGuest reports whether the request has no signed-in user.
func IsGuest(c *gin.Context) bool {
	return UserIDFromContext(c) == ""
}
