package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"doctext-backend/internal/shared/auth"
)

func newTestSessions(t *testing.T) *auth.Sessions {
	t.Helper()
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return auth.NewSessions(issuer, auth.NewMemoryRevoker())
}

func whoAmIRouter(sessions *auth.Sessions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(sessions))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"userId":   UserIDFromContext(c),
			"username": UsernameFromContext(c),
			"guest":    IsGuest(c),
		})
	})
	r.GET("/private", RequireUser(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func decodeWho(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(newTestSessions(t)))
	router.OPTIONS("/api/v1/upload", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodOptions, "/api/v1/upload", nil))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthGuestWithoutCredentials(t *testing.T) {
	r := whoAmIRouter(newTestSessions(t))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if body := decodeWho(t, resp); body["guest"] != true || body["userId"] != "" {
		t.Fatalf("expected guest, got %v", body)
	}
}

func TestAuthBearerToken(t *testing.T) {
	sessions := newTestSessions(t)
	token, _, err := sessions.Start("user-1", "alice")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	r := whoAmIRouter(sessions)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	body := decodeWho(t, resp)
	if body["userId"] != "user-1" || body["username"] != "alice" || body["guest"] != false {
		t.Fatalf("unexpected identity %v", body)
	}
}

func TestAuthRejectsInvalidBearer(t *testing.T) {
	r := whoAmIRouter(newTestSessions(t))
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer nope")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthIgnoresInvalidCookie(t *testing.T) {
	r := whoAmIRouter(newTestSessions(t))
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "stale"})
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if body := decodeWho(t, resp); body["guest"] != true {
		t.Fatalf("expected guest, got %v", body)
	}
}

func TestAuthCookieAndRevocation(t *testing.T) {
	sessions := newTestSessions(t)
	token, claims, err := sessions.Start("user-2", "bob")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	r := whoAmIRouter(sessions)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 with cookie, got %d", resp.Code)
	}

	if err := sessions.End(context.Background(), &claims); err != nil {
		t.Fatalf("End: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.Code)
	}
}
