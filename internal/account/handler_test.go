package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"doctext-backend/internal/activity"
	"doctext-backend/internal/tier"
	"doctext-backend/internal/users"
)

func newTestHandler(t *testing.T) (*gin.Engine, *users.Service, *activity.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	userSvc := users.NewService(users.NewMemoryRepo(), 30)
	activitySvc := activity.NewService(activity.NewMemoryRepo())
	policy := tier.NewPolicy(tier.Limits{FreeFileSizeMB: 5, FreeTextLimit: 5000})
	svc := NewService(userSvc, activitySvc, activitySvc, policy, 30)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Set("userId", id)
			c.Set("isGuest", false)
		}
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router, userSvc, activitySvc
}

func TestUpgradeGrantsPremiumAndCountsInStats(t *testing.T) {
	router, userSvc, activitySvc := newTestHandler(t)
	ctx := context.Background()
	user, err := userSvc.Register(ctx, users.RegisterInput{Username: "alice", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := userSvc.Register(ctx, users.RegisterInput{Username: "bob", Password: "secret1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	activitySvc.Record(ctx, user.ID, activity.ActionFreeFileUpload)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upgrade", nil)
	req.Header.Set("X-Test-User", user.ID)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var upgraded users.Response
	if err := json.Unmarshal(resp.Body.Bytes(), &upgraded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !upgraded.IsPremium || upgraded.PremiumExpiry == nil {
		t.Fatalf("expected premium user, got %+v", upgraded)
	}

	recent, _ := activitySvc.Recent(ctx, user.ID, 1)
	if len(recent) != 1 || recent[0].Action != activity.ActionUpgradeToPremium {
		t.Fatalf("expected upgrade activity, got %+v", recent)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var stats Stats
	if err := json.Unmarshal(resp.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Users != 2 || stats.Premium != 1 || stats.Conversions != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestUpgradeRequiresLogin(t *testing.T) {
	router, _, _ := newTestHandler(t)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/upgrade", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestPremiumOffer(t *testing.T) {
	router, _, _ := newTestHandler(t)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/premium", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var offer Offer
	if err := json.Unmarshal(resp.Body.Bytes(), &offer); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(offer.Plans) != 2 || offer.Plans[0].MaxFileMB == nil || *offer.Plans[0].MaxFileMB != 5 {
		t.Fatalf("unexpected plans %+v", offer.Plans)
	}
	if offer.Plans[1].MaxFileMB != nil {
		t.Fatal("premium plan must be unlimited")
	}
	if len(offer.Testimonials) != 3 || offer.PeriodDays != 30 {
		t.Fatalf("unexpected offer %+v", offer)
	}
}
