package account

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"doctext-backend/internal/shared/server/middleware"
	"doctext-backend/internal/shared/server/respond"
	"doctext-backend/internal/shared/telemetry"
	"doctext-backend/internal/users"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/premium", h.premium)
	rg.POST("/upgrade", middleware.RequireUser(), h.upgrade)
	rg.GET("/stats", h.stats)
}

func (h *Handler) premium(c *gin.Context) {
	respond.OK(c, h.Svc.Offer())
}

func (h *Handler) upgrade(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	user, err := h.Svc.Upgrade(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upgrade", nil)
		return
	}
	telemetry.Info("user.upgraded", map[string]any{
		"user_id": userID,
		"expiry":  user.PremiumExpiry,
	})
	respond.OK(c, users.ToResponse(user))
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.Svc.Stats(c.Request.Context())
	if err != nil {
		telemetry.Error("stats.failed", map[string]any{"err": err})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load stats", nil)
		return
	}
	respond.OK(c, stats)
}
