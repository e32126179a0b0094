package users

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"doctext-backend/internal/activity"
	"doctext-backend/internal/shared/auth"
	"doctext-backend/internal/shared/server/middleware"
	"doctext-backend/internal/shared/server/respond"
	"doctext-backend/internal/shared/telemetry"
)

// ActivityLog appends to and reads back the activity log.
type ActivityLog interface {
	Record(ctx context.Context, userID, action string)
	Recent(ctx context.Context, userID string, limit int) ([]activity.Entry, error)
}

// recentActivityLimit caps the entries returned by GET /me.
const recentActivityLimit = 10

type Handler struct {
	Svc          *Service
	Sessions     *auth.Sessions
	Activity     ActivityLog
	SecureCookie bool
}

func NewHandler(svc *Service, sessions *auth.Sessions, log ActivityLog, secureCookie bool) *Handler {
	return &Handler{Svc: svc, Sessions: sessions, Activity: log, SecureCookie: secureCookie}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/register", h.register)
	rg.POST("/auth/login", h.login)
	rg.POST("/auth/logout", middleware.RequireUser(), h.logout)
	rg.GET("/me", middleware.RequireUser(), h.me)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) register(c *gin.Context) {
	var req RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Validation(c, "invalid request body", nil)
		return
	}
	user, err := h.Svc.Register(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Validation(c, strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "), nil)
		case errors.Is(err, ErrConflict):
			respond.Error(c, http.StatusConflict, "conflict", "username or email already registered", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to register", nil)
		}
		return
	}
	telemetry.Info("user.registered", map[string]any{"user_id": user.ID})
	respond.JSON(c, http.StatusCreated, ToResponse(user))
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Username) == "" || req.Password == "" {
		respond.Validation(c, "username and password are required", nil)
		return
	}
	user, err := h.Svc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "invalid username or password", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to log in", nil)
		return
	}
	token, err := h.StartSession(c, user)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start session", nil)
		return
	}
	h.record(c, user.ID, activity.ActionLogin)
	respond.OK(c, gin.H{"token": token, "user": ToResponse(user)})
}

// StartSession issues a token and sets the session cookie.
func (h *Handler) StartSession(c *gin.Context, user User) (string, error) {
	token, _, err := h.Sessions.Start(user.ID, user.Username)
	if err != nil {
		return "", err
	}
	middleware.SetSessionCookie(c, token, h.Sessions.Issuer.TTL(), h.SecureCookie)
	return token, nil
}

func (h *Handler) logout(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if err := h.Sessions.End(c.Request.Context(), middleware.SessionFromContext(c)); err != nil {
		telemetry.Error("session.revoke_failed", map[string]any{"user_id": userID, "err": err})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to log out", nil)
		return
	}
	middleware.ClearSessionCookie(c, h.SecureCookie)
	h.record(c, userID, activity.ActionLogout)
	c.Status(http.StatusNoContent)
}

func (h *Handler) me(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserIDFromContext(c)
	if _, err := h.Svc.ResolvePremium(ctx, userID); err != nil && !errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user", nil)
		return
	}
	user, err := h.Svc.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user", nil)
		return
	}
	respond.OK(c, MeResponse{Response: ToResponse(user), RecentActivity: h.recent(c, userID)})
}

// recent never fails the request; a read error yields an empty list.
func (h *Handler) recent(c *gin.Context, userID string) []activity.Entry {
	out := []activity.Entry{}
	if h.Activity == nil {
		return out
	}
	entries, err := h.Activity.Recent(c.Request.Context(), userID, recentActivityLimit)
	if err != nil {
		telemetry.Warn("activity.list_failed", map[string]any{"user_id": userID, "err": err})
		return out
	}
	return append(out, entries...)
}

func (h *Handler) record(c *gin.Context, userID, action string) {
	if h.Activity != nil {
		h.Activity.Record(c.Request.Context(), userID, action)
	}
}

// Response is the public JSON view of a user.
type Response struct {
	ID               string  `json:"id"`
	Username         string  `json:"username"`
	Email            string  `json:"email,omitempty"`
	IsPremium        bool    `json:"isPremium"`
	PremiumExpiry    *string `json:"premiumExpiry,omitempty"`
	RegistrationDate string  `json:"registrationDate"`
	APIKey           string  `json:"apiKey"`
}

// MeResponse is the GET /me body: the user plus their latest activity.
type MeResponse struct {
	Response
	RecentActivity []activity.Entry `json:"recentActivity"`
}

func ToResponse(u User) Response {
	out := Response{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		IsPremium:        u.IsPremium,
		RegistrationDate: u.RegistrationDate.Format(dateLayout),
		APIKey:           u.APIKey,
	}
	if u.PremiumExpiry != nil {
		s := u.PremiumExpiry.Format(dateLayout)
		out.PremiumExpiry = &s
	}
	return out
}

const dateLayout = "2006-01-02"
