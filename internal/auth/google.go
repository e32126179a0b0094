// Package auth implements Google sign-in on top of the local user store.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"doctext-backend/internal/activity"
	"doctext-backend/internal/shared/server/respond"
	"doctext-backend/internal/shared/telemetry"
	"doctext-backend/internal/users"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// AccountLinker maps a verified Google email to a local account.
type AccountLinker interface {
	FindOrCreateByEmail(ctx context.Context, email string) (users.User, error)
}

// SessionStarter issues a session for user and sets the session cookie.
type SessionStarter interface {
	StartSession(c *gin.Context, user users.User) (string, error)
}

type ActivityRecorder interface {
	Record(ctx context.Context, userID, action string)
}

// GoogleService handles Google OAuth flows.
type GoogleService struct {
	oauthConfig *oauth2.Config
	uiRedirect  string
	userInfoURL string
	stateTTL    time.Duration
	stateStore  *stateStore

	Accounts AccountLinker
	Sessions SessionStarter
	Activity ActivityRecorder
}

// NewGoogleService builds a GoogleService.
func NewGoogleService(clientID, clientSecret, redirectURL, uiRedirect string, accounts AccountLinker, sessions SessionStarter, recorder ActivityRecorder) *GoogleService {
	return &GoogleService{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
			},
			Endpoint: google.Endpoint,
		},
		uiRedirect:  uiRedirect,
		userInfoURL: defaultUserInfoURL,
		stateTTL:    5 * time.Minute,
		stateStore:  newStateStore(),
		Accounts:    accounts,
		Sessions:    sessions,
		Activity:    recorder,
	}
}

// Configured reports whether client credentials and a redirect are set.
func (s *GoogleService) Configured() bool {
	return s.oauthConfig.ClientID != "" && s.oauthConfig.ClientSecret != "" && s.oauthConfig.RedirectURL != ""
}

// RegisterRoutes attaches Google auth routes.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", s.start)
	rg.GET("/auth/google/callback", s.callback)
}

func (s *GoogleService) start(c *gin.Context) {
	if !s.Configured() {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "Google auth not configured", nil)
		return
	}

	state := uuid.NewString()
	s.stateStore.put(state, time.Now().Add(s.stateTTL))

	c.Redirect(http.StatusFound, s.oauthConfig.AuthCodeURL(state))
}

func (s *GoogleService) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}

	if !s.stateStore.consume(state) {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		telemetry.Warn("google.exchange_failed", map[string]any{"err": err})
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}

	info, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		telemetry.Warn("google.userinfo_failed", map[string]any{"err": err})
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}
	if strings.TrimSpace(info.Email) == "" || (info.VerifiedEmail != nil && !*info.VerifiedEmail) {
		respond.Error(c, http.StatusBadGateway, "auth_failed", "google account has no verified email", nil)
		return
	}

	user, err := s.Accounts.FindOrCreateByEmail(ctx, info.Email)
	if err != nil {
		telemetry.Error("google.account_failed", map[string]any{"err": err})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to sign in", nil)
		return
	}

	jwt, err := s.Sessions.StartSession(c, user)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}
	if s.Activity != nil {
		s.Activity.Record(ctx, user.ID, activity.ActionLogin)
	}

	redirectURL, err := appendToken(s.uiRedirect, jwt)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect", nil)
		return
	}

	c.Redirect(http.StatusFound, redirectURL)
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail *bool  `json:"verified_email"`
}

func (s *GoogleService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (googleUserInfo, error) {
	client := s.oauthConfig.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return googleUserInfo{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return googleUserInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, err
	}
	return info, nil
}

type stateStore struct {
	items map[string]time.Time
	mu    sync.Mutex
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]time.Time)}
}

// put also drops expired states so abandoned logins do not accumulate.
func (s *stateStore) put(state string, exp time.Time) {
	now := time.Now()
	s.mu.Lock()
	for k, v := range s.items {
		if now.After(v) {
			delete(s.items, k)
		}
	}
	s.items[state] = exp
	s.mu.Unlock()
}

func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	exp, ok := s.items[state]
	if ok {
		delete(s.items, state)
	}
	s.mu.Unlock()
	return ok && !time.Now().After(exp)
}

func appendToken(rawURL, token string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
