package users

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"doctext-backend/internal/shared/auth"
	"doctext-backend/internal/shared/util"
)

const (
	maxUsernameLen = 64
	maxEmailLen    = 254
	minPasswordLen = 6
)

type Service struct {
	Repo Repo
	// PremiumPeriod is how long an upgrade lasts.
	PremiumPeriod time.Duration

	now func() time.Time
}

func NewService(repo Repo, premiumDays int) *Service {
	if premiumDays <= 0 {
		premiumDays = 30
	}
	return &Service{
		Repo:          repo,
		PremiumPeriod: time.Duration(premiumDays) * 24 * time.Hour,
		now:           time.Now,
	}
}

// RegisterInput is the payload for creating a password account.
type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// Register creates a free-tier user with a bcrypt password hash and a fresh API key.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	username := cleanInput(in.Username)
	email := normalizeEmail(cleanInput(in.Email))
	switch {
	case username == "" || utf8.RuneCountInString(username) > maxUsernameLen:
		return User{}, fmt.Errorf("%w: username is required (max %d characters)", ErrInvalidInput, maxUsernameLen)
	case utf8.RuneCountInString(in.Password) < minPasswordLen:
		return User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	case len(email) > maxEmailLen || (email != "" && !strings.Contains(email, "@")):
		return User{}, fmt.Errorf("%w: email is invalid", ErrInvalidInput)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	user := User{
		ID:               uuid.NewString(),
		Username:         username,
		PasswordHash:     hash,
		Email:            email,
		RegistrationDate: Today(s.now()),
		APIKey:           newAPIKey(),
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return s.Repo.GetByID(ctx, user.ID)
}

// Authenticate checks a username/password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	user, err := s.Repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if user.PasswordHash == "" || !auth.CheckPassword(user.PasswordHash, password) {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}

// ResolvePremium returns the current premium flag, expiring it lazily.
func (s *Service) ResolvePremium(ctx context.Context, userID string) (bool, error) {
	if s == nil || s.Repo == nil {
		return false, errors.New("users service not configured")
	}
	return s.Repo.ResolvePremium(ctx, userID, Today(s.now()))
}

// Upgrade grants premium from today for PremiumPeriod. No payment is taken.
func (s *Service) Upgrade(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	expiry := Today(s.now().Add(s.PremiumPeriod))
	if err := s.Repo.SetPremium(ctx, userID, expiry); err != nil {
		return User{}, err
	}
	return s.Repo.GetByID(ctx, userID)
}

// FindOrCreateByEmail returns the user registered with email, creating a
// password-less account named after the email's local part if none exists.
func (s *Service) FindOrCreateByEmail(ctx context.Context, email string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	email = normalizeEmail(cleanInput(email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	user, err := s.Repo.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	base := strings.SplitN(email, "@", 2)[0]
	candidates := []string{base, base + "-" + newAPIKey()[:6]}
	for _, username := range candidates {
		user = User{
			ID:               uuid.NewString(),
			Username:         username,
			Email:            email,
			RegistrationDate: Today(s.now()),
			APIKey:           newAPIKey(),
		}
		err = s.Repo.Create(ctx, user)
		if err == nil {
			return s.Repo.GetByID(ctx, user.ID)
		}
		if !errors.Is(err, ErrConflict) {
			return User{}, err
		}
		// The email may have been registered concurrently.
		if existing, getErr := s.Repo.GetByEmail(ctx, email); getErr == nil {
			return existing, nil
		}
	}
	return User{}, err
}

// Counts returns total and premium user counts.
func (s *Service) Counts(ctx context.Context) (Counts, error) {
	if s == nil || s.Repo == nil {
		return Counts{}, errors.New("users service not configured")
	}
	return s.Repo.Counts(ctx)
}

func cleanInput(s string) string {
	return strings.TrimSpace(html.UnescapeString(util.StripTags(s)))
}

// newAPIKey returns 32 lowercase hex characters.
func newAPIKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
