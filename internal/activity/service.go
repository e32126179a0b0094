package activity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"doctext-backend/internal/shared/telemetry"
)

type Service struct {
	Repo Repo
	now  func() time.Time
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo, now: time.Now}
}

// Record appends an entry for a signed-in user. Guests are skipped and
// insert failures are only logged.
func (s *Service) Record(ctx context.Context, userID, action string) {
	if s == nil || s.Repo == nil || strings.TrimSpace(userID) == "" {
		return
	}
	entry := Entry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Action:    action,
		CreatedAt: s.now().UTC(),
	}
	if err := s.Repo.Insert(ctx, entry); err != nil {
		telemetry.Error("activity.record_failed", map[string]any{
			"user_id": userID,
			"action":  action,
			"err":     err,
		})
	}
}

// Conversions counts uploads across all users.
func (s *Service) Conversions(ctx context.Context) (int, error) {
	if s == nil || s.Repo == nil {
		return 0, errors.New("activity service not configured")
	}
	return s.Repo.CountByAction(ctx, UploadActions...)
}

// Recent lists a user's latest entries.
func (s *Service) Recent(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if s == nil || s.Repo == nil {
		return nil, errors.New("activity service not configured")
	}
	return s.Repo.ListByUser(ctx, userID, limit)
}
