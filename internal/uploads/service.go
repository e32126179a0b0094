// Package uploads runs one document through validation, transient storage,
// the tier gates and extraction.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"doctext-backend/internal/activity"
	"doctext-backend/internal/extract"
	"doctext-backend/internal/shared/metrics"
	"doctext-backend/internal/shared/storage/object"
	"doctext-backend/internal/shared/telemetry"
	"doctext-backend/internal/shared/util"
	"doctext-backend/internal/tier"
	"doctext-backend/internal/users"
)

var (
	ErrNoFile           = errors.New("no file selected")
	ErrInvalidExtension = errors.New("file extension not allowed")
)

// PremiumResolver reports the current tier of a signed-in user.
type PremiumResolver interface {
	ResolvePremium(ctx context.Context, userID string) (bool, error)
}

type ActivityRecorder interface {
	Record(ctx context.Context, userID, action string)
}

type TextExtractor interface {
	Extract(ctx context.Context, data []byte, fileName string) (string, error)
}

// Upload is one incoming file. UserID is empty for guests.
type Upload struct {
	UserID   string
	FileName string
	Body     io.Reader
}

type Result struct {
	Text      string `json:"text"`
	IsPremium bool   `json:"isPremium"`
	FileName  string `json:"fileName"`
	Truncated bool   `json:"truncated"`
	SizeBytes int64  `json:"sizeBytes"`
}

type Service struct {
	Store     object.ObjectStore
	Extractor TextExtractor
	Policy    tier.Policy
	Users     PremiumResolver
	Activity  ActivityRecorder

	allowed     map[string]struct{}
	allowedList []string
	now         func() time.Time
}

// NewService accepts files whose extension is in allowed (case-insensitive,
// with or without a leading dot).
func NewService(store object.ObjectStore, extractor TextExtractor, policy tier.Policy, resolver PremiumResolver, recorder ActivityRecorder, allowed []string) *Service {
	s := &Service{
		Store:     store,
		Extractor: extractor,
		Policy:    policy,
		Users:     resolver,
		Activity:  recorder,
		allowed:   make(map[string]struct{}, len(allowed)),
		now:       time.Now,
	}
	for _, ext := range allowed {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext == "" {
			continue
		}
		if _, dup := s.allowed[ext]; dup {
			continue
		}
		s.allowed[ext] = struct{}{}
		s.allowedList = append(s.allowedList, ext)
	}
	return s
}

// AllowedExtensions returns the accepted extensions in configured order.
func (s *Service) AllowedExtensions() []string {
	return append([]string(nil), s.allowedList...)
}

// ValidateName returns the display name for fileName or ErrNoFile /
// ErrInvalidExtension.
func (s *Service) ValidateName(fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", ErrNoFile
	}
	if _, ok := s.allowed[util.Extension(name)]; !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidExtension, util.Extension(name))
	}
	return name, nil
}

// Process stores the upload, applies the tier gates and extracts text.
// The stored object is deleted before Process returns on every path.
func (s *Service) Process(ctx context.Context, up Upload) (Result, error) {
	name, err := s.ValidateName(up.FileName)
	if err != nil {
		if errors.Is(err, ErrNoFile) {
			metrics.IncUploadRejected("no_file")
		} else {
			metrics.IncUploadRejected("invalid_extension")
		}
		return Result{}, err
	}
	if up.Body == nil {
		metrics.IncUploadRejected("no_file")
		return Result{}, ErrNoFile
	}

	owner := up.UserID
	if owner == "" {
		owner = object.GuestOwner
	}
	obj, err := s.Store.Save(ctx, owner, name, up.Body)
	if err != nil {
		return Result{}, fmt.Errorf("save upload: %w", err)
	}
	defer s.cleanup(ctx, obj.Key)

	isPremium, err := s.resolveTier(ctx, up.UserID)
	if err != nil {
		return Result{}, err
	}
	result := Result{IsPremium: isPremium, FileName: name, SizeBytes: obj.Size}

	if err := s.Policy.CheckSize(isPremium, obj.Size); err != nil {
		metrics.IncUploadRejected("too_large")
		telemetry.Info("upload.rejected", map[string]any{
			"user_id":    up.UserID,
			"file_name":  name,
			"size_bytes": obj.Size,
			"mime_type":  obj.MimeType,
		})
		return result, err
	}

	text, err := s.extract(ctx, obj, name)
	if err != nil {
		return result, err
	}
	result.Text, result.Truncated = s.Policy.Apply(isPremium, text)
	if result.Truncated {
		metrics.IncTextTruncated()
	}
	return result, nil
}

func (s *Service) resolveTier(ctx context.Context, userID string) (bool, error) {
	if userID == "" || s.Users == nil {
		return false, nil
	}
	isPremium, err := s.Users.ResolvePremium(ctx, userID)
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			return false, fmt.Errorf("resolve premium: %w", err)
		}
		// Session outlived its account.
		isPremium = false
	}
	if s.Activity != nil {
		action := activity.ActionFreeFileUpload
		if isPremium {
			action = activity.ActionPremiumFileUpload
		}
		s.Activity.Record(ctx, userID, action)
	}
	return isPremium, nil
}

func (s *Service) extract(ctx context.Context, obj object.Object, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	metrics.IncExtractionStarted()
	start := s.now()

	text, err := s.readAndExtract(ctx, obj.Key, name)
	metrics.ObserveExtractionDurationMs(float64(s.now().Sub(start).Milliseconds()))
	if err != nil {
		metrics.IncExtractionFailed()
		telemetry.Error("extraction.failed", map[string]any{
			"file_name": name,
			"key":       obj.Key,
			"mime_type": obj.MimeType,
			"err":       err,
		})
		if ctx.Err() != nil || errors.Is(err, extract.ErrExtraction) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", extract.ErrExtraction, err)
	}
	metrics.IncExtractionCompleted()
	return text, nil
}

func (s *Service) readAndExtract(ctx context.Context, key, name string) (string, error) {
	rc, err := s.Store.Open(ctx, key)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	return s.Extractor.Extract(ctx, data, name)
}

// cleanup runs even when the request was cancelled.
func (s *Service) cleanup(ctx context.Context, key string) {
	if err := s.Store.Delete(context.WithoutCancel(ctx), key); err != nil {
		telemetry.Warn("upload.cleanup_failed", map[string]any{
			"key": key,
			"err": err,
		})
	}
}

// TierName labels a request for logs.
func TierName(isPremium bool) string {
	if isPremium {
		return "premium"
	}
	return "free"
}

func formatAllowed(exts []string) string {
	return strings.Join(exts, ", ")
}
