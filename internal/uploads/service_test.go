package uploads

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"doctext-backend/internal/activity"
	"doctext-backend/internal/extract"
	"doctext-backend/internal/shared/telemetry"
	"doctext-backend/internal/shared/storage/object/local"
	"doctext-backend/internal/tier"
	"doctext-backend/internal/users"
)

var (
	defaultAllowed = []string{"pdf", "png", "jpg", "jpeg"}
	errFake        = errors.New("tesseract exploded")
)

type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.text, f.err
}

type fakeResolver struct {
	premium map[string]bool
	err     error
}

func (f fakeResolver) ResolvePremium(_ context.Context, userID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	premium, ok := f.premium[userID]
	if !ok {
		return false, users.ErrNotFound
	}
	return premium, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	actions []string
}

func (f *fakeRecorder) Record(_ context.Context, _ string, action string) {
	f.mu.Lock()
	f.actions = append(f.actions, action)
	f.mu.Unlock()
}

type fixture struct {
	svc       *Service
	dir       string
	extractor *fakeExtractor
	recorder  *fakeRecorder
}

func newFixture(t *testing.T, text string) fixture {
	t.Helper()
	dir := t.TempDir()
	ex := &fakeExtractor{text: text}
	rec := &fakeRecorder{}
	policy := tier.NewPolicy(tier.Limits{FreeFileSizeMB: 5, FreeTextLimit: 5000})
	resolver := fakeResolver{premium: map[string]bool{"free-user": false, "premium-user": true}}
	svc := NewService(local.New(dir), ex, policy, resolver, rec, defaultAllowed)
	return fixture{svc: svc, dir: dir, extractor: ex, recorder: rec}
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	return n
}

func TestProcessRejectsOversizedFreeUploadBeforeExtraction(t *testing.T) {
	f := newFixture(t, "never")
	body := bytes.Repeat([]byte{0xFF}, 10<<20)

	res, err := f.svc.Process(context.Background(), Upload{FileName: "scan.jpg", Body: bytes.NewReader(body)})
	if !errors.Is(err, tier.ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if res.SizeBytes != int64(len(body)) || res.IsPremium {
		t.Fatalf("unexpected result %+v", res)
	}
	if f.extractor.calls != 0 {
		t.Fatalf("extractor must not run, ran %d times", f.extractor.calls)
	}
	if n := countFiles(t, f.dir); n != 0 {
		t.Fatalf("expected no files left, found %d", n)
	}
}

func TestProcessPremiumSkipsBothLimits(t *testing.T) {
	long := strings.Repeat("x", 6000)
	f := newFixture(t, long)
	body := bytes.Repeat([]byte{0xFF}, 10<<20)

	res, err := f.svc.Process(context.Background(), Upload{UserID: "premium-user", FileName: "scan.jpg", Body: bytes.NewReader(body)})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.IsPremium || res.Truncated || res.Text != long {
		t.Fatalf("premium result must be untouched: premium=%v truncated=%v len=%d", res.IsPremium, res.Truncated, len(res.Text))
	}
	if len(f.recorder.actions) != 1 || f.recorder.actions[0] != activity.ActionPremiumFileUpload {
		t.Fatalf("unexpected activity %v", f.recorder.actions)
	}
	if n := countFiles(t, f.dir); n != 0 {
		t.Fatalf("expected no files left, found %d", n)
	}
}

func TestProcessTruncatesFreeText(t *testing.T) {
	f := newFixture(t, strings.Repeat("я", 6000))

	res, err := f.svc.Process(context.Background(), Upload{UserID: "free-user", FileName: "report.PDF", Body: strings.NewReader("%PDF-1.4")})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Truncated {
		t.Fatal("expected truncation")
	}
	if !strings.HasSuffix(res.Text, tier.TruncationNotice) {
		t.Fatal("missing truncation notice")
	}
	want := 5000 + utf8.RuneCountInString(tier.TruncationNotice)
	if got := utf8.RuneCountInString(res.Text); got != want {
		t.Fatalf("expected %d runes, got %d", want, got)
	}
	if f.recorder.actions[0] != activity.ActionFreeFileUpload {
		t.Fatalf("unexpected activity %v", f.recorder.actions)
	}
}

func TestProcessGuestIsFreeAndUnrecorded(t *testing.T) {
	f := newFixture(t, "Hello")
	res, err := f.svc.Process(context.Background(), Upload{FileName: "page.png", Body: strings.NewReader("png")})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.IsPremium || res.Text != "Hello" || res.FileName != "page.png" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(f.recorder.actions) != 0 {
		t.Fatalf("guests must not be recorded: %v", f.recorder.actions)
	}
}

func TestProcessValidation(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	if _, err := f.svc.Process(ctx, Upload{FileName: "", Body: strings.NewReader("x")}); !errors.Is(err, ErrNoFile) {
		t.Fatalf("expected ErrNoFile, got %v", err)
	}
	if _, err := f.svc.Process(ctx, Upload{FileName: "notes.docx", Body: strings.NewReader("x")}); !errors.Is(err, ErrInvalidExtension) {
		t.Fatalf("expected ErrInvalidExtension, got %v", err)
	}
	if _, err := f.svc.Process(ctx, Upload{FileName: "noext", Body: strings.NewReader("x")}); !errors.Is(err, ErrInvalidExtension) {
		t.Fatalf("expected ErrInvalidExtension, got %v", err)
	}
	if f.extractor.calls != 0 || countFiles(t, f.dir) != 0 {
		t.Fatal("rejected uploads must not be stored or extracted")
	}
}

func TestProcessExtractionFailureCleansUp(t *testing.T) {
	f := newFixture(t, "")
	f.extractor.err = errFake

	_, err := f.svc.Process(context.Background(), Upload{FileName: "scan.jpg", Body: strings.NewReader("jpeg")})
	if !errors.Is(err, extract.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	if n := countFiles(t, f.dir); n != 0 {
		t.Fatalf("expected no files left, found %d", n)
	}
}

func TestProcessLogsSniffedMimeType(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := telemetry.L()
	telemetry.SetLogger(zap.New(core))
	t.Cleanup(func() { telemetry.SetLogger(prev) })

	f := newFixture(t, "")
	f.extractor.err = errFake
	body := strings.NewReader("%PDF-1.4 not really")
	if _, err := f.svc.Process(context.Background(), Upload{FileName: "scan.png", Body: body}); err == nil {
		t.Fatal("expected extraction error")
	}

	entries := logs.FilterMessage("extraction.failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one extraction.failed entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["mime_type"]; got != "application/pdf" {
		t.Fatalf("expected sniffed mime application/pdf, got %v", got)
	}
}

func TestProcessResolverFailure(t *testing.T) {
	f := newFixture(t, "text")
	f.svc.Users = fakeResolver{err: errors.New("db down")}

	_, err := f.svc.Process(context.Background(), Upload{UserID: "free-user", FileName: "a.pdf", Body: strings.NewReader("x")})
	if err == nil || errors.Is(err, extract.ErrExtraction) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if n := countFiles(t, f.dir); n != 0 {
		t.Fatalf("expected no files left, found %d", n)
	}
}

func TestAllowedExtensionsKeepOrder(t *testing.T) {
	svc := NewService(nil, nil, tier.Policy{}, nil, nil, []string{"PDF", ".png", "jpg", "pdf", " jpeg "})
	if got := strings.Join(svc.AllowedExtensions(), ", "); got != "pdf, png, jpg, jpeg" {
		t.Fatalf("unexpected list %q", got)
	}
}
