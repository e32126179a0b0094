package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := New(dir)

	obj, err := store.Save(ctx, "user-1", "../../скан.PDF", strings.NewReader("%PDF-1.4 body"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if obj.Size != int64(len("%PDF-1.4 body")) {
		t.Fatalf("unexpected size %d", obj.Size)
	}
	if !strings.HasSuffix(obj.Key, ".pdf") {
		t.Fatalf("expected key to keep extension, got %s", obj.Key)
	}
	if strings.Contains(obj.Key, "..") || strings.Contains(obj.Key, "скан") {
		t.Fatalf("client name leaked into key: %s", obj.Key)
	}
	if obj.MimeType != "application/pdf" {
		t.Fatalf("unexpected mime %s", obj.MimeType)
	}

	rc, err := store.Open(ctx, obj.Key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "%PDF-1.4 body" {
		t.Fatalf("unexpected content %q", data)
	}

	if err := store.Delete(ctx, obj.Key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(obj.Key))); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
	if err := store.Delete(ctx, obj.Key); err != nil {
		t.Fatalf("second Delete should be a no-op: %v", err)
	}
}

func TestSameNameGetsDistinctKeys(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())
	a, err := store.Save(ctx, "", "scan.png", strings.NewReader("a"))
	if err != nil {
		t.Fatalf("Save a: %v", err)
	}
	b, err := store.Save(ctx, "", "scan.png", strings.NewReader("b"))
	if err != nil {
		t.Fatalf("Save b: %v", err)
	}
	if a.Key == b.Key {
		t.Fatalf("expected distinct keys, got %s twice", a.Key)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "../outside"); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
	if err := store.Delete(context.Background(), "/etc/passwd"); err == nil {
		t.Fatal("expected absolute key to be rejected")
	}
}
