package object

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/oklog/ulid/v2"

	"doctext-backend/internal/shared/util"
)

// GuestOwner namespaces uploads made without a session.
const GuestOwner = "anonymous"

// Object describes a stored upload.
type Object struct {
	Key      string
	Size     int64
	MimeType string
}

// ObjectStore holds uploads for the duration of one extraction request.
type ObjectStore interface {
	Save(ctx context.Context, owner string, fileName string, r io.Reader) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// NewKey returns a collision-free storage key under the owner's namespace.
// Only the extension of fileName is kept so client names never reach the
// filesystem or bucket.
func NewKey(owner, fileName string) string {
	if strings.TrimSpace(owner) == "" {
		owner = GuestOwner
	}
	name := ulid.Make().String()
	if ext := util.Extension(fileName); ext != "" {
		name += "." + ext
	}
	return path.Join(util.HashOwner(owner), name)
}

// Sniff reads up to 512 bytes from r for content detection and returns a
// reader that replays them ahead of the remainder.
func Sniff(r io.Reader) (string, io.Reader, error) {
	var buf [512]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, err
	}
	head := append([]byte(nil), buf[:n]...)
	return http.DetectContentType(head), io.MultiReader(bytes.NewReader(head), r), nil
}
