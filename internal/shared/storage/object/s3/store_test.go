package s3

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeS3 struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
	deletes []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data := f.objects[aws.ToString(in.Key)]
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	key := aws.ToString(in.Key)
	delete(f.objects, key)
	f.deletes = append(f.deletes, key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "owner/01H.pdf", want: "owner/01H.pdf"},
		{name: "simple prefix", prefix: "transient", key: "owner/01H.pdf", want: "transient/owner/01H.pdf"},
		{name: "prefix and key slashes", prefix: "/transient/", key: "/owner/01H.pdf", want: "transient/owner/01H.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestSaveOpenDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := NewWithClient(fake, "bucket", "transient/", "")

	obj, err := store.Save(ctx, "user-1", "scan.PNG", strings.NewReader("\x89PNG\r\n\x1a\nrest"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if obj.MimeType != "image/png" {
		t.Fatalf("unexpected mime %s", obj.MimeType)
	}
	if obj.Size != 12 {
		t.Fatalf("unexpected size %d", obj.Size)
	}
	if len(fake.puts) != 1 || fake.puts[0].ServerSideEncryption != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("expected AES256 put, got %+v", fake.puts)
	}

	rc, err := store.Open(ctx, obj.Key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("unexpected body %q", data)
	}

	if err := store.Delete(ctx, obj.Key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(fake.deletes) != 1 || !strings.HasPrefix(fake.deletes[0], "transient/") {
		t.Fatalf("unexpected deletes %v", fake.deletes)
	}
	if len(fake.objects) != 0 {
		t.Fatalf("expected bucket empty, got %d objects", len(fake.objects))
	}
}

func TestSaveUsesKMSWhenConfigured(t *testing.T) {
	fake := newFakeS3()
	store := NewWithClient(fake, "bucket", "", "kms-key")
	if _, err := store.Save(context.Background(), "", "a.pdf", strings.NewReader("%PDF")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	in := fake.puts[0]
	if in.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || aws.ToString(in.SSEKMSKeyId) != "kms-key" {
		t.Fatalf("expected KMS encryption, got %+v", in)
	}
}
