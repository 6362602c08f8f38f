package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"docflow-backend/internal/shared/storage/object"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "owner/file.pdf", want: "owner/file.pdf"},
		{name: "simple prefix", prefix: "docs", key: "owner/file.pdf", want: "docs/owner/file.pdf"},
		{name: "prefix and key slashes", prefix: "/docs/", key: "/owner/file.pdf", want: "docs/owner/file.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewWithClient(newFakeS3(), "bucket", tt.prefix, "")
			if got := store.objectKey(tt.key); got != tt.want {
				t.Fatalf("objectKey(%q) with prefix %q = %q, want %q", tt.key, tt.prefix, got, tt.want)
			}
		})
	}
}

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	puts    []*s3.PutObjectInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, in)
	f.objects[*in.Key] = data
	f.types[*in.Key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestStoreRoundTripWithPrefix(t *testing.T) {
	fake := newFakeS3()
	store := NewWithClient(fake, "bucket", "documents/", "")
	ctx := context.Background()

	key, size, err := store.Save(ctx, "owner-1", "expense.pdf", "application/pdf", strings.NewReader("pdf-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if size != 9 {
		t.Fatalf("expected size 9, got %d", size)
	}
	if _, ok := fake.objects["documents/"+key]; !ok {
		t.Fatalf("expected object stored under prefix, have %v", fake.objects)
	}
	if fake.types["documents/"+key] != "application/pdf" {
		t.Fatalf("content type not forwarded")
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveEncryptsAndTagsOwner(t *testing.T) {
	fake := newFakeS3()
	ctx := context.Background()

	if _, _, err := NewWithClient(fake, "bucket", "", "").Save(ctx, "owner-1", "a.pdf", "", strings.NewReader("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, _, err := NewWithClient(fake, "bucket", "", "kms-key").Save(ctx, "owner-1", "b.pdf", "", strings.NewReader("y")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	sse, kms := fake.puts[0], fake.puts[1]
	if sse.ServerSideEncryption != s3types.ServerSideEncryptionAes256 || sse.SSEKMSKeyId != nil {
		t.Fatalf("expected SSE-S3 without a kms key")
	}
	if kms.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || aws.ToString(kms.SSEKMSKeyId) != "kms-key" {
		t.Fatalf("expected SSE-KMS with the configured key")
	}
	if aws.ToString(sse.ContentType) != defaultContentType {
		t.Fatalf("expected default content type, got %q", aws.ToString(sse.ContentType))
	}
	if sse.Metadata["owner"] != object.OwnerPrefix("owner-1") {
		t.Fatalf("expected owner metadata, got %v", sse.Metadata)
	}
}
