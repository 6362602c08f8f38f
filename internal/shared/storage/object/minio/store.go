package minio

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"docflow-backend/internal/shared/storage/object"
	"docflow-backend/internal/shared/telemetry"
)

// Options configures the MinIO connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store implements ObjectStore on a MinIO (S3-compatible) bucket.
type Store struct {
	client *minio.Client
	bucket string
}

// New connects to MinIO and creates the bucket when missing.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket exists: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
		telemetry.Info("minio.bucket_created", map[string]any{"bucket": opts.Bucket})
	}

	return &Store{client: client, bucket: opts.Bucket}, nil
}

// Save streams the reader into the bucket under the owner's namespace.
func (s *Store) Save(ctx context.Context, ownerID, fileName, contentType string, r io.Reader) (string, int64, error) {
	storageKey, err := object.NewKey(ownerID, fileName)
	if err != nil {
		return "", 0, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := s.client.PutObject(ctx, s.bucket, storageKey, r, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", 0, fmt.Errorf("minio put object bucket=%s key=%s: %w", s.bucket, storageKey, err)
	}
	return storageKey, info.Size, nil
}

// Open returns a reader for the object. The object is stat'ed first so a
// missing key surfaces as ErrNotFound instead of on first read.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if _, err := s.client.StatObject(ctx, s.bucket, storageKey, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil, object.ErrNotFound
		}
		return nil, fmt.Errorf("minio stat object bucket=%s key=%s: %w", s.bucket, storageKey, err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, storageKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get object bucket=%s key=%s: %w", s.bucket, storageKey, err)
	}
	return obj, nil
}

// Delete removes the object. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, storageKey string) error {
	err := s.client.RemoveObject(ctx, s.bucket, storageKey, minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("minio remove object bucket=%s key=%s: %w", s.bucket, storageKey, err)
	}
	return nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey"
}

var _ object.ObjectStore = (*Store)(nil)
