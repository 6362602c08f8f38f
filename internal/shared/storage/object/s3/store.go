package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"docflow-backend/internal/shared/storage/object"
)

const defaultContentType = "application/octet-stream"

// API is the subset of the S3 client used by Store.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store keeps document files in an S3 bucket, optionally below a key prefix.
// Objects are encrypted at rest with KMS when a key ID is given and SSE-S3 otherwise.
type Store struct {
	client   API
	bucket   string
	prefix   string
	kmsKeyID string
}

// New loads the default AWS credential chain and builds a Store.
func New(ctx context.Context, region, bucket, prefix, kmsKeyID string) (*Store, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region = strings.TrimSpace(region); region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithClient(s3.NewFromConfig(cfg), bucket, prefix, kmsKeyID), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client API, bucket, prefix, kmsKeyID string) *Store {
	return &Store{
		client:   client,
		bucket:   strings.TrimSpace(bucket),
		prefix:   strings.Trim(strings.TrimSpace(prefix), "/"),
		kmsKeyID: strings.TrimSpace(kmsKeyID),
	}
}

// objectKey maps a storage key to the bucket key. Storage keys never carry the prefix.
func (s *Store) objectKey(storageKey string) string {
	key := strings.TrimLeft(storageKey, "/")
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func (s *Store) fail(op, key string, err error) error {
	return fmt.Errorf("s3 %s s3://%s/%s: %w", op, s.bucket, key, err)
}

// Save uploads the file and tags it with its owner namespace.
func (s *Store) Save(ctx context.Context, ownerID, fileName, contentType string, r io.Reader) (string, int64, error) {
	storageKey, err := object.NewKey(ownerID, fileName)
	if err != nil {
		return "", 0, err
	}
	if contentType == "" {
		contentType = defaultContentType
	}
	key := s.objectKey(storageKey)
	body := &object.CountingReader{R: r}

	in := &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 body,
		ContentType:          aws.String(contentType),
		Metadata:             map[string]string{"owner": object.OwnerPrefix(ownerID)},
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
	}
	if s.kmsKeyID != "" {
		in.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		in.SSEKMSKeyId = aws.String(s.kmsKeyID)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", 0, s.fail("put", key, err)
	}
	return storageKey, body.N, nil
}

// Open streams a stored file. Missing keys yield object.ErrNotFound.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	key := s.objectKey(storageKey)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, object.ErrNotFound
		}
		return nil, s.fail("get", key, err)
	}
	return out.Body, nil
}

// Delete removes a stored file. Deleting a missing key succeeds.
func (s *Store) Delete(ctx context.Context, storageKey string) error {
	key := s.objectKey(storageKey)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return s.fail("delete", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var noKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound")
}

var _ object.ObjectStore = (*Store)(nil)
