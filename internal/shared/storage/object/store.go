package object

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"docflow-backend/internal/shared/util"
)

// ErrNotFound is returned by Open when no blob exists under the key.
var ErrNotFound = errors.New("object not found")

// ObjectStore defines the contract for saving, retrieving and removing opaque blobs.
type ObjectStore interface {
	Save(ctx context.Context, ownerID, fileName, contentType string, r io.Reader) (storageKey string, sizeBytes int64, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}

// OwnerPrefix returns the key namespace for an owner: the first 16 bytes of
// the SHA-256 of the owner ID, hex encoded.
func OwnerPrefix(ownerID string) string {
	sum := sha256.Sum256([]byte(ownerID))
	return hex.EncodeToString(sum[:16])
}

// NewKey builds a unique key of the form <owner prefix>/<yyyy>/<mm>/<uuid>_<file name>.
func NewKey(ownerID, fileName string) (string, error) {
	sanitized, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	now := time.Now().UTC()
	return path.Join(
		OwnerPrefix(ownerID),
		now.Format("2006"),
		now.Format("01"),
		uuid.NewString()+"_"+sanitized,
	), nil
}

// CountingReader tracks bytes read through it.
type CountingReader struct {
	R io.Reader
	N int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.N += int64(n)
	return n, err
}
