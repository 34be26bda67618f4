// Package blob abstracts the object-storage backend holding evidence bytes.
package blob

import (
	"context"
	"io"

	"github.com/tpdc055/policemanagementsystem-sub000/internal/models"
)

// PutInput carries one object write. Body must be seekable so the write
// can be retried from the start after a transient failure.
type PutInput struct {
	Key          string
	Body         io.ReadSeeker
	SizeBytes    int64
	ContentType  string
	StorageClass models.StorageClass
	// Metadata is a bounded set of string pairs stored with the object
	// (case id, uploader, digest).
	Metadata map[string]string
	// Tags become object tags (retention class, evidence type).
	Tags map[string]string
}

// StoredInfo reports backend-side facts about a completed write.
type StoredInfo struct {
	ETag           string
	EncryptionMode string
}

// Object bundles fetched bytes with their stored attributes. Callers own
// closing Body.
type Object struct {
	Body         io.ReadCloser
	ContentType  string
	SizeBytes    int64
	ETag         string
	StorageClass models.StorageClass
	Metadata     map[string]string
}

// ObjectInfo is Head output: attributes without the payload.
type ObjectInfo struct {
	ContentType  string
	SizeBytes    int64
	ETag         string
	StorageClass models.StorageClass
	Metadata     map[string]string
}

// Store is the backend contract. All writes are server-side encrypted.
// Implementations map missing keys to errors.ErrNotFound and transient
// failures to errors.ErrBackendUnavailable so callers can decide on retry.
type Store interface {
	Put(ctx context.Context, in PutInput) (*StoredInfo, error)
	Get(ctx context.Context, key string) (*Object, error)
	Head(ctx context.Context, key string) (*ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	Copy(ctx context.Context, srcKey, dstKey string, class models.StorageClass, tags map[string]string) error
	Restore(ctx context.Context, key string, days int, tier string) error
	List(ctx context.Context, prefix string) ([]string, error)
}
