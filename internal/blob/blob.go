// Package blob stores completion-report attachments in object storage.
// The CRUD core works without it; attachment routes are disabled when no
// backend is configured.
package blob

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/tasktrack/apiserver/config"
)

// Store holds attachment objects in a single bucket.
type Store interface {
	// EnsureBucket ensures the configured bucket exists.
	EnsureBucket(ctx context.Context) error

	// Put uploads an object under the given key.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Open returns a reader for the object under the given key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Remove deletes the object under the given key.
	Remove(ctx context.Context, key string) error

	// Bucket returns the configured bucket name.
	Bucket() string
}

// FromConfig constructs the configured Store. It returns (nil, nil) when
// no backend is configured; attachments are then disabled.
func FromConfig(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.StorageBackend {
	case "":
		return nil, nil
	case "minio":
		return NewMinioStore(cfg.Minio)
	case "gcs":
		return NewGCSStore(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// AttachmentKey builds the object key for a task's report attachment.
// One attachment per task; re-uploads overwrite under a new key.
func AttachmentKey(taskID int, filename string) string {
	return fmt.Sprintf("tasks/%d/%s", taskID, path.Base(filename))
}
