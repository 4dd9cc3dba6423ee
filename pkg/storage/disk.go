// Package storage is the filesystem abstraction for uploaded media.
//
// Two drivers are available:
//   - "local" local filesystem, served by the app under /storage
//   - "s3"    S3-compatible object storage (AWS S3, MinIO, R2, Spaces)
//
//	disks, _ := storage.FromConfig(ctx)
//	d := disks.Default()
//	_ = d.Put(ctx, "images/abc.jpg", data, "image/jpeg")
//	url := d.URL("images/abc.jpg")
package storage

import (
	"context"
	"errors"
)

// ErrNotExist is returned by Get for a missing object.
var ErrNotExist = errors.New("storage: object does not exist")

// Disk is the driver interface. Paths are slash-separated object keys.
type Disk interface {
	// Name is the key the disk is registered under; it is stored with each
	// image so deletes go to the disk that holds the objects.
	Name() string

	// Put writes content to path, creating parent directories as needed.
	Put(ctx context.Context, path string, content []byte, contentType string) error

	// Get returns the full content of the object at path.
	Get(ctx context.Context, path string) ([]byte, error)

	// Exists reports whether an object exists at path.
	Exists(ctx context.Context, path string) bool

	// Delete removes an object. Returns nil if it did not exist.
	Delete(ctx context.Context, path string) error

	// URL returns the public URL for path.
	URL(path string) string
}
