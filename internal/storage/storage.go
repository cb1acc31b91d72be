package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	cfg "github.com/klaudly/klaudly/internal/config"
)

//go:generate go run go.uber.org/mock/mockgen -package mocks -destination mocks/blobstore_mock.go github.com/klaudly/klaudly/internal/storage BlobStore

// BlobStore is the narrow contract the entry core needs from object storage.
type BlobStore interface {
	// Store uploads body as folder/name and returns its locators.
	Store(ctx context.Context, body io.Reader, size int64, name, folder, contentType string) (Object, error)

	// FindByName returns at most limit objects below folder whose base name
	// equals name.
	FindByName(ctx context.Context, folder, name string, limit int) ([]ObjectInfo, error)

	// RemoveByNativeID deletes the object with the given storage-native identifier.
	RemoveByNativeID(ctx context.Context, nativeID string) error

	// PresignUpload returns a short-lived URL that accepts a single PUT of
	// folder/name with the given content type.
	PresignUpload(ctx context.Context, name, folder, contentType string, expiry time.Duration) (PresignedUpload, error)
}

// Object describes a stored blob as seen by callers.
type Object struct {
	URL          string
	Path         string
	ThumbnailURL string // Empty when the content has no preview
}

// PresignedUpload lets a client send a blob straight to the store.
type PresignedUpload struct {
	URL       string
	Method    string
	Key       string
	FileURL   string // Where the blob is served once uploaded
	ExpiresAt time.Time
}

// ObjectInfo is a lookup result. NativeID is the object key.
type ObjectInfo struct {
	NativeID string
}

// New builds the blob store selected by STORAGE_DRIVER.
func New(c *cfg.Config) (BlobStore, error) {
	switch c.StorageDriver {
	case "minio":
		slog.Info("initializing MinIO storage",
			"bucket", c.S3Bucket,
			"endpoint", c.MinioEndpoint,
		)
		return NewMinioStorage(MinioConfig{
			Endpoint:  c.MinioEndpoint,
			Bucket:    c.S3Bucket,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
			UseSSL:    c.MinioUseSSL,
		})
	case "s3", "":
		slog.Info("initializing S3 storage",
			"bucket", c.S3Bucket,
			"region", c.S3Region,
			"endpoint", c.S3Endpoint,
		)
		return NewS3Storage(S3Config{
			Region:    c.S3Region,
			Bucket:    c.S3Bucket,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
			Endpoint:  c.S3Endpoint,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
}

// objectKey joins folder and name into a bucket key without a leading slash.
func objectKey(folder, name string) string {
	return strings.TrimPrefix(path.Join("/", folder, name), "/")
}

// isPreviewable reports whether the content type gets a thumbnail locator.
func isPreviewable(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

// listPrefix turns a folder into a key prefix that only matches objects
// inside it.
func listPrefix(folder string) string {
	folder = strings.Trim(path.Clean("/"+folder), "/")
	if folder == "" {
		return ""
	}
	return folder + "/"
}
