package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage implements BlobStore against a MinIO server using the native client.
type MinioStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

type MinioConfig struct {
	Endpoint  string // host:port, no scheme
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("MinIO endpoint is not configured")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}

	storage := &MinioStorage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := storage.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return storage, nil
}

func (s *MinioStorage) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %q: %w", s.bucket, err)
	}
	if exists {
		return nil
	}

	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	if err != nil {
		return fmt.Errorf("bucket %q does not exist and could not be created: %w", s.bucket, err)
	}

	slog.Info("created MinIO bucket", "bucket", s.bucket)
	return nil
}

func (s *MinioStorage) Store(ctx context.Context, body io.Reader, size int64, name, folder, contentType string) (Object, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	key := objectKey(folder, name)
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return Object{}, fmt.Errorf("failed to upload to MinIO: %w", err)
	}

	obj := Object{
		URL:  s.publicURL + "/" + key,
		Path: "/" + key,
	}
	if isPreviewable(contentType) {
		obj.ThumbnailURL = obj.URL
	}
	return obj, nil
}

func (s *MinioStorage) FindByName(ctx context.Context, folder, name string, limit int) ([]ObjectInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var found []ObjectInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    listPrefix(folder),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list MinIO objects: %w", obj.Err)
		}
		if path.Base(obj.Key) != name {
			continue
		}
		found = append(found, ObjectInfo{NativeID: obj.Key})
		if limit > 0 && len(found) >= limit {
			// Cancelling the context stops the listing goroutine.
			return found, nil
		}
	}

	return found, nil
}

func (s *MinioStorage) RemoveByNativeID(ctx context.Context, nativeID string) error {
	if nativeID == "" {
		return errors.New("empty object key")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := s.client.RemoveObject(ctx, s.bucket, strings.TrimPrefix(nativeID, "/"), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete from MinIO: %w", err)
	}

	return nil
}

// PresignUpload signs a PUT for folder/name. MinIO does not bind the content
// type into the signature, so the client is trusted to send it.
func (s *MinioStorage) PresignUpload(ctx context.Context, name, folder, _ string, expiry time.Duration) (PresignedUpload, error) {
	key := objectKey(folder, name)
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, expiry)
	if err != nil {
		return PresignedUpload{}, fmt.Errorf("failed to presign upload: %w", err)
	}

	return PresignedUpload{
		URL:       u.String(),
		Method:    http.MethodPut,
		Key:       key,
		FileURL:   s.publicURL + "/" + key,
		ExpiresAt: time.Now().Add(expiry),
	}, nil
}
