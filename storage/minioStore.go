package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"meriawaaz-be/config"
)

// MinioStore is a BlobStore backed by MinIO or any S3 compatible service.
type MinioStore struct {
	client     *minio.Client
	bucket     string
	publicURL  string
	presignTTL time.Duration
	log        *zap.SugaredLogger
}

// NewMinioStore connects to the configured endpoint and creates the bucket
// if it does not exist yet.
func NewMinioStore(ctx context.Context, cfg config.Storage, log *zap.SugaredLogger) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", cfg.Bucket, err)
		}
		log.Infow("created storage bucket", "bucket", cfg.Bucket)
	}

	return &MinioStore{
		client:     client,
		bucket:     cfg.Bucket,
		publicURL:  strings.TrimRight(cfg.PublicURL, "/"),
		presignTTL: cfg.PresignTTL,
		log:        log,
	}, nil
}

func (s *MinioStore) Put(ctx context.Context, r io.Reader, size int64, name, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"uploaded-at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	s.log.Infow("file uploaded", "object", name, "size", size)
	return s.objectURL(ctx, name)
}

func (s *MinioStore) Delete(ctx context.Context, rawURL string) error {
	name, err := objectNameFromURL(rawURL, s.bucket)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	s.log.Infow("file deleted", "object", name)
	return nil
}

func (s *MinioStore) ListByPrefix(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, info.Err)
		}
		u, err := s.objectURL(ctx, info.Key)
		if err != nil {
			return nil, err
		}
		objects = append(objects, Object{
			Name:         info.Key,
			URL:          u,
			Size:         info.Size,
			ContentType:  info.ContentType,
			LastModified: info.LastModified,
		})
	}
	return objects, nil
}

func (s *MinioStore) objectURL(ctx context.Context, name string) (string, error) {
	if s.publicURL != "" {
		return publicObjectURL(s.publicURL, s.bucket, name), nil
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, name, s.presignTTL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", name, err)
	}
	return u.String(), nil
}

func publicObjectURL(base, bucket, name string) string {
	return base + "/" + bucket + "/" + name
}

// objectNameFromURL accepts both public and presigned URLs. Both use
// path-style addressing: /<bucket>/<object>.
func objectNameFromURL(rawURL, bucket string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrForeignURL, err)
	}
	p := strings.TrimPrefix(u.Path, "/")
	name, ok := strings.CutPrefix(p, bucket+"/")
	if !ok || name == "" {
		// Public URLs may sit behind a proxy prefix.
		idx := strings.Index(p, "/"+bucket+"/")
		if idx < 0 {
			return "", ErrForeignURL
		}
		name = p[idx+len(bucket)+2:]
	}
	if name == "" {
		return "", ErrForeignURL
	}
	return name, nil
}
