package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/tabsdata-labs/tabsdata-go/internal/domain"
	"github.com/tabsdata-labs/tabsdata-go/internal/frame"
)

const snapshotContentType = "application/json"

// S3Store persists snapshots at s3://bucket/key locations through an
// S3-compatible endpoint.
type S3Store struct {
	client *minio.Client
}

func NewS3Store(client *minio.Client) (*S3Store, error) {
	if client == nil {
		return nil, fmt.Errorf("minio client is required")
	}
	return &S3Store{client: client}, nil
}

func s3Target(location domain.Location) (bucket string, key string, err error) {
	parsed, err := url.Parse(location.Resolve())
	if err != nil {
		return "", "", fmt.Errorf("parse location: %w", err)
	}
	if parsed.Scheme != "s3" {
		return "", "", fmt.Errorf("s3 store requires s3:// location, got %q", parsed.Scheme)
	}
	bucket = parsed.Host
	key = strings.TrimPrefix(parsed.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 location must name bucket and key: %q", location.URI)
	}
	return bucket, key, nil
}

func (s *S3Store) Read(ctx context.Context, location domain.Location) (*frame.Frame, error) {
	bucket, key, err := s3Target(location)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer func() { _ = obj.Close() }()
	raw, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
	}
	return frame.Unmarshal(raw)
}

func (s *S3Store) Write(ctx context.Context, location domain.Location, f *frame.Frame) error {
	bucket, key, err := s3Target(location)
	if err != nil {
		return err
	}
	raw, err := frame.Marshal(f)
	if err != nil {
		return err
	}
	opts := minio.PutObjectOptions{ContentType: snapshotContentType}
	if _, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(raw), int64(len(raw)), opts); err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
