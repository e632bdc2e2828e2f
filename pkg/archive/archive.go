// Package archive stores rendered execution results in S3-compatible object storage.
package archive

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nnnkkk7/sqlgateway/pkg/config"
)

// Archiver stores the payload of a successful execution.
type Archiver interface {
	Archive(ctx context.Context, executionID, payload string) error
}

const contentType = "text/plain; charset=utf-8"

type client interface {
	Put(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error
	BucketExists(ctx context.Context, bucket string) (bool, error)
	CreateBucket(ctx context.Context, bucket, region string) error
}

// S3Archiver writes payloads to <prefix>/<executionID>/<unix-nanos>.txt.
type S3Archiver struct {
	client client
	bucket string
	prefix string
	now    func() time.Time
}

// New connects to the configured endpoint and, when enabled, creates the bucket.
func New(ctx context.Context, cfg config.ArchiveConfig) (*S3Archiver, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("archive endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}

	mc, err := newMinioClient(cfg)
	if err != nil {
		return nil, err
	}
	a := newArchiver(mc, cfg.Bucket, cfg.Prefix)
	if cfg.AutoCreateBucket {
		if err := a.ensureBucket(ctx, strings.TrimSpace(cfg.Region)); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func newArchiver(c client, bucket, prefix string) *S3Archiver {
	return &S3Archiver{
		client: c,
		bucket: strings.TrimSpace(bucket),
		prefix: cleanPrefix(prefix),
		now:    time.Now,
	}
}

// Archive uploads payload under a key derived from executionID.
func (a *S3Archiver) Archive(ctx context.Context, executionID, payload string) error {
	key, err := a.objectKey(executionID)
	if err != nil {
		return err
	}
	if err := a.client.Put(ctx, a.bucket, key, strings.NewReader(payload), int64(len(payload)), contentType); err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

func (a *S3Archiver) objectKey(executionID string) (string, error) {
	id := strings.TrimSpace(executionID)
	if id == "" || strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return "", fmt.Errorf("invalid execution id for archive key: %q", executionID)
	}
	name := strconv.FormatInt(a.now().UnixNano(), 10) + ".txt"
	if a.prefix == "" {
		return path.Join(id, name), nil
	}
	return path.Join(a.prefix, id, name), nil
}

func (a *S3Archiver) ensureBucket(ctx context.Context, region string) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.CreateBucket(ctx, a.bucket, region); err != nil {
		return fmt.Errorf("create bucket %q: %w", a.bucket, err)
	}
	return nil
}

func cleanPrefix(prefix string) string {
	prefix = strings.TrimSpace(strings.Trim(prefix, "/"))
	if prefix == "" {
		return ""
	}
	prefix = path.Clean(prefix)
	if prefix == "." {
		return ""
	}
	return prefix
}

func newMinioClient(cfg config.ArchiveConfig) (*minioClient, error) {
	endpoint, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &minioClient{client: mc}, nil
}

// parseEndpoint accepts "host:port" or a URL; an https URL forces TLS.
func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("endpoint is required")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return raw, useSSL, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint URL: %w", err)
	}
	if parsed.Host == "" {
		return "", false, fmt.Errorf("endpoint host is required")
	}
	if parsed.Scheme == "https" {
		return parsed.Host, true, nil
	}
	return parsed.Host, useSSL, nil
}

type minioClient struct {
	client *minio.Client
}

func (m *minioClient) Put(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (m *minioClient) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return m.client.BucketExists(ctx, bucket)
}

func (m *minioClient) CreateBucket(ctx context.Context, bucket, region string) error {
	return m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}
