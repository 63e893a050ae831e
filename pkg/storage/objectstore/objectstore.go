package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config contains the information required to talk to an object store.
type Config struct {
	Provider  string
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Client is the subset of object storage fpingest needs to archive dumps.
type Client interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, metadata map[string]string) error
	Close() error
}

// New creates an object store client. Provider "none" (or empty) returns a
// client that discards writes.
func New(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "none":
		return Discard{}, nil
	case "minio", "s3":
		return newMinioClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported object store provider: %s", cfg.Provider)
	}
}

// Enabled reports whether c actually stores anything.
func Enabled(c Client) bool {
	_, discard := c.(Discard)
	return c != nil && !discard
}

// Discard drops every object.
type Discard struct{}

func (Discard) Put(ctx context.Context, key string, reader io.Reader, size int64, metadata map[string]string) error {
	return nil
}

func (Discard) Close() error { return nil }

type minioClient struct {
	client *minio.Client
	bucket string
}

func newMinioClient(cfg Config) (Client, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	return &minioClient{client: cl, bucket: cfg.Bucket}, nil
}

func (m *minioClient) Put(ctx context.Context, key string, reader io.Reader, size int64, metadata map[string]string) error {
	opts := minio.PutObjectOptions{
		ContentType:  "application/json",
		UserMetadata: metadata,
	}
	if _, err := m.client.PutObject(ctx, m.bucket, key, reader, size, opts); err != nil {
		return fmt.Errorf("put %s/%s: %w", m.bucket, key, err)
	}
	return nil
}

func (m *minioClient) Close() error {
	return nil
}
