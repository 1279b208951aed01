package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// SchemeS3 addresses objects in an S3 compatible bucket.
const SchemeS3 = "s3"

// S3Config locates a bucket.
type S3Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// Prefix is prepended to every object key.
	Prefix string
}

// S3Store keeps objects in a single bucket.
type S3Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3Store creates a client for cfg. It does not contact the server.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// EnsureBucket creates the bucket if it does not exist.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	log.Info("Created bucket %s", s.bucket)
	return nil
}

// Put uploads data and returns its s3:// URL.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	start := time.Now()
	object := s.objectName(key)
	_, err := s.client.PutObject(ctx, s.bucket, object, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	observe(SchemeS3, "put", start, err)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", object, err)
	}
	return ObjectURL(s.bucket, object), nil
}

// Fetch downloads the object an s3:// URL points at.
func (s *S3Store) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	start := time.Now()
	data, err := s.fetch(ctx, rawURL)
	observe(SchemeS3, "fetch", start, err)
	return data, err
}

func (s *S3Store) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	bucket, object, err := ParseObjectURL(rawURL)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(object, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.mapError(object, err)
	}
	return data, nil
}

// Delete removes the object an s3:// URL points at.
func (s *S3Store) Delete(ctx context.Context, rawURL string) error {
	start := time.Now()
	bucket, object, err := ParseObjectURL(rawURL)
	if err == nil {
		err = s.client.RemoveObject(ctx, bucket, object, minio.RemoveObjectOptions{})
	}
	observe(SchemeS3, "delete", start, err)
	return err
}

func (s *S3Store) objectName(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *S3Store) mapError(object string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", ErrNotFound, object)
	}
	return fmt.Errorf("download %s: %w", object, err)
}

// ObjectURL renders the s3:// URL of object in bucket.
func ObjectURL(bucket, object string) string {
	return (&url.URL{Scheme: SchemeS3, Host: bucket, Path: "/" + object}).String()
}

// ParseObjectURL splits an s3://bucket/key URL.
func ParseObjectURL(rawURL string) (bucket, object string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse source url: %w", err)
	}
	if u.Scheme != SchemeS3 {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	object = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || object == "" {
		return "", "", fmt.Errorf("s3 url %q needs a bucket and a key", rawURL)
	}
	return u.Host, object, nil
}
