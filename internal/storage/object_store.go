package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"civicsnap/internal/config"
)

type UploadInput struct {
	Body        io.Reader
	Size        int64
	Ext         string
	ContentType string
}

type Object struct {
	Bucket string
	Key    string
	URL    string
}

type ObjectStore struct {
	client *minio.Client
	cfg    config.StorageConfig
	now    func() time.Time
}

func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &ObjectStore{
		client: client,
		cfg:    cfg,
		now:    time.Now,
	}, nil
}

// EnsureBucket creates the bucket if needed and, when configured, grants
// anonymous read so stored URLs resolve publicly.
func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.cfg.Bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.cfg.Bucket, err)
		}
	}
	if s.cfg.PublicRead {
		if err := s.client.SetBucketPolicy(ctx, s.cfg.Bucket, publicReadPolicy(s.cfg.Bucket)); err != nil {
			return fmt.Errorf("set bucket policy %s: %w", s.cfg.Bucket, err)
		}
	}
	return nil
}

// Upload stores the body under a fresh unique key that keeps the original
// extension and returns where it can be fetched.
func (s *ObjectStore) Upload(ctx context.Context, input UploadInput) (Object, error) {
	if input.Body == nil {
		return Object{}, errors.New("empty upload body")
	}

	key := ObjectKey(s.now(), input.Ext)
	contentType := input.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := s.client.PutObject(ctx, s.cfg.Bucket, key, input.Body, input.Size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return Object{}, fmt.Errorf("put object: %w", err)
	}

	return Object{
		Bucket: s.cfg.Bucket,
		Key:    key,
		URL:    PublicURL(s.cfg, key),
	}, nil
}

func (s *ObjectStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

func (s *ObjectStore) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %s missing", s.cfg.Bucket)
	}
	return nil
}

// ObjectKey builds "YYYY/MM/DD/<uuid><ext>".
func ObjectKey(now time.Time, ext string) string {
	datePrefix := now.UTC().Format("2006/01/02")
	return path.Join(datePrefix, uuid.NewString()+ext)
}

func PublicURL(cfg config.StorageConfig, key string) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimSuffix(cfg.PublicBaseURL, "/") + "/" + key
	}

	base := strings.TrimSuffix(cfg.Endpoint, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		scheme := "http://"
		if cfg.UseSSL {
			scheme = "https://"
		}
		base = scheme + base
	}
	return fmt.Sprintf("%s/%s/%s", base, cfg.Bucket, key)
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}
