package s3

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ButyrinIA/yatube/internal/media"
)

type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PathStyle bool
}

type Storage struct {
	cl     *minio.Client
	bucket string
}

func New(ctx context.Context, cfg Config) (*Storage, error) {
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	cl, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, err
	}

	exists, err := cl.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := cl.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}
	return &Storage{cl: cl, bucket: cfg.Bucket}, nil
}

func (s *Storage) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	key, err := media.CleanKey(key)
	if err != nil {
		return err
	}
	_, err = s.cl.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (s *Storage) Open(ctx context.Context, key string) (io.ReadCloser, media.Object, error) {
	key, err := media.CleanKey(key)
	if err != nil {
		return nil, media.Object{}, err
	}
	info, err := s.cl.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, media.Object{}, fmt.Errorf("%s: %w", key, media.ErrNotFound)
		}
		return nil, media.Object{}, err
	}
	obj, err := s.cl.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, media.Object{}, err
	}
	return obj, media.Object{Key: key, ContentType: info.ContentType, Size: info.Size}, nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	key, err := media.CleanKey(key)
	if err != nil {
		return err
	}
	return s.cl.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}
