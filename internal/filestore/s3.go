package filestore

import (
	"bytes"
	"context"
	"io"

	"github.com/docvault/docnode/internal/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// S3Config holds connection settings for an S3-compatible object store.
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	UseSSL          bool
}

// S3Store persists section blobs in an S3-compatible bucket via the minio
// SDK. Object keys map one-to-one to storage locations.
type S3Store struct {
	client *minio.Client
	bucket string
	region string
	logger *zap.Logger
}

// NewS3Store creates the client and ensures the bucket exists.
func NewS3Store(cfg *S3Config, logger *zap.Logger) (*S3Store, error) {
	if cfg.Endpoint == "" {
		return nil, errors.FileStoreFailed("s3 endpoint is required", nil)
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.FileStoreFailed("s3 credentials are required", nil)
	}
	if cfg.Bucket == "" {
		return nil, errors.FileStoreFailed("s3 bucket is required", nil)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.FileStoreFailed("failed to create s3 client", err)
	}

	s := &S3Store{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		logger: logger,
	}

	if err := s.ensureBucket(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.FileStoreFailed("failed to check bucket", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return errors.StorageDirFailed(s.bucket, err)
	}
	s.logger.Info("Created bucket", zap.String("bucket", s.bucket))
	return nil
}

// Store writes the blob under the given key.
func (s *S3Store) Store(ctx context.Context, key string, data []byte) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		s.logger.Error("Unable to store object",
			zap.String("bucket", s.bucket),
			zap.String("key", key),
			zap.Error(err))
		return errors.FileStoreFailed("unable to store object", err)
	}
	s.logger.Debug("Stored object", zap.String("key", key))
	return nil
}

// Get reads the blob back.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.FileStoreFailed("unable to get object", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		s.logger.Error("Unable to read object",
			zap.String("bucket", s.bucket),
			zap.String("key", key),
			zap.Error(err))
		return nil, errors.FileStoreFailed("unable to read object", err)
	}
	return data, nil
}

// Delete removes the blob. S3 removal of a missing key succeeds, which keeps
// the call idempotent for sweep retries.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		s.logger.Error("Unable to remove object",
			zap.String("bucket", s.bucket),
			zap.String("key", key),
			zap.Error(err))
		return errors.FileStoreFailed("unable to remove object", err)
	}
	s.logger.Info("Deleted object", zap.String("key", key))
	return nil
}

// DeleteIfPresent removes the blob if it exists and reports whether anything
// was removed.
func (s *S3Store) DeleteIfPresent(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			s.logger.Info("Object not found, nothing to delete", zap.String("key", key))
			return false, nil
		}
		return false, errors.FileStoreFailed("unable to stat object", err)
	}

	if err := s.Delete(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}
