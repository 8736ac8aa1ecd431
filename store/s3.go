package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/casevault/casevault/internal/logging"
)

// ObjectStorage is the gateway to the evidence bucket. Clients upload and
// download through presigned URLs; the service itself only probes, signs and
// deletes.
type ObjectStorage interface {
	PresignUpload(ctx context.Context, key string, contentType string, ttl time.Duration) (string, error)
	PresignDownload(ctx context.Context, key string, ttl time.Duration, responseFilename string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

type S3ObjectStorageImpl struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucketName string

	logger logging.Logger
}

func NewS3ObjectStorageImpl(client *s3.Client, bucketName string, l logging.Logger) *S3ObjectStorageImpl {
	return &S3ObjectStorageImpl{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucketName: bucketName,
		logger:     l,
	}
}

// PresignUpload signs a PUT scoped to exactly this key and content type. The
// client cannot use the URL to write anywhere else or lie about the type.
func (s *S3ObjectStorageImpl) PresignUpload(ctx context.Context, key string, contentType string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key cannot be empty")
	}

	presigned, err := s.presigner.PresignPutObject(
		ctx,
		&s3.PutObjectInput{
			Bucket:      aws.String(s.bucketName),
			Key:         aws.String(key),
			ContentType: aws.String(contentType),
		},
		s3.WithPresignExpires(ttl),
	)
	if err != nil {
		s.logger.Error("failed to presign upload", "key", key, "error", err)
		return "", fmt.Errorf("failed to presign upload: %w", err)
	}

	return presigned.URL, nil
}

func (s *S3ObjectStorageImpl) PresignDownload(ctx context.Context, key string, ttl time.Duration, responseFilename string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key cannot be empty")
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}
	if responseFilename != "" {
		input.ResponseContentDisposition = aws.String(
			fmt.Sprintf("attachment; filename=%q", responseFilename),
		)
	}

	presigned, err := s.presigner.PresignGetObject(ctx, input, s3.WithPresignExpires(ttl))
	if err != nil {
		s.logger.Error("failed to presign download", "key", key, "error", err)
		return "", fmt.Errorf("failed to presign download: %w", err)
	}

	return presigned.URL, nil
}

func (s *S3ObjectStorageImpl) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, fmt.Errorf("key cannot be empty")
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})

	if err == nil {
		s.logger.Debug("object exists", "key", key)
		return true, nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		s.logger.Debug("object does not exist", "key", key)
		return false, nil
	}

	s.logger.Error("failed to check object existence", "key", key, "error", err)
	return false, fmt.Errorf("failed to check object existence: %w", err)
}

// Delete removes the object. Deleting a key that was never uploaded is not
// an error; S3 treats it as a no-op and so do we.
func (s *S3ObjectStorageImpl) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil
		}
		s.logger.Error("failed to delete object", "key", key, "error", err)
		return fmt.Errorf("failed to delete object: %w", err)
	}

	s.logger.Debug("object deleted", "key", key)
	return nil
}
