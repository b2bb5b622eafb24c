package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/medlearn/lms-api/pkg/config"
)

// ObjectStore wraps an S3-compatible bucket for presigned uploads and
// downloads. All round trips are bounded by the configured request timeout.
type ObjectStore struct {
	client  *s3.S3
	bucket  string
	cdnURL  string
	timeout time.Duration
}

// NewObjectStore builds an S3 session against the configured endpoint.
func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	awsCfg := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.ForcePathStyle),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create storage session: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ObjectStore{
		client:  s3.New(sess),
		bucket:  cfg.Bucket,
		cdnURL:  strings.TrimRight(cfg.CDNURL, "/"),
		timeout: timeout,
	}, nil
}

// PresignUpload returns a presigned PUT URL for the given key.
func (s *ObjectStore) PresignUpload(key, contentType string, expiry time.Duration) (string, error) {
	req, _ := s.client.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})

	url, err := req.Presign(expiry)
	if err != nil {
		return "", fmt.Errorf("presign upload for %s: %w", key, err)
	}
	return url, nil
}

// PresignDownload returns a presigned GET URL for the given key.
func (s *ObjectStore) PresignDownload(key string, expiry time.Duration) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiry)
	if err != nil {
		return "", fmt.Errorf("presign download for %s: %w", key, err)
	}
	return url, nil
}

// Head returns the size of the object, or found=false when the key does not
// exist. Other storage failures are returned as errors.
func (s *ObjectStore) Head(ctx context.Context, key string) (size int64, found bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("head object %s: %w", key, err)
	}

	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return size, true, nil
}

// PublicURL builds the non-expiring URL for publicly readable keys such as
// HLS manifests and thumbnails. Prefers the CDN host when configured.
func (s *ObjectStore) PublicURL(key string) string {
	if s.cdnURL != "" {
		return fmt.Sprintf("%s/%s", s.cdnURL, key)
	}
	endpoint := strings.TrimPrefix(aws.StringValue(s.client.Config.Endpoint), "https://")
	if endpoint == "" {
		endpoint = fmt.Sprintf("s3.%s.amazonaws.com", aws.StringValue(s.client.Config.Region))
	}
	return fmt.Sprintf("https://%s.%s/%s", s.bucket, endpoint, key)
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
