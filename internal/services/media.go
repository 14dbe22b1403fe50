package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	ridecfg "ridemate/internal/config"
	"ridemate/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MediaStore uploads post attachments and returns a URL they can be read from
type MediaStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// MediaUpload is an attachment submitted with a post
type MediaUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Type derives the post media type from the content type
func (m *MediaUpload) Type() models.MediaType {
	if strings.HasPrefix(m.ContentType, "video/") {
		return models.MediaVideo
	}
	return models.MediaImage
}

// MediaKey returns the object key of an attachment
func MediaKey(userID, filename string, now time.Time) string {
	return fmt.Sprintf("posts/%s/%d-%s", userID, now.UnixMilli(), path.Base(filename))
}

// S3MediaStore stores attachments in an S3 bucket and hands out pre-signed GET URLs
type S3MediaStore struct {
	s3Client *s3.Client
	presign  *s3.PresignClient
	s3Bucket string
	urlTTL   time.Duration
}

// NewS3MediaStore creates a new S3 media store
func NewS3MediaStore(ctx context.Context, cfg ridecfg.AWSConfig) (*S3MediaStore, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3MediaStore{
		s3Client: s3Client,
		presign:  s3.NewPresignClient(s3Client),
		s3Bucket: cfg.S3Bucket,
		urlTTL:   cfg.MediaURLTTL,
	}, nil
}

// Upload stores the object under key and returns a time-limited URL for it
func (s *S3MediaStore) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload media: %w", err)
	}

	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.s3Bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.urlTTL
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	return request.URL, nil
}
