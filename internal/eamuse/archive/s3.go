package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures the object-storage sink. BaseEndpoint supports
// S3-compatible backends like MinIO.
type S3Options struct {
	User         string
	Password     string
	Bucket       string
	Region       string
	BaseEndpoint string
}

// S3Sink stores documents as objects under traffic/yyyy/m/d/.
type S3Sink struct {
	client *s3.Client
	bucket string
}

// NewS3Sink builds the S3 client from static credentials.
func NewS3Sink(ctx context.Context, opts S3Options) (*S3Sink, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.User, opts.Password, "")))
	if err != nil {
		return nil, fmt.Errorf("archive: s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Sink{client: client, bucket: opts.Bucket}, nil
}

func (s *S3Sink) Store(ctx context.Context, uid string, dir Direction, data []byte) error {
	now := time.Now()
	key := fmt.Sprintf("traffic/%d/%d/%d/%s", now.Year(), now.Month(), now.Day(),
		objectName(uid, dir, now))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("archive: put %s: %w", key, err)
	}
	return nil
}
