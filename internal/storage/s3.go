package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the configuration for an S3-compatible loot bucket.
type S3Config struct {
	Endpoint        string
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// S3Sink uploads fetched files to S3-compatible object storage.
type S3Sink struct {
	client   *s3.Client
	bucket   string
	prefix   string
	compress bool
}

// NewS3Sink creates a sink writing below prefix in cfg.Bucket.
func NewS3Sink(cfg S3Config, prefix string, compress bool) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 destination needs a bucket")
	}
	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.Region
			if cfg.AccessKeyID != "" {
				o.Credentials = credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID, cfg.SecretAccessKey, "",
				)
			}
			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		},
	}

	client := s3.New(s3.Options{}, opts...)

	return &S3Sink{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   prefix,
		compress: compress,
	}, nil
}

// Key returns the object key remotePath is uploaded to.
func (s *S3Sink) Key(remotePath string) string {
	return objectKey(s.prefix, remotePath, s.compress)
}

func (s *S3Sink) Store(ctx context.Context, content []byte, remotePath string) (string, error) {
	if s.compress {
		var err error
		if content, err = compress(content); err != nil {
			return "", err
		}
	}

	key := s.Key(remotePath)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
