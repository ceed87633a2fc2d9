package shocklet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3SinkConfig configures the S3 archive sink.
type S3SinkConfig struct {
	Bucket   string
	Region   string
	Endpoint string // for S3-compatible services (MinIO, etc.)
	// AccessKeyID for authentication. Prefer IAM roles, instance profiles,
	// or environment variables (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY)
	// over setting these directly.
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string // key prefix for all uploaded archives
	UsePathStyle    bool

	// MaxRetries is the attempt cap for S3 operations (default: 3).
	MaxRetries int
}

// S3ArchiveSink uploads result archives to S3-compatible object storage, so
// batch outputs survive the worker that produced them.
type S3ArchiveSink struct {
	client *s3.Client
	config S3SinkConfig
}

// NewS3ArchiveSink creates a sink for the configured bucket.
func NewS3ArchiveSink(cfg S3SinkConfig) (*S3ArchiveSink, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 sink: bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 sink: failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		})
	}

	return &S3ArchiveSink{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		config: cfg,
	}, nil
}

// Put uploads an archive under the configured prefix, retrying transient
// failures with exponential backoff.
func (s *S3ArchiveSink) Put(ctx context.Context, key string, res *Result, opts ArchiveOptions) error {
	var buf bytes.Buffer
	if err := WriteArchive(&buf, res, opts); err != nil {
		return err
	}
	data := buf.Bytes()

	return s.retry(ctx, func() error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.config.Bucket),
			Key:    aws.String(s.config.Prefix + key),
			Body:   bytes.NewReader(data),
		})
		if err != nil {
			return fmt.Errorf("s3 sink: put %s: %w", key, err)
		}
		return nil
	})
}

// Get downloads and decodes an archive.
func (s *S3ArchiveSink) Get(ctx context.Context, key string, opts ArchiveOptions) (*Result, error) {
	var data []byte
	err := s.retry(ctx, func() error {
		resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.config.Bucket),
			Key:    aws.String(s.config.Prefix + key),
		})
		if err != nil {
			return fmt.Errorf("s3 sink: get %s: %w", key, err)
		}
		defer resp.Body.Close()
		data, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ReadArchive(bytes.NewReader(data), opts)
}

// List returns the archive keys under the configured prefix.
func (s *S3ArchiveSink) List(ctx context.Context) ([]string, error) {
	var keys []string
	var token *string
	for {
		resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.config.Bucket),
			Prefix:            aws.String(s.config.Prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 sink: list: %w", err)
		}
		for _, obj := range resp.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if resp.NextContinuationToken == nil {
			return keys, nil
		}
		token = resp.NextContinuationToken
	}
}

// Delete removes an archive.
func (s *S3ArchiveSink) Delete(ctx context.Context, key string) error {
	return s.retry(ctx, func() error {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.config.Bucket),
			Key:    aws.String(s.config.Prefix + key),
		})
		return err
	})
}

func (s *S3ArchiveSink) retry(ctx context.Context, fn func() error) error {
	backoff := 100 * time.Millisecond
	var err error
	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
