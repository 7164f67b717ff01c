package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}
)

// S3Options holds the connection settings for the archive bucket
// (MinIO or any S3-compatible endpoint).
type S3Options struct {
	Region       string
	BaseEndpoint string
	RootUser     string
	RootPassword string
	Bucket       string
}

// Archive uploads sealed artifacts to an S3 bucket and hands out
// presigned download links. Uploads are retried with exponential
// backoff before the caller is told the archive step failed.
type Archive struct {
	bucket  string
	client  *s3.Client
	presign *s3.PresignClient
}

func NewArchive(ctx context.Context, opts S3Options) (*Archive, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.RootUser,
			opts.RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.BaseEndpoint)
		o.UsePathStyle = true
	})

	return &Archive{
		bucket:  opts.Bucket,
		client:  client,
		presign: newS3PresignClient(client),
	}, nil
}

// ArchiveKey builds a date-partitioned object key for an envelope artifact.
func ArchiveKey(envelopeID, name string) string {
	d := time.Now()
	return fmt.Sprintf("envelopes/%d/%02d/%02d/%s/%s_%s", d.Year(), d.Month(), d.Day(), envelopeID, uuid.New().String()[:8], sanitize(name))
}

// Store uploads the artifact under the given key, retrying transient
// failures with exponential backoff. The body must be seekable so a
// retried attempt can restart the upload from the beginning.
func (a *Archive) Store(ctx context.Context, key string, r io.ReadSeeker) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return err
		}
		_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: &a.bucket,
			Key:    &key,
			Body:   r,
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("archive put %s: %w", key, err)
	}
	return nil
}

// PresignDownload returns a time-limited GET URL for an archived artifact.
func (a *Archive) PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := a.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &a.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}
