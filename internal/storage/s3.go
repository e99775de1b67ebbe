package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

const minMultipartSize = 12 << 20

type S3Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the AWS endpoint, e.g. for minio
	Endpoint string
	// R2AccountID points the client at Cloudflare R2 instead of AWS
	R2AccountID string
	// PublicURL is where the bucket is readable from, files are linked below it
	PublicURL string
}

type S3 struct {
	C         *s3.Client
	Bucket    *string
	publicURL string
	uploader  *manager.Uploader
}

func NewS3(ctx context.Context, c S3Config) (*S3, error) {
	if c.Bucket == "" {
		return nil, errors.New("bucket can't be empty")
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKeyID,
			c.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config, %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		switch {
		case c.R2AccountID != "":
			o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.R2AccountID))
			o.Region = "auto"
		case c.Endpoint != "":
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
			o.Region = c.Region
		default:
			o.Region = c.Region
		}
	})

	bucket := aws.String(c.Bucket)

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", c.Bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	publicURL := c.PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.Bucket, c.Region)
	}

	return &S3{
		C:         client,
		Bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.Concurrency = 5
			u.PartSize = 6 << 20
		}),
	}, nil
}

func (s *S3) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket:       s.Bucket,
		Key:          aws.String(key),
		Body:         r,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	}

	var err error
	if size > minMultipartSize {
		_, err = s.uploader.Upload(ctx, in)
	} else {
		in.ContentLength = aws.Int64(size)
		_, err = s.C.PutObject(ctx, in)
	}
	if err != nil {
		return fmt.Errorf("failed to upload object, %w", err)
	}

	return nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.C.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: s.Bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object, %w", err)
	}

	return nil
}

func (s *S3) URL(key string) string {
	return s.publicURL + "/" + key
}
