package preview

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/filestage/pkg/policy"
)

// S3API is the subset of the S3 client used by S3Allocator.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Presigner is the subset of the S3 presign client used by S3Allocator.
type S3Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Allocator stores previews in an S3 bucket and returns presigned URLs.
//
// Example usage:
//
//	client, err := preview.NewS3Client(ctx, preview.S3Options{Region: "us-east-1"})
//	alloc := preview.NewS3Allocator(client, "my-bucket", "previews/")
type S3Allocator struct {
	api       S3API
	presigner S3Presigner
	bucket    string
	prefix    string
	urlExpiry time.Duration
}

// NewS3Allocator creates an allocator using client for storage and presigning.
func NewS3Allocator(client *s3.Client, bucket, prefix string) *S3Allocator {
	return NewS3AllocatorWithAPI(client, s3.NewPresignClient(client), bucket, prefix)
}

// NewS3AllocatorWithAPI creates an allocator from explicit API and presigner
// implementations.
func NewS3AllocatorWithAPI(api S3API, presigner S3Presigner, bucket, prefix string) *S3Allocator {
	return &S3Allocator{
		api:       api,
		presigner: presigner,
		bucket:    bucket,
		prefix:    prefix,
		urlExpiry: time.Hour,
	}
}

// WithURLExpiry sets how long presigned URLs are valid.
func (a *S3Allocator) WithURLExpiry(d time.Duration) *S3Allocator {
	a.urlExpiry = d
	return a
}

// Allocate uploads f to the bucket and presigns a GET URL for it.
func (a *S3Allocator) Allocate(ctx context.Context, key string, f policy.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	// Buffered so the SDK can compute the payload checksum.
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return "", err
	}

	objectKey := a.prefix + key
	_, err = a.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(f.MIMEType),
		Metadata: map[string]string{
			"original-filename": f.Name,
			"staged-at":         time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3 put failed: %w", err)
	}

	req, err := a.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(a.urlExpiry))
	if err != nil {
		// Don't leave an object nobody can reach through a handle.
		a.api.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(a.bucket),
			Key:    aws.String(objectKey),
		})
		return "", fmt.Errorf("s3 presign failed: %w", err)
	}

	return req.URL, nil
}

// Revoke deletes the object stored under key.
func (a *S3Allocator) Revoke(ctx context.Context, key string) error {
	_, err := a.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.prefix + key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}
	return nil
}

// S3Options configures NewS3Client.
type S3Options struct {
	Region string

	// Endpoint overrides the service endpoint (MinIO, LocalStack).
	Endpoint string

	// AccessKey and SecretKey select static credentials. When empty the
	// default AWS credential chain is used.
	AccessKey string
	SecretKey string

	UsePathStyle bool
}

// NewS3Client builds an S3 client from opts.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	}), nil
}
