package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// uploader is the part of *manager.Uploader we use.
type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type bucketHeader interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Publisher uploads merged PDFs to a bucket under a key prefix.
type S3Publisher struct {
	up     uploader
	head   bucketHeader
	bucket string
	prefix string
}

// Options configures the S3 publisher. Region, Endpoint and the static keys are
// optional; without keys the default AWS credential chain is used.
type Options struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // S3-compatible endpoint, e.g. MinIO
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Publisher creates a publisher for opts.Bucket.
func NewS3Publisher(ctx context.Context, opts Options) (*S3Publisher, error) {
	var loadOpts []func(*awscfg.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awscfg.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	cli := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Publisher{up: manager.NewUploader(cli), head: cli, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

// Check verifies the bucket is reachable with the configured credentials.
func (p *S3Publisher) Check(ctx context.Context) error {
	if p.head == nil {
		return fmt.Errorf("s3 client not configured")
	}
	_, err := p.head.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.bucket)})
	return err
}

// Key returns the object key used for a local file.
func (p *S3Publisher) Key(localPath string) string {
	name := filepath.Base(localPath)
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}

// Publish uploads the file at localPath and returns its location.
func (p *S3Publisher) Publish(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open merged pdf: %w", err)
	}
	defer f.Close()

	key := p.Key(localPath)
	out, err := p.up.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	loc := out.Location
	if loc == "" {
		loc = fmt.Sprintf("s3://%s/%s", p.bucket, key)
	}
	log.Info().Str("bucket", p.bucket).Str("key", key).Str("location", loc).Msg("uploaded merged pdf")
	return loc, nil
}
