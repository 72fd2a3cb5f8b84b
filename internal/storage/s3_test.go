package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	bucket, key, contentType string
	body                     []byte
	location                 string
	err                      error
}

func (f *fakeUploader) Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	f.contentType = aws.ToString(in.ContentType)
	f.body, _ = io.ReadAll(in.Body)
	return &manager.UploadOutput{Location: f.location}, nil
}

func TestKey(t *testing.T) {
	assert.Equal(t, "merged/out.pdf", (&S3Publisher{prefix: "merged"}).Key("/tmp/x/out.pdf"))
	assert.Equal(t, "out.pdf", (&S3Publisher{}).Key("out.pdf"))
}

func TestPublishUploadsFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.7"), 0o644))
	up := &fakeUploader{}
	pub := &S3Publisher{up: up, bucket: "docs", prefix: "merged"}

	loc, err := pub.Publish(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "s3://docs/merged/out.pdf", loc)
	assert.Equal(t, "docs", up.bucket)
	assert.Equal(t, "merged/out.pdf", up.key)
	assert.Equal(t, "application/pdf", up.contentType)
	assert.Equal(t, "%PDF-1.7", string(up.body))

	up.location = "https://docs.s3.amazonaws.com/merged/out.pdf"
	loc, err = pub.Publish(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, up.location, loc)
}

func TestPublishErrors(t *testing.T) {
	pub := &S3Publisher{up: &fakeUploader{err: errors.New("denied")}, bucket: "docs"}
	_, err := pub.Publish(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)

	p := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	_, err = pub.Publish(context.Background(), p)
	assert.ErrorContains(t, err, "denied")
}

func TestNewS3PublisherStaticKeys(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "none"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "none"))
	pub, err := NewS3Publisher(context.Background(), Options{
		Bucket:          "docs",
		Prefix:          "merged",
		Region:          "eu-central-1",
		Endpoint:        "http://127.0.0.1:9000",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "docs", pub.bucket)
	assert.Equal(t, "merged/a.pdf", pub.Key("a.pdf"))
}

type fakeHeader struct {
	err    error
	bucket string
}

func (f *fakeHeader) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.bucket = aws.ToString(in.Bucket)
	return &s3.HeadBucketOutput{}, f.err
}

func TestCheck(t *testing.T) {
	h := &fakeHeader{}
	pub := &S3Publisher{head: h, bucket: "docs"}
	require.NoError(t, pub.Check(context.Background()))
	assert.Equal(t, "docs", h.bucket)

	h.err = errors.New("forbidden")
	assert.Error(t, pub.Check(context.Background()))
	assert.Error(t, (&S3Publisher{}).Check(context.Background()))
}
