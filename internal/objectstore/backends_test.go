package objectstore

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3_Upload(t *testing.T) {
	fake := &fakeS3{}
	store := newS3WithClient(fake, S3Config{Bucket: "boards", BaseEndpoint: "http://localhost:9000/"})

	url, err := store.Upload(context.Background(), "users/u/mood-boards/b/1-a.jpg", []byte("jpeg"), "image/jpeg")

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/boards/users/u/mood-boards/b/1-a.jpg", url)
	assert.Equal(t, "boards", *fake.input.Bucket)
	assert.Equal(t, "users/u/mood-boards/b/1-a.jpg", *fake.input.Key)
	assert.Equal(t, "image/jpeg", *fake.input.ContentType)
	assert.Equal(t, int64(4), *fake.input.ContentLength)
	assert.Equal(t, []byte("jpeg"), fake.body)
}

func TestS3_PublicURLVariants(t *testing.T) {
	aws := newS3WithClient(&fakeS3{}, S3Config{Bucket: "boards", Region: "eu-west-1"})
	assert.Equal(t, "https://boards.s3.eu-west-1.amazonaws.com", aws.publicBaseURL)

	cdn := newS3WithClient(&fakeS3{}, S3Config{Bucket: "boards", PublicBaseURL: "https://cdn.example.com/"})
	assert.Equal(t, "https://cdn.example.com", cdn.publicBaseURL)
}

func TestS3_UploadError(t *testing.T) {
	store := newS3WithClient(&fakeS3{err: errors.New("denied")}, S3Config{Bucket: "boards"})

	_, err := store.Upload(context.Background(), "k", []byte("x"), "image/png")

	assert.ErrorContains(t, err, "denied")
}

type fakeMinio struct {
	bucket, object string
	size           int64
	opts           minio.PutObjectOptions
	err            error
}

func (f *fakeMinio) PutObject(_ context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.bucket, f.object, f.size, f.opts = bucketName, objectName, objectSize, opts
	_, _ = io.Copy(io.Discard, reader)
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: objectSize}, f.err
}

func TestMinio_Upload(t *testing.T) {
	fake := &fakeMinio{}
	store := newMinioWithClient(fake, MinioConfig{Endpoint: "minio.local:9000", Bucket: "boards", UseSSL: true})

	url, err := store.Upload(context.Background(), "users/u/x.png", []byte("png!"), "image/png")

	require.NoError(t, err)
	assert.Equal(t, "https://minio.local:9000/boards/users/u/x.png", url)
	assert.Equal(t, "boards", fake.bucket)
	assert.Equal(t, "users/u/x.png", fake.object)
	assert.Equal(t, int64(4), fake.size)
	assert.Equal(t, "image/png", fake.opts.ContentType)
}

func TestMinio_UploadError(t *testing.T) {
	store := newMinioWithClient(&fakeMinio{err: errors.New("no such bucket")}, MinioConfig{Endpoint: "m:9000", Bucket: "b"})

	_, err := store.Upload(context.Background(), "k", []byte("x"), "image/png")

	assert.ErrorContains(t, err, "no such bucket")
}
