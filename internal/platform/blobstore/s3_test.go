package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockS3Client struct {
	objects map[string][]byte
	types   map[string]string
	putErr  error
	deleted []string
	lastPut *s3.PutObjectInput
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *mockS3Client) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	body, _ := io.ReadAll(in.Body)
	m.objects[*in.Key] = body
	m.types[*in.Key] = aws.ToString(in.ContentType)
	m.lastPut = in
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentType:   aws.String(m.types[*in.Key]),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.deleted = append(m.deleted, *in.Key)
	delete(m.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store_PutAndGet(t *testing.T) {
	mock := newMockS3()
	store := NewS3Store(mock, "medical-documents")
	ctx := context.Background()

	obj, err := store.Put(ctx, "u1/1700000000000-xray.png", "image/png", strings.NewReader("PNGDATA"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), obj.Size)
	assert.Len(t, obj.SHA256, 64)

	require.NotNil(t, mock.lastPut)
	assert.Equal(t, "medical-documents", *mock.lastPut.Bucket)
	assert.Equal(t, "*", aws.ToString(mock.lastPut.IfNoneMatch))
	assert.Equal(t, obj.SHA256, mock.lastPut.Metadata["sha256"])

	rc, got, err := store.Get(ctx, obj.Path)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "PNGDATA", string(data))
	assert.Equal(t, "image/png", got.ContentType)
	assert.Equal(t, int64(7), got.Size)
}

func TestS3Store_GetMissing(t *testing.T) {
	store := NewS3Store(newMockS3(), "b")
	_, _, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestS3Store_PutError(t *testing.T) {
	mock := newMockS3()
	mock.putErr = errors.New("connection reset")
	store := NewS3Store(mock, "b")

	_, err := store.Put(context.Background(), "k", "text/plain", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3 put k")
}

func TestS3Store_MissingPath(t *testing.T) {
	store := NewS3Store(newMockS3(), "b")
	_, err := store.Put(context.Background(), "", "text/plain", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrMissingPath)
}

func TestS3Store_Delete(t *testing.T) {
	mock := newMockS3()
	store := NewS3Store(mock, "b")
	ctx := context.Background()

	_, err := store.Put(ctx, "k", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "k"))
	assert.Equal(t, []string{"k"}, mock.deleted)
	assert.Empty(t, mock.objects)
}

func TestNewS3Client_EndpointOverride(t *testing.T) {
	client, err := NewS3Client(context.Background(), S3Config{
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	opts := client.Options()
	assert.Equal(t, "http://localhost:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "us-east-1", opts.Region)
}
