package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"catspot/internal/config"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	putKey      string
	putBody     []byte
	putType     string
	deletedKeys []string
	err         error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.putKey = *in.Key
	f.putType = *in.ContentType
	f.putBody, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deletedKeys = append(f.deletedKeys, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestPutReturnsPublicURL(t *testing.T) {
	api := &fakeS3{}
	store := newObjectStore(api, "Images", "https://cdn.example.com/")

	url, err := store.Put(context.Background(), "u1/a.jpg", []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/Images/u1/a.jpg", url)
	assert.Equal(t, "u1/a.jpg", api.putKey)
	assert.Equal(t, "image/jpeg", api.putType)
	assert.Equal(t, []byte("jpeg"), api.putBody)
}

func TestPutWrapsError(t *testing.T) {
	boom := errors.New("boom")
	store := newObjectStore(&fakeS3{err: boom}, "Images", "http://minio:9000")

	_, err := store.Put(context.Background(), "k.jpg", nil, "image/jpeg")
	assert.ErrorIs(t, err, boom)
}

func TestRemove(t *testing.T) {
	api := &fakeS3{}
	store := newObjectStore(api, "Images", "http://minio:9000")

	require.NoError(t, store.Remove(context.Background(), "http://minio:9000/Images/u1/a.jpg"))
	assert.Equal(t, []string{"u1/a.jpg"}, api.deletedKeys)

	err := store.Remove(context.Background(), "https://elsewhere.example.com/cat.jpg")
	assert.ErrorIs(t, err, ErrForeignURL)
	assert.Len(t, api.deletedKeys, 1)
}

func TestObjectPathFromURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		url    string
		want   string
		wantOK bool
	}{
		{"Storage URL", "https://x.supabase.co/storage/v1/object/public/Images/u/p.jpg", "u/p.jpg", true},
		{"Path Style", "http://localhost:9000/Images/a.jpg", "a.jpg", true},
		{"No Bucket", "https://example.com/a.jpg", "", false},
		{"Bucket Only", "https://example.com/Images/", "", false},
		{"Empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ObjectPathFromURL(tt.url, "Images")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPublicBaseURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://cdn.example.com", publicBaseURL(&config.Config{S3PublicBaseURL: "https://cdn.example.com", S3Endpoint: "http://minio:9000"}))
	assert.Equal(t, "http://minio:9000", publicBaseURL(&config.Config{S3Endpoint: "http://minio:9000"}))
	assert.Equal(t, "https://s3.ap-northeast-1.amazonaws.com", publicBaseURL(&config.Config{S3Region: "ap-northeast-1"}))
}
