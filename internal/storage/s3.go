// Package storage uploads post photos to an S3-compatible bucket and removes
// them again when a post is deleted.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"catspot/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// objectAPI is the subset of *s3.Client used here.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// ObjectStore stores objects in one bucket and hands out public URLs of the
// form <base>/<bucket>/<key>.
type ObjectStore struct {
	api     objectAPI
	bucket  string
	baseURL string
}

// NewObjectStore builds an S3 client from cfg. A custom endpoint switches to
// path-style addressing so MinIO and other S3-compatible stores work.
func NewObjectStore(ctx context.Context, cfg *config.Config) (*ObjectStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
	})

	return newObjectStore(client, cfg.S3Bucket, publicBaseURL(cfg)), nil
}

func newObjectStore(api objectAPI, bucket, baseURL string) *ObjectStore {
	return &ObjectStore{api: api, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

func publicBaseURL(cfg *config.Config) string {
	switch {
	case cfg.S3PublicBaseURL != "":
		return cfg.S3PublicBaseURL
	case cfg.S3Endpoint != "":
		return cfg.S3Endpoint
	default:
		return fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.S3Region)
	}
}

// Put uploads body under key and returns its public URL.
func (s *ObjectStore) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return s.URL(key), nil
}

// URL returns the public URL of key.
func (s *ObjectStore) URL(key string) string {
	return s.baseURL + "/" + s.bucket + "/" + key
}

// ErrForeignURL is returned by Remove for URLs that do not point into the bucket.
var ErrForeignURL = errors.New("url does not belong to the bucket")

// Remove deletes the object a public URL points to.
func (s *ObjectStore) Remove(ctx context.Context, publicURL string) error {
	key, ok := ObjectPathFromURL(publicURL, s.bucket)
	if !ok {
		return ErrForeignURL
	}
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// ObjectPathFromURL returns the part of publicURL after "<bucket>/".
func ObjectPathFromURL(publicURL, bucket string) (string, bool) {
	_, key, found := strings.Cut(publicURL, bucket+"/")
	if !found || key == "" {
		return "", false
	}
	return key, true
}
