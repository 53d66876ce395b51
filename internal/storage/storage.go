// Package storage uploads files to an S3-compatible object store.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Uploader stores an object and returns the URL it is served from
type Uploader interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// MinioUploader is an Uploader backed by minio-go
type MinioUploader struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// Options configures NewMinioUploader
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string // Base URL objects are served from; defaults to the endpoint
}

// NewMinioUploader connects to the object store and makes sure the bucket exists
func NewMinioUploader(ctx context.Context, opts Options) (*MinioUploader, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: client: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("storage: create bucket: %w", err)
		}
	}
	base := opts.PublicURL
	if base == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + opts.Endpoint + "/" + opts.Bucket
	}
	return &MinioUploader{client: client, bucket: opts.Bucket, publicURL: strings.TrimRight(base, "/")}, nil
}

// Upload puts the object under key and returns its public URL
func (u *MinioUploader) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := u.client.PutObject(ctx, u.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("storage: put %s: %w", key, err)
	}
	return u.publicURL + "/" + key, nil
}

// ObjectKey builds a collision-free key under prefix that keeps the file extension
func ObjectKey(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(prefix, time.Now().UTC().Format("2006/01"), uuid.NewString()+ext)
}
