// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package origin

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds the connection settings for the slow-storage bucket.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// S3Reader loads origin binaries from an S3-compatible object store.
type S3Reader struct {
	client *minio.Client
	bucket string
}

// NewS3Reader creates a reader for the configured bucket.
func NewS3Reader(cfg S3Config) (*S3Reader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &S3Reader{client: client, bucket: cfg.Bucket}, nil
}

// LoadFromOrigin streams the object at location. Locations may carry an
// "s3://bucket/key" prefix (from ingested metadata) or be a bare key in the
// configured bucket.
func (r *S3Reader) LoadFromOrigin(ctx context.Context, location string) (io.ReadCloser, int64, error) {
	bucket, key := r.resolve(location)

	obj, err := r.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}

	// Stat forces the request so absent objects fail here, not on first read.
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil, 0, fmt.Errorf("%s/%s: %w", bucket, key, ErrNotFound)
		}
		return nil, 0, fmt.Errorf("stat object %s/%s: %w", bucket, key, err)
	}

	length := info.Size
	if length <= 0 {
		length = SizeUnknown
	}
	return obj, length, nil
}

// resolve splits an s3:// location into bucket and key, defaulting to the
// configured bucket for bare keys.
func (r *S3Reader) resolve(location string) (bucket, key string) {
	trimmed, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return r.bucket, strings.TrimPrefix(location, "/")
	}
	bucket, key, found := strings.Cut(trimmed, "/")
	if !found || bucket == "" {
		return r.bucket, trimmed
	}
	return bucket, key
}
