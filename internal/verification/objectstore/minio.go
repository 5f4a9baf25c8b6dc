package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"

	"talanta/pkg/platform/sentinel"
)

// MinioGateway stores documents in an S3-compatible bucket.
type MinioGateway struct {
	client *minio.Client
	bucket string
}

func NewMinioGateway(client *minio.Client, bucket string) *MinioGateway {
	return &MinioGateway{client: client, bucket: bucket}
}

// EnsureBucket creates the bucket if it does not exist yet.
func (g *MinioGateway) EnsureBucket(ctx context.Context) error {
	exists, err := g.client.BucketExists(ctx, g.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %q: %w", g.bucket, err)
	}
	if exists {
		return nil
	}
	if err := g.client.MakeBucket(ctx, g.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket %q: %w", g.bucket, err)
	}
	return nil
}

func (g *MinioGateway) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := g.client.PutObject(ctx, g.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("storing document %q: %w (%w)", key, err, sentinel.ErrUnavailable)
	}
	return nil
}

func (g *MinioGateway) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := g.client.GetObject(ctx, g.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetching document %q: %w (%w)", key, err, sentinel.ErrUnavailable)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("document %q: %w", key, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("reading document %q: %w (%w)", key, err, sentinel.ErrUnavailable)
	}
	return data, nil
}
