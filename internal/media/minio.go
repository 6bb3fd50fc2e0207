// internal/media/minio.go
package media

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOHost stores media in a MinIO bucket with the same layout as S3Host.
type MinIOHost struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinIOHost connects to MinIO and creates the bucket if it is missing.
func NewMinIOHost(ctx context.Context, endpoint, region, bucket, accessKey, secretKey, publicURL string, useSSL bool) (*MinIOHost, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}

	if publicURL == "" {
		scheme := "http://"
		if useSSL {
			scheme = "https://"
		}
		publicURL = joinURL(scheme+endpoint, bucket)
	}

	return &MinIOHost{client: client, bucket: bucket, publicURL: publicURL}, nil
}

func (m *MinIOHost) Upload(ctx context.Context, localPath string) (*Asset, error) {
	file, asset, key, err := describe(localPath)
	if err != nil {
		return nil, err
	}

	if _, err := m.client.FPutObject(ctx, m.bucket, key, file.Path, minio.PutObjectOptions{
		ContentType: file.ContentType,
	}); err != nil {
		return nil, fmt.Errorf("failed to put object %s: %w", key, err)
	}

	asset.URL = joinURL(m.publicURL, key)
	return asset, nil
}

func (m *MinIOHost) Delete(ctx context.Context, publicID string) (bool, error) {
	if publicID == "" {
		return false, nil
	}

	// Cancelling stops the listing goroutine when we return mid-stream.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	found := false
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: publicID, Recursive: true}) {
		if obj.Err != nil {
			return found, fmt.Errorf("failed to list objects for %s: %w", publicID, obj.Err)
		}
		if AssetKey(obj.Key) != publicID {
			continue
		}
		if err := m.client.RemoveObject(ctx, m.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return found, fmt.Errorf("failed to remove object %s: %w", obj.Key, err)
		}
		found = true
	}
	return found, nil
}
