// internal/media/s3.go
package media

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Host stores media in an S3 bucket.
// Objects are written as <publicID><ext> at the bucket root.
type S3Host struct {
	client    *s3.Client // AWS S3 client
	bucket    string     // S3 bucket name for media storage
	publicURL string     // Base URL objects are served from
}

// NewS3Host creates a new S3 media host.
// It supports both AWS S3 and S3-compatible services like MinIO.
// Parameters:
//   - endpoint: S3 service endpoint URL
//   - region: AWS region (or equivalent for S3-compatible services)
//   - bucket: S3 bucket name for media storage
//   - accessKey: Access key for authentication
//   - secretKey: Secret key for authentication
//   - publicURL: Base URL for stored objects; defaults to endpoint/bucket
//
// Returns:
//   - *S3Host: Initialized host
//   - error: Any error that occurred during initialization
func NewS3Host(endpoint, region, bucket, accessKey, secretKey, publicURL string) (*S3Host, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     accessKey,
					SecretAccessKey: secretKey,
				}, nil
			})),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true // Required for MinIO and other S3-compatible services
	})

	if publicURL == "" {
		publicURL = joinURL(endpoint, bucket)
	}

	return &S3Host{client: client, bucket: bucket, publicURL: publicURL}, nil
}

// Upload puts a local file into the bucket under a fresh key.
func (s *S3Host) Upload(ctx context.Context, localPath string) (*Asset, error) {
	file, asset, key, err := describe(localPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file.Path, err)
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentType:   aws.String(file.ContentType),
		ContentLength: aws.Int64(file.Size),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put object %s: %w", key, err)
	}

	asset.URL = joinURL(s.publicURL, key)
	return asset, nil
}

// Delete removes every object stored under publicID, whatever its extension.
func (s *S3Host) Delete(ctx context.Context, publicID string) (bool, error) {
	if publicID == "" {
		return false, nil
	}

	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(publicID),
	})
	if err != nil {
		return false, fmt.Errorf("failed to list objects for %s: %w", publicID, err)
	}

	found := false
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		if AssetKey(key) != publicID {
			continue
		}
		if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		}); err != nil {
			return found, fmt.Errorf("failed to delete object %s: %w", key, err)
		}
		found = true
	}
	return found, nil
}
