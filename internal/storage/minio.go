package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Bucknalla/notecard-mcp/internal/firmware"
	"github.com/Bucknalla/notecard-mcp/pkg/options"
)

// MinioProvider lists firmware objects from a private S3-compatible mirror.
// It implements the same ListingFetcher port as BucketClient by rendering
// the object keys into the marker form the listing parser scans for, so the
// resolver is indifferent to where a listing came from.
type MinioProvider struct {
	client *minio.Client
	bucket string
}

var _ firmware.ListingFetcher = (*MinioProvider)(nil)
var _ Presigner = (*MinioProvider)(nil)

// NewMinioProvider creates a provider for an S3-compatible mirror.
func NewMinioProvider(opts *options.S3Options) (*MinioProvider, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioProvider{
		client: client,
		bucket: opts.BucketName,
	}, nil
}

// CheckBucket verifies the mirror bucket exists. Called once at startup.
func (p *MinioProvider) CheckBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("firmware bucket %q does not exist", p.bucket)
	}
	return nil
}

// FetchListing lists objects under the channel prefix and renders their
// keys as marker-delimited spans.
func (p *MinioProvider) FetchListing(ctx context.Context, channel firmware.Channel) (string, error) {
	var b strings.Builder

	objects := p.client.ListObjects(ctx, p.bucket, minio.ListObjectsOptions{
		Prefix:    string(channel) + "/",
		Recursive: true,
	})

	for obj := range objects {
		if obj.Err != nil {
			return "", &firmware.FetchError{Channel: channel, Err: obj.Err}
		}
		b.WriteString("<Key>")
		b.WriteString(obj.Key)
		b.WriteString("</Key>")
	}

	return b.String(), nil
}

// PresignedURL generates a temporary signed download link for an object
// key, for mirrors whose artifacts are not publicly reachable.
func (p *MinioProvider) PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	signed, err := p.client.PresignedGetObject(ctx, p.bucket, objectKey, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned url: %w", err)
	}
	return signed.String(), nil
}
