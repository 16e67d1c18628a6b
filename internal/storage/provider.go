// Package storage provides the bucket-listing fetchers behind the firmware
// resolver: an anonymous HTTP client for the public bucket and a minio-based
// provider for private S3-compatible mirrors.
package storage

import (
	"context"
	"time"
)

// Presigner generates temporary signed download URLs. Only the minio
// provider implements it; the public bucket serves artifacts directly off
// the fixed artifact host.
type Presigner interface {
	PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}
