package urlstrategy

import (
	"context"
	"fmt"
	"strings"
)

// URLStrategy defines the interface for durable public URL construction.
// The gateway builds URLs from the object key it just wrote; no existence
// check is performed against the backend.
type URLStrategy interface {
	// PublicURL returns a publicly resolvable URL for an object key.
	PublicURL(ctx context.Context, objectKey string) (string, error)
}

// S3PublicStrategy builds virtual-hosted-style S3 URLs:
// https://{bucket}.s3.{region}.amazonaws.com/{key}
type S3PublicStrategy struct {
	Bucket string
	Region string
}

// NewS3PublicStrategy creates a strategy for a public S3 bucket.
func NewS3PublicStrategy(bucket, region string) *S3PublicStrategy {
	return &S3PublicStrategy{Bucket: bucket, Region: region}
}

func (s *S3PublicStrategy) PublicURL(ctx context.Context, objectKey string) (string, error) {
	if s.Bucket == "" || s.Region == "" {
		return "", fmt.Errorf("bucket and region are required")
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.Bucket, s.Region, objectKey), nil
}

// PrefixStrategy prepends a fixed base URL to the object key. Suitable for
// CDNs, MinIO public endpoints and filesystem mirrors served over HTTP.
type PrefixStrategy struct {
	BaseURL string
}

// NewPrefixStrategy creates a strategy rooted at baseURL.
func NewPrefixStrategy(baseURL string) *PrefixStrategy {
	return &PrefixStrategy{BaseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *PrefixStrategy) PublicURL(ctx context.Context, objectKey string) (string, error) {
	if s.BaseURL == "" {
		return "", fmt.Errorf("base URL not configured")
	}
	return fmt.Sprintf("%s/%s", s.BaseURL, objectKey), nil
}
