package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Bucknalla/notecard-mcp/internal/firmware"
	"github.com/Bucknalla/notecard-mcp/internal/pkg/metrics"
	"github.com/Bucknalla/notecard-mcp/pkg/options"
)

// BucketClient fetches channel-scoped listings from the public firmware
// bucket over plain HTTP. The bucket allows anonymous listing, so no
// credentials are involved; the response body is handed to the resolver as
// an opaque payload.
type BucketClient struct {
	endpoint string
	client   *http.Client
}

var _ firmware.ListingFetcher = (*BucketClient)(nil)

// NewBucketClient creates a client for the configured bucket endpoint. The
// configured timeout bounds each fetch; there are no internal retries.
func NewBucketClient(opts *options.BucketOptions) *BucketClient {
	return &BucketClient{
		endpoint: strings.TrimSuffix(opts.Endpoint, "/"),
		client:   &http.Client{Timeout: opts.Timeout},
	}
}

// FetchListing GETs the bucket listing filtered to the channel prefix.
// Transport errors and non-success statuses both surface as *FetchError.
func (c *BucketClient) FetchListing(ctx context.Context, channel firmware.Channel) (string, error) {
	timer := prometheus.NewTimer(metrics.ListingFetchDuration)
	defer timer.ObserveDuration()

	listURL := fmt.Sprintf("%s/?prefix=%s", c.endpoint, url.QueryEscape(string(channel)+"/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return "", &firmware.FetchError{Channel: channel, Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &firmware.FetchError{Channel: channel, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &firmware.FetchError{Channel: channel, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &firmware.FetchError{Channel: channel, Err: err}
	}

	return string(body), nil
}
