package options

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*BucketOptions)(nil)

// BucketOptions configures access to the public firmware bucket and the host
// used to construct artifact download URLs.
type BucketOptions struct {
	// Endpoint is the base URL of the bucket's HTTP listing endpoint.
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`

	// ArtifactHost is the public host joined with a selected object key to
	// form the download URL. Defaults to the listing endpoint.
	ArtifactHost string `json:"artifact-host" mapstructure:"artifact-host"`

	// Timeout bounds a single listing fetch.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MappingFile is an optional YAML file overriding the built-in
	// hardware-type classification table. Watched for changes when the hub
	// is running.
	MappingFile string `json:"mapping-file" mapstructure:"mapping-file"`
}

// NewBucketOptions creates a BucketOptions object with default parameters.
func NewBucketOptions() *BucketOptions {
	return &BucketOptions{
		Endpoint: "https://notecard-firmware.s3.amazonaws.com",
		Timeout:  15 * time.Second,
	}
}

func (o *BucketOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if u, err := url.Parse(o.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, fmt.Errorf("%q is not a valid bucket endpoint URL", o.Endpoint))
	}
	if o.Timeout <= 0 {
		errors = append(errors, fmt.Errorf("bucket timeout must be positive, got %s", o.Timeout))
	}

	return errors
}

func (o *BucketOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Endpoint, "bucket.endpoint", o.Endpoint, "Base URL of the public firmware bucket listing endpoint.")
	fs.StringVar(&o.ArtifactHost, "bucket.artifact-host", o.ArtifactHost, "Public host prepended to object keys to form download URLs (defaults to the endpoint).")
	fs.DurationVar(&o.Timeout, "bucket.timeout", o.Timeout, "Timeout for a single bucket listing fetch.")
	fs.StringVar(&o.MappingFile, "bucket.mapping-file", o.MappingFile, "YAML file overriding the hardware-type classification table.")
}

// ResolvedArtifactHost returns ArtifactHost, falling back to the endpoint.
func (o *BucketOptions) ResolvedArtifactHost() string {
	if o.ArtifactHost != "" {
		return o.ArtifactHost
	}
	return o.Endpoint
}
