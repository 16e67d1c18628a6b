package hub

import (
	"fmt"
	"time"

	"github.com/Bucknalla/notecard-mcp/internal/firmware"
	"github.com/Bucknalla/notecard-mcp/internal/session"
	"github.com/Bucknalla/notecard-mcp/internal/storage"
	"github.com/Bucknalla/notecard-mcp/pkg/mqtt"
	mqtttopic "github.com/Bucknalla/notecard-mcp/pkg/mqtt/topic"
	"github.com/Bucknalla/notecard-mcp/pkg/options"
)

const (
	sessionTTL           = 30 * time.Minute
	sessionSweepInterval = time.Minute
)

// Config collects everything needed to assemble a HubServer.
type Config struct {
	HttpOptions   *options.HttpOptions
	MqttOptions   *options.MqttOptions
	S3Options     *options.S3Options
	BucketOptions *options.BucketOptions
}

// NewHubServer wires the resolver, storage backend, session store and
// protocol servers into a runnable HubServer.
func (cfg *Config) NewHubServer() (*HubServer, error) {
	classifier := firmware.NewClassifier(firmware.DefaultClassifierEntries())

	// The private mirror takes over listing duty when enabled; the public
	// bucket endpoint is the default.
	var (
		fetcher   firmware.ListingFetcher
		presigner storage.Presigner
	)
	if cfg.S3Options.Enabled {
		provider, err := storage.NewMinioProvider(cfg.S3Options)
		if err != nil {
			return nil, fmt.Errorf("failed to init s3 storage provider: %w", err)
		}
		fetcher = provider
		presigner = provider
	} else {
		fetcher = storage.NewBucketClient(cfg.BucketOptions)
	}

	resolver := firmware.NewResolver(fetcher, cfg.BucketOptions.ResolvedArtifactHost(), classifier)
	sessions := session.NewStore(sessionTTL)

	mqttclient, err := mqtt.NewClient(cfg.MqttOptions.ToClientConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to init mqtt client: %w", err)
	}
	topics := mqtttopic.NewBuilder(cfg.MqttOptions.TopicRoot)

	servers := []Server{
		newHTTPServer(cfg.HttpOptions, resolver, classifier),
		newMQTTServer(mqttclient, topics, resolver, classifier, presigner, sessions),
	}

	var watcher *MappingWatcher
	if cfg.BucketOptions.MappingFile != "" {
		watcher, err = NewMappingWatcher(cfg.BucketOptions.MappingFile, classifier)
		if err != nil {
			return nil, fmt.Errorf("failed to watch mapping file: %w", err)
		}
	}

	return &HubServer{
		servers:  servers,
		sessions: sessions,
		mapping:  watcher,
	}, nil
}
