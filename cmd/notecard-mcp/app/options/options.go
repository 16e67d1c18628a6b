package options

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Bucknalla/notecard-mcp/internal/hub"
	"github.com/Bucknalla/notecard-mcp/pkg/log"
	"github.com/Bucknalla/notecard-mcp/pkg/options"
)

// Options aggregates the option groups of every subcommand. One struct
// serves all of them; commands that do not start servers simply ignore the
// HTTP and MQTT groups.
type Options struct {
	HttpOptions   *options.HttpOptions   `json:"http" mapstructure:"http"`
	MqttOptions   *options.MqttOptions   `json:"mqtt" mapstructure:"mqtt"`
	S3Options     *options.S3Options     `json:"s3" mapstructure:"s3"`
	BucketOptions *options.BucketOptions `json:"bucket" mapstructure:"bucket"`
	Log           *log.Options           `json:"log" mapstructure:"log"`

	// ConfigFile is an optional YAML file loaded over the defaults before
	// flag values apply.
	ConfigFile string `json:"-" mapstructure:"-"`
}

// NewOptions creates an Options object with default parameters.
func NewOptions() *Options {
	return &Options{
		HttpOptions:   options.NewHttpOptions(),
		MqttOptions:   options.NewMqttOptions(),
		S3Options:     options.NewS3Options(),
		BucketOptions: options.NewBucketOptions(),
		Log:           log.NewOptions(),
	}
}

// AddFlags binds all option groups to the given FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.HttpOptions.AddFlags(fs)
	o.MqttOptions.AddFlags(fs)
	o.S3Options.AddFlags(fs)
	o.BucketOptions.AddFlags(fs)
	o.Log.AddFlags(fs)

	fs.StringVarP(&o.ConfigFile, "config", "c", o.ConfigFile, "Path to a YAML configuration file.")
}

// Complete loads the configuration file, if any, into the option structs.
// File values override defaults and flags for the keys the file sets.
func (o *Options) Complete() error {
	if o.ConfigFile == "" {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(o.ConfigFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", o.ConfigFile, err)
	}
	if err := v.Unmarshal(o); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", o.ConfigFile, err)
	}

	return nil
}

// Validate checks all option groups and returns their combined errors.
func (o *Options) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.BucketOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return errors.Join(errs...)
}

// HubConfig assembles the hub server configuration.
func (o *Options) HubConfig() *hub.Config {
	return &hub.Config{
		HttpOptions:   o.HttpOptions,
		MqttOptions:   o.MqttOptions,
		S3Options:     o.S3Options,
		BucketOptions: o.BucketOptions,
	}
}
