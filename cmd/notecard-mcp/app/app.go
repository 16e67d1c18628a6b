// Package app wires the notecard-mcp command tree: a long-running hub
// server, a stdio MCP server and one-shot resolve/versions commands, all
// sharing the same option groups.
package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/Bucknalla/notecard-mcp/cmd/notecard-mcp/app/options"
	"github.com/Bucknalla/notecard-mcp/internal/firmware"
	"github.com/Bucknalla/notecard-mcp/internal/mcp"
	"github.com/Bucknalla/notecard-mcp/internal/storage"
	"github.com/Bucknalla/notecard-mcp/pkg/log"
)

// NewRootCommand builds the notecard-mcp command tree.
func NewRootCommand() *cobra.Command {
	opts := options.NewOptions()

	cmd := &cobra.Command{
		Use:          "notecard-mcp",
		Short:        "Notecard firmware resolution service",
		Long:         "Resolves Notecard firmware artifacts from the public firmware bucket and serves them over HTTP, MQTT and the Model Context Protocol.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Complete(); err != nil {
				return err
			}
			return opts.Validate()
		},
	}

	opts.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newHubCommand(opts),
		newMCPCommand(opts),
		newResolveCommand(opts),
		newVersionsCommand(opts),
	)

	return cmd
}

func newHubCommand(opts *options.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "hub",
		Short: "Run the firmware hub server (HTTP API + MQTT ingress)",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Init(opts.Log)

			server, err := opts.HubConfig().NewHubServer()
			if err != nil {
				return fmt.Errorf("failed to create hub server: %w", err)
			}

			return server.Run(cmd.Context())
		},
	}
}

func newMCPCommand(opts *options.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the Model Context Protocol on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries protocol frames only.
			opts.Log.OutputPaths = []string{"stderr"}
			opts.Log.Format = "json"
			opts.Log.EnableColor = false
			log.Init(opts.Log)

			resolver, classifier, err := newResolver(opts)
			if err != nil {
				return err
			}

			return mcp.NewServer(resolver, classifier).Serve(cmd.Context())
		},
	}
}

func newResolveCommand(opts *options.Options) *cobra.Command {
	var (
		model          string
		hardwareType   string
		version        string
		currentVersion string
	)

	cmd := &cobra.Command{
		Use:   "resolve <channel>",
		Short: "Resolve the firmware artifact for a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Init(opts.Log)

			resolver, classifier, err := newResolver(opts)
			if err != nil {
				return err
			}

			req := firmware.ResolutionRequest{}
			if req.Channel, err = firmware.ParseChannel(args[0]); err != nil {
				return err
			}
			if req.HardwareType, err = pickHardwareType(classifier, model, hardwareType); err != nil {
				return err
			}

			switch version {
			case "", "latest":
				req.Latest = true
			default:
				if req.Requested, err = firmware.ParseVersion(version); err != nil {
					return err
				}
			}
			if currentVersion != "" {
				if req.Current, err = firmware.ParseVersion(currentVersion); err != nil {
					return fmt.Errorf("invalid current version: %w", err)
				}
			}

			result, err := resolver.Resolve(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := map[string]any{
				"upToDate": result.UpToDate,
				"version":  result.Version.String(),
			}
			if !result.UpToDate {
				out["url"] = result.URL
				out["key"] = result.Key
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(out)
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Notecard model string, classified into a hardware type.")
	cmd.Flags().StringVarP(&hardwareType, "hardware-type", "t", "", "Explicit hardware type code (overridden by --model).")
	cmd.Flags().StringVarP(&version, "version", "v", "latest", "Firmware version to resolve, or \"latest\".")
	cmd.Flags().StringVar(&currentVersion, "current", "", "Version currently running on the device.")

	return cmd
}

func newVersionsCommand(opts *options.Options) *cobra.Command {
	var (
		model        string
		hardwareType string
	)

	cmd := &cobra.Command{
		Use:   "versions <channel>",
		Short: "List available firmware versions on a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Init(opts.Log)

			resolver, classifier, err := newResolver(opts)
			if err != nil {
				return err
			}

			channel, err := firmware.ParseChannel(args[0])
			if err != nil {
				return err
			}
			hwType, err := pickHardwareType(classifier, model, hardwareType)
			if err != nil {
				return err
			}

			versions, err := resolver.ListVersions(cmd.Context(), channel, hwType)
			if err != nil {
				return err
			}
			firmware.SortVersions(versions)

			table := uitable.New()
			table.AddRow("CHANNEL", "TYPE", "VERSION")
			for _, v := range versions {
				table.AddRow(channel.String(), typeLabel(hwType), v.String())
			}
			fmt.Println(table)
			if len(versions) == 0 {
				fmt.Printf("no firmware found for type %q on channel %s\n", typeLabel(hwType), channel)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Notecard model string, classified into a hardware type.")
	cmd.Flags().StringVarP(&hardwareType, "hardware-type", "t", "", "Explicit hardware type code (overridden by --model).")

	return cmd
}

// newResolver assembles the resolution core for the one-shot commands and
// the MCP server, with the same storage backend choice the hub makes.
func newResolver(opts *options.Options) (*firmware.Resolver, *firmware.Classifier, error) {
	classifier := firmware.NewClassifier(firmware.DefaultClassifierEntries())

	var fetcher firmware.ListingFetcher
	if opts.S3Options.Enabled {
		provider, err := storage.NewMinioProvider(opts.S3Options)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init s3 storage provider: %w", err)
		}
		fetcher = provider
	} else {
		fetcher = storage.NewBucketClient(opts.BucketOptions)
	}

	resolver := firmware.NewResolver(fetcher, opts.BucketOptions.ResolvedArtifactHost(), classifier)
	return resolver, classifier, nil
}

func pickHardwareType(classifier *firmware.Classifier, model, code string) (firmware.HardwareType, error) {
	if model != "" {
		return classifier.Classify(model)
	}
	if code == "" || code == "legacy" {
		return firmware.HardwareTypeLegacy, nil
	}
	return firmware.HardwareType(code), nil
}

func typeLabel(t firmware.HardwareType) string {
	if t == firmware.HardwareTypeLegacy {
		return "legacy"
	}
	return string(t)
}
