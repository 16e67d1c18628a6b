package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Bucknalla/notecard-mcp/internal/firmware"
)

// tool is one MCP tool: a hand-declared input schema plus the handler
// lowering the arguments onto the resolution core.
type tool struct {
	name        string
	description string
	inputSchema map[string]any
	handler     func(ctx context.Context, args json.RawMessage) (any, error)
}

// legacyTypeAlias names the empty hardware-type code on the wire.
const legacyTypeAlias = "legacy"

type resolveArgs struct {
	Channel        string `json:"channel"`
	HardwareType   string `json:"hardwareType,omitempty"`
	Model          string `json:"model,omitempty"`
	Version        string `json:"version,omitempty"`
	CurrentVersion string `json:"currentVersion,omitempty"`
}

type versionsArgs struct {
	Channel      string `json:"channel"`
	HardwareType string `json:"hardwareType,omitempty"`
	Model        string `json:"model,omitempty"`
}

type classifyArgs struct {
	Model string `json:"model"`
}

type resolveOutput struct {
	UpToDate bool   `json:"upToDate"`
	Version  string `json:"version,omitempty"`
	URL      string `json:"url,omitempty"`
	Key      string `json:"key,omitempty"`
}

type versionsOutput struct {
	Channel      string   `json:"channel"`
	HardwareType string   `json:"hardwareType"`
	Versions     []string `json:"versions"`
}

type classifyOutput struct {
	Model        string `json:"model"`
	HardwareType string `json:"hardwareType"`
}

func (s *Server) toolTable() []tool {
	channelSchema := map[string]any{
		"type":        "string",
		"enum":        []string{"LTS", "DevRel", "nightly"},
		"description": "Update channel to search.",
	}
	modelSchema := map[string]any{
		"type":        "string",
		"description": "Full Notecard model string, e.g. NOTE-NBGL-500.",
	}
	hardwareTypeSchema := map[string]any{
		"type":        "string",
		"description": "Hardware type code, e.g. u5 or s3; \"legacy\" for untyped firmware. Ignored when model is given.",
	}

	return []tool{
		{
			name: "notecard_firmware_resolve",
			description: "Resolve the firmware artifact a Notecard should download from an update channel. " +
				"Returns the download URL and version, or reports the device already up to date.",
			inputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"channel":      channelSchema,
					"model":        modelSchema,
					"hardwareType": hardwareTypeSchema,
					"version": map[string]any{
						"type":        "string",
						"description": "Exact firmware version to fetch, or \"latest\" (the default).",
					},
					"currentVersion": map[string]any{
						"type":        "string",
						"description": "Version currently running on the device, used for the up-to-date check.",
					},
				},
				"required": []string{"channel"},
			},
			handler: s.handleResolveTool,
		},
		{
			name: "notecard_firmware_versions",
			description: "List the distinct firmware versions available for a hardware type on an update channel, " +
				"sorted ascending.",
			inputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"channel":      channelSchema,
					"model":        modelSchema,
					"hardwareType": hardwareTypeSchema,
				},
				"required": []string{"channel"},
			},
			handler: s.handleVersionsTool,
		},
		{
			name: "notecard_hardware_classify",
			description: "Classify a Notecard model string into its firmware hardware type code. " +
				"Fails for models outside the known classification table.",
			inputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"model": modelSchema,
				},
				"required": []string{"model"},
			},
			handler: s.handleClassifyTool,
		},
	}
}

func (s *Server) handleResolveTool(ctx context.Context, raw json.RawMessage) (any, error) {
	var args resolveArgs
	if err := unmarshalArgs(raw, &args); err != nil {
		return nil, err
	}

	req := firmware.ResolutionRequest{}

	channel, err := firmware.ParseChannel(args.Channel)
	if err != nil {
		return nil, err
	}
	req.Channel = channel

	req.HardwareType, err = s.hardwareType(args.Model, args.HardwareType)
	if err != nil {
		return nil, err
	}

	switch args.Version {
	case "", "latest":
		req.Latest = true
	default:
		if req.Requested, err = firmware.ParseVersion(args.Version); err != nil {
			return nil, err
		}
	}

	if args.CurrentVersion != "" {
		if req.Current, err = firmware.ParseVersion(args.CurrentVersion); err != nil {
			return nil, fmt.Errorf("invalid current version: %w", err)
		}
	}

	result, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	return resolveOutput{
		UpToDate: result.UpToDate,
		Version:  result.Version.String(),
		URL:      result.URL,
		Key:      result.Key,
	}, nil
}

func (s *Server) handleVersionsTool(ctx context.Context, raw json.RawMessage) (any, error) {
	var args versionsArgs
	if err := unmarshalArgs(raw, &args); err != nil {
		return nil, err
	}

	channel, err := firmware.ParseChannel(args.Channel)
	if err != nil {
		return nil, err
	}

	hwType, err := s.hardwareType(args.Model, args.HardwareType)
	if err != nil {
		return nil, err
	}

	versions, err := s.resolver.ListVersions(ctx, channel, hwType)
	if err != nil {
		return nil, err
	}
	firmware.SortVersions(versions)

	out := versionsOutput{
		Channel:      channel.String(),
		HardwareType: formatHardwareType(hwType),
		Versions:     firmware.VersionStrings(versions),
	}
	if out.Versions == nil {
		out.Versions = []string{}
	}
	return out, nil
}

func (s *Server) handleClassifyTool(_ context.Context, raw json.RawMessage) (any, error) {
	var args classifyArgs
	if err := unmarshalArgs(raw, &args); err != nil {
		return nil, err
	}

	hwType, err := s.classifier.Classify(args.Model)
	if err != nil {
		return nil, err
	}

	return classifyOutput{
		Model:        args.Model,
		HardwareType: formatHardwareType(hwType),
	}, nil
}

// hardwareType lowers the model/hardwareType argument pair: a model goes
// through the classifier, an explicit code is taken as-is, and neither
// means legacy untyped firmware.
func (s *Server) hardwareType(model, code string) (firmware.HardwareType, error) {
	if model != "" {
		return s.classifier.Classify(model)
	}
	if code == "" || code == legacyTypeAlias {
		return firmware.HardwareTypeLegacy, nil
	}
	return firmware.HardwareType(code), nil
}

func formatHardwareType(t firmware.HardwareType) string {
	if t == firmware.HardwareTypeLegacy {
		return legacyTypeAlias
	}
	return string(t)
}

func unmarshalArgs(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing tool arguments")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	return nil
}
