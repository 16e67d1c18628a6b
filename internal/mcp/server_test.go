package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Bucknalla/notecard-mcp/internal/firmware"
)

type fakeFetcher struct {
	payload string
	err     error
}

func (f *fakeFetcher) FetchListing(_ context.Context, _ firmware.Channel) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.payload, nil
}

func listingPayload(keys ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><ListBucketResult>`)
	for _, k := range keys {
		b.WriteString("<Contents><Key>" + k + "</Key></Contents>")
	}
	b.WriteString("</ListBucketResult>")
	return b.String()
}

func newTestServer(fetcher firmware.ListingFetcher) *Server {
	classifier := firmware.NewClassifier(firmware.DefaultClassifierEntries())
	resolver := firmware.NewResolver(fetcher, "https://firmware.example.com", classifier)
	return NewServer(resolver, classifier)
}

const initializeLine = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","clientInfo":{"name":"test"}}}`

// run feeds newline-delimited requests to the server and decodes one
// response per line.
func run(t *testing.T, s *Server, lines ...string) []response {
	t.Helper()

	input := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var output bytes.Buffer
	if err := s.Run(context.Background(), input, &output); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var responses []response
	decoder := json.NewDecoder(&output)
	for decoder.More() {
		var resp response
		if err := decoder.Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		responses = append(responses, resp)
	}
	return responses
}

// resultAs re-marshals a decoded result into a typed value.
func resultAs(t *testing.T, result any, out any) {
	t.Helper()
	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatal(err)
	}
}

func TestInitialize(t *testing.T) {
	s := newTestServer(&fakeFetcher{payload: listingPayload()})
	responses := run(t, s, initializeLine)

	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(responses))
	}
	if responses[0].Error != nil {
		t.Fatalf("initialize error: %v", responses[0].Error)
	}

	var result initializeResult
	resultAs(t, responses[0].Result, &result)
	if result.ServerInfo.Name != "notecard-mcp" {
		t.Errorf("server name = %q", result.ServerInfo.Name)
	}
	if result.Capabilities.Tools == nil {
		t.Error("tools capability missing")
	}
}

func TestToolsRequireInitialize(t *testing.T) {
	s := newTestServer(&fakeFetcher{payload: listingPayload()})
	responses := run(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

	if len(responses) != 1 || responses[0].Error == nil {
		t.Fatal("want error for tools/list before initialize")
	}
	if responses[0].Error.Code != codeInvalidRequest {
		t.Errorf("code = %d, want %d", responses[0].Error.Code, codeInvalidRequest)
	}
}

func TestToolsList(t *testing.T) {
	s := newTestServer(&fakeFetcher{payload: listingPayload()})
	responses := run(t, s,
		initializeLine,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	)

	var result toolsListResult
	resultAs(t, responses[1].Result, &result)

	want := []string{"notecard_firmware_resolve", "notecard_firmware_versions", "notecard_hardware_classify"}
	if len(result.Tools) != len(want) {
		t.Fatalf("got %d tools, want %d", len(result.Tools), len(want))
	}
	for i, name := range want {
		if result.Tools[i].Name != name {
			t.Errorf("tools[%d] = %q, want %q", i, result.Tools[i].Name, name)
		}
		if result.Tools[i].InputSchema == nil {
			t.Errorf("tool %q has no input schema", name)
		}
	}
}

func TestResolveToolCall(t *testing.T) {
	s := newTestServer(&fakeFetcher{payload: listingPayload(
		"LTS/notecard-u5-6.1.1.9.firmware-binary",
		"LTS/notecard-u5-6.2.5.16868.firmware-binary",
	)})

	responses := run(t, s,
		initializeLine,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"notecard_firmware_resolve","arguments":{"channel":"LTS","model":"NOTE-NBGL-500"}}}`,
	)

	var result toolsCallResult
	resultAs(t, responses[1].Result, &result)
	if result.IsError {
		t.Fatalf("tool errored: %s", result.Content[0].Text)
	}

	var out resolveOutput
	if err := json.Unmarshal([]byte(result.Content[0].Text), &out); err != nil {
		t.Fatal(err)
	}
	if out.Version != "6.2.5.16868" {
		t.Errorf("version = %q", out.Version)
	}
	if out.URL != "https://firmware.example.com/LTS/notecard-u5-6.2.5.16868.firmware-binary" {
		t.Errorf("url = %q", out.URL)
	}
}

func TestVersionsToolCall(t *testing.T) {
	s := newTestServer(&fakeFetcher{payload: listingPayload(
		"DevRel/notecard-u5-7.0.0.2.firmware-binary",
		"DevRel/notecard-u5-6.2.5.16868.firmware-dfu-package",
	)})

	responses := run(t, s,
		initializeLine,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"notecard_firmware_versions","arguments":{"channel":"DevRel","hardwareType":"u5"}}}`,
	)

	var result toolsCallResult
	resultAs(t, responses[1].Result, &result)
	if result.IsError {
		t.Fatalf("tool errored: %s", result.Content[0].Text)
	}

	var out versionsOutput
	if err := json.Unmarshal([]byte(result.Content[0].Text), &out); err != nil {
		t.Fatal(err)
	}
	want := []string{"6.2.5.16868", "7.0.0.2"}
	if len(out.Versions) != len(want) || out.Versions[0] != want[0] || out.Versions[1] != want[1] {
		t.Errorf("versions = %v, want %v", out.Versions, want)
	}
}

func TestClassifyToolCall(t *testing.T) {
	s := newTestServer(&fakeFetcher{payload: listingPayload()})

	responses := run(t, s,
		initializeLine,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"notecard_hardware_classify","arguments":{"model":"NOTE-ESP32"}}}`,
	)

	var result toolsCallResult
	resultAs(t, responses[1].Result, &result)

	var out classifyOutput
	if err := json.Unmarshal([]byte(result.Content[0].Text), &out); err != nil {
		t.Fatal(err)
	}
	if out.HardwareType != "s3" {
		t.Errorf("hardwareType = %q, want s3", out.HardwareType)
	}
}

func TestToolCallFailureIsInBand(t *testing.T) {
	s := newTestServer(&fakeFetcher{payload: listingPayload(
		"LTS/notecard-u5-6.1.1.9.firmware-binary",
	)})

	responses := run(t, s,
		initializeLine,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"notecard_firmware_resolve","arguments":{"channel":"LTS","hardwareType":"u5","version":"9.9.9.9"}}}`,
	)

	if responses[1].Error != nil {
		t.Fatal("tool failure must be in-band, not a protocol error")
	}

	var result toolsCallResult
	resultAs(t, responses[1].Result, &result)
	if !result.IsError {
		t.Fatal("want isError result")
	}
	if !strings.Contains(result.Content[0].Text, "9.9.9.9") {
		t.Errorf("diagnostic %q does not name the missing version", result.Content[0].Text)
	}
}

func TestUnknownMethodAndTool(t *testing.T) {
	s := newTestServer(&fakeFetcher{payload: listingPayload()})

	responses := run(t, s,
		initializeLine,
		`{"jsonrpc":"2.0","id":2,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"nope","arguments":{}}}`,
	)

	if responses[1].Error == nil || responses[1].Error.Code != codeMethodNotFound {
		t.Error("want method-not-found for resources/list")
	}
	if responses[2].Error == nil || responses[2].Error.Code != codeInvalidParams {
		t.Error("want invalid-params for unknown tool")
	}
}

func TestNotificationsAndBlankLines(t *testing.T) {
	s := newTestServer(&fakeFetcher{payload: listingPayload()})

	responses := run(t, s,
		initializeLine,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	)

	// Notification and blank line produce no responses.
	if len(responses) != 2 {
		t.Fatalf("got %d responses, want 2", len(responses))
	}
	if responses[1].Error != nil {
		t.Errorf("ping errored: %v", responses[1].Error)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	s := newTestServer(&fakeFetcher{payload: listingPayload()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := strings.NewReader(initializeLine + "\n")
	var output bytes.Buffer
	if err := s.Run(ctx, input, &output); err != context.Canceled {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
	if output.Len() != 0 {
		t.Errorf("cancelled run produced output: %s", output.String())
	}
}

func TestParseError(t *testing.T) {
	s := newTestServer(&fakeFetcher{payload: listingPayload()})
	responses := run(t, s, `{not json`)

	if len(responses) != 1 || responses[0].Error == nil || responses[0].Error.Code != codeParseError {
		t.Fatal("want parse error response")
	}
}
