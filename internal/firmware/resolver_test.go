package firmware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fakeFetcher serves a canned listing payload, or a fetch error.
type fakeFetcher struct {
	payload string
	err     error
}

func (f *fakeFetcher) FetchListing(ctx context.Context, channel Channel) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.payload, nil
}

func listingPayload(keys ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult>`)
	for _, k := range keys {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>1024</Size></Contents>", k)
	}
	b.WriteString("</ListBucketResult>")
	return b.String()
}

func newTestResolver(payload string) *Resolver {
	return NewResolver(
		&fakeFetcher{payload: payload},
		"https://firmware.example.com",
		NewClassifier(nil),
	)
}

// The canonical listing from the end-to-end scenarios: one release in both
// artifact formats for hardware type u5, DFU listed before BIN.
func u5Listing() string {
	return listingPayload(
		"LTS/notecard-u5-6.2.5.16868.firmware-dfu-package",
		"LTS/notecard-u5-6.2.5.16868.firmware-binary",
	)
}

func TestResolveLatestPrefersBIN(t *testing.T) {
	r := newTestResolver(u5Listing())

	res, err := r.Resolve(context.Background(), ResolutionRequest{
		Channel:      ChannelLTS,
		HardwareType: "u5",
		Latest:       true,
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.UpToDate {
		t.Fatal("unexpected UpToDate")
	}
	if res.Key != "LTS/notecard-u5-6.2.5.16868.firmware-binary" {
		t.Errorf("selected key = %q, want the BIN key", res.Key)
	}
	if res.Version.String() != "6.2.5.16868" {
		t.Errorf("selected version = %s", res.Version)
	}
	if res.URL != "https://firmware.example.com/LTS/notecard-u5-6.2.5.16868.firmware-binary" {
		t.Errorf("URL = %q", res.URL)
	}
}

func TestResolveLatestUpToDate(t *testing.T) {
	r := newTestResolver(u5Listing())

	res, err := r.Resolve(context.Background(), ResolutionRequest{
		Channel:      ChannelLTS,
		HardwareType: "u5",
		Latest:       true,
		Current:      MustParseVersion("6.2.5.16868"),
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if !res.UpToDate {
		t.Fatal("want UpToDate")
	}
	if res.URL != "" {
		t.Errorf("UpToDate result must not carry a URL, got %q", res.URL)
	}
	if res.Version.String() != "6.2.5.16868" {
		t.Errorf("UpToDate result should report the latest version, got %s", res.Version)
	}
}

func TestResolveLatestNewerCurrent(t *testing.T) {
	r := newTestResolver(u5Listing())

	res, err := r.Resolve(context.Background(), ResolutionRequest{
		Channel:      ChannelLTS,
		HardwareType: "u5",
		Latest:       true,
		Current:      MustParseVersion("7.0.0.0"),
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !res.UpToDate {
		t.Error("a current version above latest is still up to date")
	}
}

func TestResolveLatestPicksMaximum(t *testing.T) {
	r := newTestResolver(listingPayload(
		"LTS/notecard-u5-6.2.5.9.firmware-binary",
		"LTS/notecard-u5-6.2.5.16868.firmware-dfu-package",
		"LTS/notecard-u5-6.2.4.20000.firmware-binary",
	))

	res, err := r.Resolve(context.Background(), ResolutionRequest{
		Channel:      ChannelLTS,
		HardwareType: "u5",
		Latest:       true,
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// 16868 > 9 numerically; "latest" never selects a lower version.
	if res.Version.String() != "6.2.5.16868" {
		t.Errorf("latest = %s, want 6.2.5.16868", res.Version)
	}
}

func TestResolveExactBypassesUpToDate(t *testing.T) {
	r := newTestResolver(u5Listing())

	// Explicit version request with an equal-or-newer current version must
	// still produce an artifact: the short-circuit applies to "latest" only.
	res, err := r.Resolve(context.Background(), ResolutionRequest{
		Channel:      ChannelLTS,
		HardwareType: "u5",
		Requested:    MustParseVersion("6.2.5.16868"),
		Current:      MustParseVersion("6.2.5.9"),
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.UpToDate {
		t.Fatal("explicit version request must not short-circuit")
	}
	if res.Key != "LTS/notecard-u5-6.2.5.16868.firmware-binary" {
		t.Errorf("selected key = %q", res.Key)
	}
}

func TestResolveExactTieBreakAsymmetry(t *testing.T) {
	requested := MustParseVersion("6.2.5.16868")

	// A later BIN key overrides an earlier DFU key of the same version.
	r := newTestResolver(listingPayload(
		"LTS/notecard-u5-6.2.5.16868.firmware-dfu-package",
		"LTS/notecard-u5-6.2.5.16868.firmware-binary",
	))
	res, err := r.Resolve(context.Background(), ResolutionRequest{
		Channel: ChannelLTS, HardwareType: "u5", Requested: requested,
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !strings.HasSuffix(res.Key, FormatBIN) {
		t.Errorf("later BIN must override earlier DFU, selected %q", res.Key)
	}

	// A later DFU key must never override an earlier BIN key.
	r = newTestResolver(listingPayload(
		"LTS/notecard-u5-6.2.5.16868.firmware-binary",
		"LTS/notecard-u5-6.2.5.16868.firmware-dfu-package",
	))
	res, err = r.Resolve(context.Background(), ResolutionRequest{
		Channel: ChannelLTS, HardwareType: "u5", Requested: requested,
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !strings.HasSuffix(res.Key, FormatBIN) {
		t.Errorf("later DFU must not override earlier BIN, selected %q", res.Key)
	}
}

func TestResolveNoArtifactsForHardwareType(t *testing.T) {
	r := newTestResolver(u5Listing())

	_, err := r.Resolve(context.Background(), ResolutionRequest{
		Channel:      ChannelLTS,
		HardwareType: "s3",
		Latest:       true,
	})

	var noArtifacts *NoArtifactsError
	if !errors.As(err, &noArtifacts) {
		t.Fatalf("error = %v, want NoArtifactsError", err)
	}
	if noArtifacts.HardwareType != "s3" || noArtifacts.Channel != ChannelLTS {
		t.Errorf("error detail = %+v", noArtifacts)
	}
}

func TestResolveVersionNotFoundEnumeratesAvailable(t *testing.T) {
	r := newTestResolver(u5Listing())

	_, err := r.Resolve(context.Background(), ResolutionRequest{
		Channel:      ChannelLTS,
		HardwareType: "u5",
		Requested:    MustParseVersion("9.9.9.9"),
	})

	var notFound *VersionNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error = %v, want VersionNotFoundError", err)
	}
	if len(notFound.Available) != 1 || notFound.Available[0].String() != "6.2.5.16868" {
		t.Errorf("available = %v", VersionStrings(notFound.Available))
	}
	if !strings.Contains(err.Error(), "6.2.5.16868") {
		t.Errorf("diagnostic must enumerate available versions, got %q", err.Error())
	}
}

func TestResolveNoValidVersions(t *testing.T) {
	// Keys exist for the hardware type but none yields a version.
	r := newTestResolver(listingPayload(
		"LTS/notecard-u5-readme.txt",
		"LTS/notecard-u5-manifest.json",
	))

	_, err := r.Resolve(context.Background(), ResolutionRequest{
		Channel:      ChannelLTS,
		HardwareType: "u5",
		Latest:       true,
	})

	var noValid *NoValidVersionsError
	if !errors.As(err, &noValid) {
		t.Fatalf("error = %v, want NoValidVersionsError", err)
	}
}

func TestResolveFetchFailure(t *testing.T) {
	fetchErr := &FetchError{Channel: ChannelLTS, Status: 503}
	r := NewResolver(&fakeFetcher{err: fetchErr}, "https://firmware.example.com", nil)

	_, err := r.Resolve(context.Background(), ResolutionRequest{
		Channel:      ChannelLTS,
		HardwareType: "u5",
		Latest:       true,
	})

	var fe *FetchError
	if !errors.As(err, &fe) || fe.Status != 503 {
		t.Fatalf("error = %v, want the FetchError surfaced verbatim", err)
	}
}

func TestResolveLegacyHardwareType(t *testing.T) {
	r := newTestResolver(listingPayload(
		"LTS/notecard-u5-6.2.5.16868.firmware-binary",
		"LTS/notecard-1.5.5.11111.firmware-binary", // no type token: legacy
	))

	res, err := r.Resolve(context.Background(), ResolutionRequest{
		Channel:      ChannelLTS,
		HardwareType: HardwareTypeLegacy,
		Latest:       true,
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// The u5 key must never leak into a legacy resolution.
	if res.Key != "LTS/notecard-1.5.5.11111.firmware-binary" {
		t.Errorf("selected key = %q", res.Key)
	}
}

func TestListVersions(t *testing.T) {
	r := newTestResolver(listingPayload(
		"LTS/notecard-u5-6.2.5.16868.firmware-dfu-package",
		"LTS/notecard-u5-6.2.5.16868.firmware-binary",
		"LTS/notecard-u5-6.2.5.9.firmware-binary",
		"LTS/notecard-s3-1.0.0.5.firmware-binary",
	))

	versions, err := r.ListVersions(context.Background(), ChannelLTS, "u5")
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}

	if len(versions) != 2 {
		t.Fatalf("ListVersions = %v, want 2 distinct u5 versions", VersionStrings(versions))
	}
}

func TestListVersionsEmptyIsValid(t *testing.T) {
	// An empty channel is a valid, if unusual, state for a listing.
	r := newTestResolver(listingPayload())

	versions, err := r.ListVersions(context.Background(), ChannelNightly, "u5")
	if err != nil {
		t.Fatalf("ListVersions on empty channel failed: %v", err)
	}
	if len(versions) != 0 {
		t.Errorf("ListVersions = %v, want empty", VersionStrings(versions))
	}

	// Same for a channel with keys, none for this hardware type.
	r = newTestResolver(listingPayload("LTS/notecard-u5-6.2.5.9.firmware-binary"))
	versions, err = r.ListVersions(context.Background(), ChannelLTS, "s3")
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(versions) != 0 {
		t.Errorf("ListVersions = %v, want empty", VersionStrings(versions))
	}
}
