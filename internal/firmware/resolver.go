package firmware

import (
	"context"
	"strings"

	"github.com/Bucknalla/notecard-mcp/pkg/log"
)

// ListingFetcher retrieves the raw bucket listing scoped to a channel. The
// payload is an opaque text blob handed to ParseKeys; implementations must
// return a *FetchError on transport or status failures.
type ListingFetcher interface {
	FetchListing(ctx context.Context, channel Channel) (string, error)
}

// ResolutionRequest describes one resolution. When Latest is false,
// Requested holds the exact version wanted. Current is the device's running
// version; its zero value means unknown.
type ResolutionRequest struct {
	Channel      Channel
	HardwareType HardwareType
	Latest       bool
	Requested    Version
	Current      Version
}

// ResolutionResult is the outcome of a successful resolution: either the
// device is already up to date, or a single artifact was selected.
type ResolutionResult struct {
	UpToDate bool

	// URL, Version and Key are set when UpToDate is false. Version is also
	// set on UpToDate so callers can report what "latest" was.
	URL     string
	Version Version
	Key     string
}

// TypeSource provides the current set of hardware-type codes. It is read
// on every resolution so a hot-reloaded classification table takes effect
// immediately; the Classifier implements it.
type TypeSource interface {
	Codes() []HardwareType
}

// StaticTypes adapts a fixed code list to the TypeSource interface.
type StaticTypes []HardwareType

// Codes returns the fixed code list.
func (s StaticTypes) Codes() []HardwareType { return s }

// Resolver selects the firmware artifact a device should receive from a
// channel-scoped bucket listing. Each call is a fresh, stateless
// computation over freshly fetched data; concurrent resolutions need no
// coordination.
type Resolver struct {
	fetcher      ListingFetcher
	artifactHost string
	types        TypeSource
}

// NewResolver creates a Resolver. artifactHost is the fixed public host
// joined with a selected key to form the download URL. types supplies the
// hardware-type codes used to recognize legacy keys (those carrying no
// type token); pass the classifier.
func NewResolver(fetcher ListingFetcher, artifactHost string, types TypeSource) *Resolver {
	if types == nil {
		types = StaticTypes(nil)
	}
	return &Resolver{
		fetcher:      fetcher,
		artifactHost: strings.TrimSuffix(artifactHost, "/"),
		types:        types,
	}
}

// ListVersions returns the distinct firmware versions available for a
// hardware type on a channel, in no particular order. An empty channel or a
// channel with nothing for this hardware type is a valid empty result, not
// an error; only a failed fetch is.
func (r *Resolver) ListVersions(ctx context.Context, channel Channel, hwType HardwareType) ([]Version, error) {
	keys, err := r.fetchKeys(ctx, channel)
	if err != nil {
		return nil, err
	}

	filtered := r.filterByType(keys, hwType)
	return ExtractVersions(filtered), nil
}

// Resolve selects the artifact for req, or reports that the device is
// already up to date. Unlike ListVersions, an empty filtered key set is a
// hard failure: an update request with no candidates cannot proceed.
func (r *Resolver) Resolve(ctx context.Context, req ResolutionRequest) (*ResolutionResult, error) {
	keys, err := r.fetchKeys(ctx, req.Channel)
	if err != nil {
		return nil, err
	}

	filtered := r.filterByType(keys, req.HardwareType)
	if len(filtered) == 0 {
		return nil, &NoArtifactsError{Channel: req.Channel, HardwareType: req.HardwareType}
	}

	// Retained for the VersionNotFound diagnostic.
	available := ExtractVersions(filtered)

	if req.Latest {
		return r.resolveLatest(req, filtered)
	}
	return r.resolveExact(req, filtered, available)
}

func (r *Resolver) resolveLatest(req ResolutionRequest, keys []string) (*ResolutionResult, error) {
	var (
		bestKey string
		bestVer Version
		found   bool
	)

	for _, key := range keys {
		v, ok := KeyVersion(key)
		if !ok {
			continue
		}
		if !found || Compare(v, bestVer) > 0 {
			bestKey, bestVer, found = key, v, true
			continue
		}
		// Equal versions in different artifact formats: prefer BIN.
		if Compare(v, bestVer) == 0 && formatRank(key) > formatRank(bestKey) {
			bestKey = key
		}
	}

	// The up-to-date short-circuit only applies to "latest" and takes
	// priority over constructing a URL.
	if found && !req.Current.IsZero() && Compare(req.Current, bestVer) >= 0 {
		log.Debug("device already up to date", "channel", req.Channel, "current", req.Current.String(), "latest", bestVer.String())
		return &ResolutionResult{UpToDate: true, Version: bestVer}, nil
	}

	if !found {
		return nil, &NoValidVersionsError{Channel: req.Channel, HardwareType: req.HardwareType}
	}

	return r.selected(bestKey, bestVer), nil
}

func (r *Resolver) resolveExact(req ResolutionRequest, keys []string, available []Version) (*ResolutionResult, error) {
	var (
		selKey string
		found  bool
	)

	// Running preference over the scan: a later BIN key overrides an
	// earlier DFU key of the same version, but a later DFU key never
	// overrides an earlier BIN key. This asymmetry is deliberate and
	// matches the longstanding selection behavior; keep it intact.
	for _, key := range keys {
		v, ok := KeyVersion(key)
		if !ok || Compare(v, req.Requested) != 0 {
			continue
		}
		if !found {
			selKey, found = key, true
			continue
		}
		if formatRank(key) > formatRank(selKey) {
			selKey = key
		}
	}

	if !found {
		return nil, &VersionNotFoundError{Requested: req.Requested, Available: available}
	}

	return r.selected(selKey, req.Requested), nil
}

func (r *Resolver) fetchKeys(ctx context.Context, channel Channel) ([]string, error) {
	payload, err := r.fetcher.FetchListing(ctx, channel)
	if err != nil {
		return nil, err
	}
	return ParseKeys(payload), nil
}

// filterByType keeps the keys belonging to one hardware type. Non-empty
// codes are identified by an embedded "-<code>-" token; a legacy key is one
// carrying no known non-empty token at all.
func (r *Resolver) filterByType(keys []string, hwType HardwareType) []string {
	known := r.types.Codes()
	filtered := make([]string, 0, len(keys))
	for _, key := range keys {
		if matchesType(key, hwType, known) {
			filtered = append(filtered, key)
		}
	}
	return filtered
}

func matchesType(key string, hwType HardwareType, known []HardwareType) bool {
	if hwType != HardwareTypeLegacy {
		return strings.Contains(key, "-"+string(hwType)+"-")
	}
	for _, t := range known {
		if t == HardwareTypeLegacy {
			continue
		}
		if strings.Contains(key, "-"+string(t)+"-") {
			return false
		}
	}
	return true
}

func (r *Resolver) selected(key string, version Version) *ResolutionResult {
	return &ResolutionResult{
		URL:     r.artifactHost + "/" + strings.TrimPrefix(key, "/"),
		Version: version,
		Key:     key,
	}
}
