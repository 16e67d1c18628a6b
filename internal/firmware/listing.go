package firmware

import (
	"regexp"
	"strings"
)

// Artifact format suffixes recognized at the end of an object key. BIN is
// preferred over DFU when both package the same release.
const (
	FormatBIN = "firmware-binary"
	FormatDFU = "firmware-dfu-package"
)

// keyPattern extracts object keys from a bucket listing payload. This is a
// deliberate marker scan, not XML parsing: the listing is treated as an
// opaque blob and unrelated or malformed content around the markers must
// never cause a failure.
var keyPattern = regexp.MustCompile(`<Key>(.*?)</Key>`)

// versionPattern matches the embedded version of a well-formed firmware key:
// four dotted numeric components immediately followed by a recognized
// artifact-format suffix at the end of the key.
var versionPattern = regexp.MustCompile(`-(\d+\.\d+\.\d+\.\d+)\.(` + FormatBIN + `|` + FormatDFU + `)$`)

// ParseKeys extracts every object key from a bucket listing payload,
// preserving listing order. Zero matches yields an empty slice, not an
// error. Downstream code must not assume the result is sorted.
func ParseKeys(payload string) []string {
	matches := keyPattern.FindAllStringSubmatch(payload, -1)
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		keys = append(keys, m[1])
	}
	return keys
}

// KeyVersion extracts the version embedded in an object key, reporting
// whether the key matched the expected firmware naming pattern.
func KeyVersion(key string) (Version, bool) {
	m := versionPattern.FindStringSubmatch(key)
	if m == nil {
		return Version{}, false
	}
	v, err := ParseVersion(m[1])
	if err != nil {
		return Version{}, false
	}
	return v, true
}

// ExtractVersions derives the set of distinct versions present in a
// collection of object keys. Keys that do not match the firmware naming
// pattern contribute nothing: mixed-content listings are expected, so this
// is best-effort extraction, not validation. Two keys encoding the same
// release in different artifact formats yield one version.
func ExtractVersions(keys []string) []Version {
	seen := make(map[string]struct{}, len(keys))
	versions := make([]Version, 0, len(keys))
	for _, key := range keys {
		v, ok := KeyVersion(key)
		if !ok {
			continue
		}
		c := v.canonical()
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		versions = append(versions, v)
	}
	return versions
}

// formatRank is the single artifact-format priority used by every selection
// path: BIN outranks DFU, anything else ranks below both. Both the "latest"
// and the exact-version scans defer to this so their tie-breaks can never
// diverge.
func formatRank(key string) int {
	switch {
	case strings.HasSuffix(key, FormatBIN):
		return 2
	case strings.HasSuffix(key, FormatDFU):
		return 1
	default:
		return 0
	}
}
