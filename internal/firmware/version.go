package firmware

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Version is an ordered tuple of non-negative integers parsed from a
// dot-separated string such as "6.2.5.16868". It is an immutable value type:
// equality and ordering are structural, so "1.2" and "1.2.0" compare equal.
// No upper bound on component count is enforced.
type Version struct {
	parts []int
	raw   string
}

// ParseVersion parses a dot-separated version string. Every component must
// be a non-negative integer; the empty string is rejected.
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return Version{}, fmt.Errorf("empty version string")
	}

	fields := strings.Split(s, ".")
	parts := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid version %q: component %q is not a non-negative integer", s, f)
		}
		parts[i] = n
	}

	return Version{parts: parts, raw: s}, nil
}

// MustParseVersion is ParseVersion for tests and static tables; it panics on
// malformed input.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as originally written.
func (v Version) String() string {
	return v.raw
}

// IsZero reports whether v is the zero Version, i.e. no version at all.
// Note this is distinct from a parsed "0": ParseVersion never returns a
// zero Version together with a nil error.
func (v Version) IsZero() bool {
	return v.parts == nil
}

// canonical returns the zero-trimmed dotted form used as a deduplication
// key, so structurally equal versions ("1.2" and "1.2.0") collapse.
func (v Version) canonical() string {
	end := len(v.parts)
	for end > 1 && v.parts[end-1] == 0 {
		end--
	}
	fields := make([]string, end)
	for i := 0; i < end; i++ {
		fields[i] = strconv.Itoa(v.parts[i])
	}
	return strings.Join(fields, ".")
}

// Compare returns -1, 0 or 1 as a is less than, equal to or greater than b.
// Components are compared left to right numerically; the shorter operand is
// padded with zeros.
func Compare(a, b Version) int {
	n := len(a.parts)
	if len(b.parts) > n {
		n = len(b.parts)
	}

	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(a.parts) {
			av = a.parts[i]
		}
		if i < len(b.parts) {
			bv = b.parts[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}

	return 0
}

// SortVersions orders versions ascending, in place. Callers needing display
// order use this; the resolver itself never depends on sortedness.
func SortVersions(versions []Version) {
	sort.Slice(versions, func(i, j int) bool {
		return Compare(versions[i], versions[j]) < 0
	})
}

// VersionStrings renders versions for diagnostics and API responses.
func VersionStrings(versions []Version) []string {
	out := make([]string, len(versions))
	for i, v := range versions {
		out[i] = v.String()
	}
	return out
}
