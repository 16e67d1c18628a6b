package firmware

import (
	"fmt"
	"strings"
)

// FetchError reports that the bucket listing could not be retrieved. It is
// never retried internally; retry policy belongs to the caller.
type FetchError struct {
	Channel Channel
	// Status is the HTTP status code when the listing endpoint answered
	// with a non-success status, 0 for transport failures.
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("failed to fetch firmware listing for channel %s: status %d", e.Channel, e.Status)
	}
	return fmt.Sprintf("failed to fetch firmware listing for channel %s: %v", e.Channel, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NoArtifactsError reports that the listing was fetched but contained no
// keys for the requested hardware type. Fatal to a resolution; ListVersions
// treats the same condition as a valid empty result instead.
type NoArtifactsError struct {
	Channel      Channel
	HardwareType HardwareType
}

func (e *NoArtifactsError) Error() string {
	return fmt.Sprintf("no firmware found for hardware type %q on channel %s", e.HardwareType, e.Channel)
}

// VersionNotFoundError reports that a specifically requested version has no
// matching artifact. The message enumerates what is actually available for
// operator diagnosis.
type VersionNotFoundError struct {
	Requested Version
	Available []Version
}

func (e *VersionNotFoundError) Error() string {
	available := "none"
	if len(e.Available) > 0 {
		available = strings.Join(VersionStrings(e.Available), ", ")
	}
	return fmt.Sprintf("firmware version %s not found, available versions: %s", e.Requested, available)
}

// NoValidVersionsError reports that keys existed for the hardware type but
// none yielded an extractable version. This indicates naming drift or data
// corruption in the bucket.
type NoValidVersionsError struct {
	Channel      Channel
	HardwareType HardwareType
}

func (e *NoValidVersionsError) Error() string {
	return fmt.Sprintf("no valid firmware versions found for hardware type %q on channel %s", e.HardwareType, e.Channel)
}

// UnknownHardwareTypeError reports that a device model string matched no
// entry of the classification table. Resolution stops before any fetch.
type UnknownHardwareTypeError struct {
	Model string
}

func (e *UnknownHardwareTypeError) Error() string {
	if e.Model == "" {
		return "cannot classify hardware type: empty device model"
	}
	return fmt.Sprintf("cannot classify hardware type for device model %q", e.Model)
}
