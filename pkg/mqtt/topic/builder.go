package topic

import (
	"fmt"
	"strings"
)

// Builder constructs MQTT topic strings under a fixed root namespace so the
// hub and its tests never assemble topics ad hoc.
type Builder struct {
	// root is the base namespace for all topics (e.g. "notecard/v1").
	root string
}

// NewBuilder creates a Builder with the specified root namespace.
func NewBuilder(root string) *Builder {
	return &Builder{root: strings.TrimSuffix(root, "/")}
}

// FirmwareRequest returns the topic a specific device publishes resolution
// requests to. Direction: device -> hub.
func (b *Builder) FirmwareRequest(deviceID string) string {
	return b.build(FirmwareRequest, deviceID)
}

// FirmwareRequestWildcard returns the wildcard filter the hub subscribes to
// for resolution requests from all devices.
func (b *Builder) FirmwareRequestWildcard() string {
	return b.build(FirmwareRequest, "+")
}

// FirmwareResponse returns the topic the hub publishes a resolution result
// to. Direction: hub -> device.
func (b *Builder) FirmwareResponse(deviceID string) string {
	return b.build(FirmwareResponse, deviceID)
}

// FirmwareStatus returns the topic a device reports update progress on.
// Direction: device -> hub.
func (b *Builder) FirmwareStatus(deviceID string) string {
	return b.build(FirmwareStatus, deviceID)
}

// FirmwareStatusWildcard returns the wildcard filter for progress reports
// from all devices.
func (b *Builder) FirmwareStatusWildcard() string {
	return b.build(FirmwareStatus, "+")
}

// DeviceID extracts the trailing device identifier from a concrete topic.
func DeviceID(topic string) string {
	idx := strings.LastIndex(topic, "/")
	if idx < 0 || idx == len(topic)-1 {
		return ""
	}
	return topic[idx+1:]
}

func (b *Builder) build(segment, deviceID string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, segment, deviceID)
}
