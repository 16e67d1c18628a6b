package topic

// Topic segments for the Notecard firmware protocol. These constants define
// the routing topology contract between the hub and connected devices.
// Changing these values breaks compatibility with deployed devices.
const (
	// FirmwareRequest is the upstream segment a device publishes to when it
	// wants a firmware resolution.
	// Payload: { "requestID", "deviceID", "channel", "model"|"hardwareType",
	//            "version", "currentVersion" }
	// Pattern: {root}/firmware/request/{deviceID}
	FirmwareRequest = "firmware/request"

	// FirmwareResponse is the downstream segment carrying the resolution
	// result (download URL or up-to-date) back to one device.
	// Pattern: {root}/firmware/response/{deviceID}
	FirmwareResponse = "firmware/response"

	// FirmwareStatus is the upstream segment for update progress reports
	// (downloading, succeeded, failed) that drive session transitions.
	// Pattern: {root}/firmware/status/{deviceID}
	FirmwareStatus = "firmware/status"
)
