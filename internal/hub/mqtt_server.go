package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Bucknalla/notecard-mcp/internal/firmware"
	"github.com/Bucknalla/notecard-mcp/internal/pkg/metrics"
	"github.com/Bucknalla/notecard-mcp/internal/session"
	"github.com/Bucknalla/notecard-mcp/internal/storage"
	"github.com/Bucknalla/notecard-mcp/pkg/log"
	pkgmqtt "github.com/Bucknalla/notecard-mcp/pkg/mqtt"
	"github.com/Bucknalla/notecard-mcp/pkg/mqtt/topic"
)

const presignExpiry = time.Hour

// deviceFirmwareRequest is the payload a device publishes on
// firmware/request/{deviceID}. It reuses the HTTP wire shape plus a
// request correlation ID.
type deviceFirmwareRequest struct {
	RequestID string `json:"requestID"`
	ResolveRequest
}

// deviceFirmwareResponse is published back on firmware/response/{deviceID}.
// On failure only RequestID and Error are set.
type deviceFirmwareResponse struct {
	RequestID string `json:"requestID"`
	UpToDate  bool   `json:"upToDate"`
	Version   string `json:"version,omitempty"`
	URL       string `json:"url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// deviceStatusReport is published by a device on firmware/status/{deviceID}
// as its update progresses. Event is one of the session events.
type deviceStatusReport struct {
	RequestID string `json:"requestID"`
	Event     string `json:"event"`
	Message   string `json:"message,omitempty"`
}

// mqttServer implements the MQTT ingress layer.
type mqttServer struct {
	client     pkgmqtt.Client
	topics     *topic.Builder
	resolver   *firmware.Resolver
	classifier *firmware.Classifier
	presigner  storage.Presigner
	sessions   *session.Store
}

func newMQTTServer(client pkgmqtt.Client, topics *topic.Builder, resolver *firmware.Resolver,
	classifier *firmware.Classifier, presigner storage.Presigner, sessions *session.Store) *mqttServer {
	return &mqttServer{
		client:     client,
		topics:     topics,
		resolver:   resolver,
		classifier: classifier,
		presigner:  presigner,
		sessions:   sessions,
	}
}

// Start connects to the broker and subscribes to the firmware topics.
func (s *mqttServer) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return err
	}

	defer func() {
		log.Info("Disconnecting MQTT client...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.client.Disconnect(shutdownCtx)
	}()

	log.Info("Waiting for MQTT connection...")
	if err := s.client.AwaitConnection(ctx); err != nil {
		return err
	}
	log.Info("MQTT Connected")

	const qos = 1
	if err := s.client.Subscribe(ctx, s.topics.FirmwareRequestWildcard(), qos, s.handleFirmwareRequest); err != nil {
		return err
	}
	if err := s.client.Subscribe(ctx, s.topics.FirmwareStatusWildcard(), qos, s.handleStatusReport); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

// handleFirmwareRequest resolves a device's firmware request and publishes
// the outcome, success or failure, back to the device.
func (s *mqttServer) handleFirmwareRequest(ctx context.Context, msgTopic string, payload []byte) {
	deviceID := topic.DeviceID(msgTopic)
	if deviceID == "" {
		log.Warn("Dropping firmware request without device segment", "topic", msgTopic)
		return
	}

	var req deviceFirmwareRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		log.Error(err, "Failed to unmarshal firmware request", "deviceID", deviceID)
		return
	}

	log.Info("Received firmware request", "deviceID", deviceID, "requestID", req.RequestID,
		"channel", req.Channel, "version", req.Version)

	resp := deviceFirmwareResponse{RequestID: req.RequestID}

	resolution, result, err := s.resolve(ctx, req.ResolveRequest)
	if err != nil {
		metrics.ResolutionOutcome("error", req.Channel)
		resp.Error = err.Error()
		s.publishResponse(ctx, deviceID, &resp)
		return
	}

	resp.UpToDate = result.UpToDate
	resp.Version = result.Version.String()

	if result.UpToDate {
		metrics.ResolutionOutcome("up_to_date", req.Channel)
		s.publishResponse(ctx, deviceID, &resp)
		return
	}

	resp.URL = result.URL
	// Private mirrors need a presigned URL; the fixed public host does not
	// apply to them.
	if s.presigner != nil {
		signed, err := s.presigner.PresignedURL(ctx, result.Key, presignExpiry)
		if err != nil {
			log.Error(err, "Failed to presign artifact URL", "key", result.Key)
			resp.Error = "storage unavailable"
			resp.URL = ""
			s.publishResponse(ctx, deviceID, &resp)
			return
		}
		resp.URL = signed
	}

	metrics.ResolutionOutcome("resolved", req.Channel)
	s.sessions.Create(deviceID, req.RequestID, resolution.Channel, result)
	s.publishResponse(ctx, deviceID, &resp)
}

// handleStatusReport applies a device progress report to its update
// session. Reports for unknown sessions or invalid transitions are logged
// and dropped.
func (s *mqttServer) handleStatusReport(ctx context.Context, msgTopic string, payload []byte) {
	deviceID := topic.DeviceID(msgTopic)
	if deviceID == "" {
		return
	}

	var report deviceStatusReport
	if err := json.Unmarshal(payload, &report); err != nil {
		log.Error(err, "Failed to unmarshal status report", "deviceID", deviceID)
		return
	}

	if err := s.sessions.Transition(ctx, deviceID, report.RequestID, report.Event); err != nil {
		log.Error(err, "Rejected status report", "deviceID", deviceID, "event", report.Event)
		return
	}

	log.Info("Update session progressed", "deviceID", deviceID, "requestID", report.RequestID,
		"event", report.Event, "message", report.Message)
}

func (s *mqttServer) resolve(ctx context.Context, req ResolveRequest) (firmware.ResolutionRequest, *firmware.ResolutionResult, error) {
	resolution, err := buildResolutionRequest(s.classifier, req)
	if err != nil {
		return resolution, nil, err
	}
	result, err := s.resolver.Resolve(ctx, resolution)
	return resolution, result, err
}

func (s *mqttServer) publishResponse(ctx context.Context, deviceID string, resp *deviceFirmwareResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		log.Error(err, "Failed to marshal firmware response", "deviceID", deviceID)
		return
	}

	if err := s.client.Publish(ctx, s.topics.FirmwareResponse(deviceID), 1, false, payload); err != nil {
		log.Error(err, "Failed to publish firmware response", "deviceID", deviceID)
		return
	}
	log.Info("Sent firmware response", "deviceID", deviceID, "requestID", resp.RequestID, "upToDate", resp.UpToDate)
}
