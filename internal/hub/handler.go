package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Bucknalla/notecard-mcp/internal/firmware"
	"github.com/Bucknalla/notecard-mcp/internal/pkg/metrics"
	"github.com/Bucknalla/notecard-mcp/pkg/log"
)

// legacyTypeAlias names the empty hardware-type code in URLs and payloads,
// where an empty string cannot appear as a path segment.
const legacyTypeAlias = "legacy"

// ResolveRequest is the JSON body of POST /api/v1/firmware/resolve. Either
// HardwareType or Model must be set; Model goes through the classifier.
// Version is "latest" or an exact version string.
type ResolveRequest struct {
	Channel        string `json:"channel"`
	HardwareType   string `json:"hardwareType,omitempty"`
	Model          string `json:"model,omitempty"`
	Version        string `json:"version"`
	CurrentVersion string `json:"currentVersion,omitempty"`
}

// ResolveResponse mirrors firmware.ResolutionResult on the wire.
type ResolveResponse struct {
	UpToDate bool   `json:"upToDate"`
	Version  string `json:"version,omitempty"`
	URL      string `json:"url,omitempty"`
	Key      string `json:"key,omitempty"`
}

// VersionsResponse is the JSON body of the versions listing endpoint.
type VersionsResponse struct {
	Channel      string   `json:"channel"`
	HardwareType string   `json:"hardwareType"`
	Versions     []string `json:"versions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *httpServer) handleVersions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	channel, err := firmware.ParseChannel(vars["channel"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	hwType := parseHardwareType(vars["hardwareType"])

	versions, err := s.resolver.ListVersions(r.Context(), channel, hwType)
	if err != nil {
		writeResolutionError(w, err)
		return
	}

	firmware.SortVersions(versions)
	writeJSON(w, http.StatusOK, VersionsResponse{
		Channel:      channel.String(),
		HardwareType: formatHardwareType(hwType),
		Versions:     firmware.VersionStrings(versions),
	})
}

func (s *httpServer) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	resolution, err := buildResolutionRequest(s.classifier, req)
	if err != nil {
		var unknownType *firmware.UnknownHardwareTypeError
		if errors.As(err, &unknownType) {
			writeError(w, http.StatusNotFound, err)
		} else {
			writeError(w, http.StatusBadRequest, err)
		}
		metrics.ResolutionOutcome("error", req.Channel)
		return
	}

	result, err := s.resolver.Resolve(r.Context(), resolution)
	if err != nil {
		metrics.ResolutionOutcome("error", resolution.Channel.String())
		writeResolutionError(w, err)
		return
	}

	if result.UpToDate {
		metrics.ResolutionOutcome("up_to_date", resolution.Channel.String())
	} else {
		metrics.ResolutionOutcome("resolved", resolution.Channel.String())
	}
	writeJSON(w, http.StatusOK, resolveResponse(result))
}

// buildResolutionRequest validates the wire-level request and lowers it
// into the core's ResolutionRequest. Shared by the HTTP and MQTT ingress.
func buildResolutionRequest(classifier *firmware.Classifier, req ResolveRequest) (firmware.ResolutionRequest, error) {
	var out firmware.ResolutionRequest

	channel, err := firmware.ParseChannel(req.Channel)
	if err != nil {
		return out, err
	}
	out.Channel = channel

	switch {
	case req.Model != "":
		hwType, err := classifier.Classify(req.Model)
		if err != nil {
			return out, err
		}
		out.HardwareType = hwType
	case req.HardwareType != "":
		out.HardwareType = parseHardwareType(req.HardwareType)
	default:
		return out, fmt.Errorf("either hardwareType or model must be set")
	}

	switch req.Version {
	case "":
		return out, fmt.Errorf("version must be %q or an exact version", "latest")
	case "latest":
		out.Latest = true
	default:
		v, err := firmware.ParseVersion(req.Version)
		if err != nil {
			return out, err
		}
		out.Requested = v
	}

	if req.CurrentVersion != "" {
		v, err := firmware.ParseVersion(req.CurrentVersion)
		if err != nil {
			return out, fmt.Errorf("invalid current version: %w", err)
		}
		out.Current = v
	}

	return out, nil
}

func resolveResponse(result *firmware.ResolutionResult) ResolveResponse {
	return ResolveResponse{
		UpToDate: result.UpToDate,
		Version:  result.Version.String(),
		URL:      result.URL,
		Key:      result.Key,
	}
}

func parseHardwareType(s string) firmware.HardwareType {
	if s == legacyTypeAlias {
		return firmware.HardwareTypeLegacy
	}
	return firmware.HardwareType(s)
}

func formatHardwareType(t firmware.HardwareType) string {
	if t == firmware.HardwareTypeLegacy {
		return legacyTypeAlias
	}
	return string(t)
}

// writeResolutionError maps the core's failure kinds to HTTP statuses.
// Not-found kinds carry their diagnostic message in the body; upstream
// fetch failures surface as a bad gateway.
func writeResolutionError(w http.ResponseWriter, err error) {
	var (
		fetchErr        *firmware.FetchError
		noArtifacts     *firmware.NoArtifactsError
		versionNotFound *firmware.VersionNotFoundError
		noValid         *firmware.NoValidVersionsError
		unknownType     *firmware.UnknownHardwareTypeError
	)

	switch {
	case errors.As(err, &fetchErr):
		writeError(w, http.StatusBadGateway, err)
	case errors.As(err, &noArtifacts), errors.As(err, &versionNotFound),
		errors.As(err, &noValid), errors.As(err, &unknownType):
		writeError(w, http.StatusNotFound, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error(err, "Failed to encode response body")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
