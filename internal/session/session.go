// Package session tracks the lifecycle of device update sessions initiated
// over MQTT. The resolver itself stays stateless; sessions live only in the
// hub orchestration layer and are dropped after a TTL.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/Bucknalla/notecard-mcp/internal/firmware"
	"github.com/Bucknalla/notecard-mcp/internal/pkg/metrics"
	"github.com/Bucknalla/notecard-mcp/pkg/log"
)

// Session phases.
const (
	PhasePending     = "pending"
	PhaseNotified    = "notified"
	PhaseDownloading = "downloading"
	PhaseSucceeded   = "succeeded"
	PhaseFailed      = "failed"
)

// Transition events reported by devices.
const (
	EventNotify   = "notify"
	EventDownload = "download"
	EventSucceed  = "succeed"
	EventFail     = "fail"
)

// Session is one device update in flight: the resolution that started it
// plus the phase machine driven by the device's status reports.
type Session struct {
	DeviceID  string
	RequestID string
	Channel   firmware.Channel
	Version   firmware.Version
	Key       string
	StartedAt time.Time
	UpdatedAt time.Time

	machine *fsm.FSM
}

// Phase returns the session's current phase.
func (s *Session) Phase() string {
	return s.machine.Current()
}

// Done reports whether the session reached a terminal phase.
func (s *Session) Done() bool {
	p := s.Phase()
	return p == PhaseSucceeded || p == PhaseFailed
}

func newMachine() *fsm.FSM {
	return fsm.NewFSM(
		PhasePending,
		fsm.Events{
			{Name: EventNotify, Src: []string{PhasePending}, Dst: PhaseNotified},
			{Name: EventDownload, Src: []string{PhaseNotified}, Dst: PhaseDownloading},
			{Name: EventSucceed, Src: []string{PhaseNotified, PhaseDownloading}, Dst: PhaseSucceeded},
			{Name: EventFail, Src: []string{PhasePending, PhaseNotified, PhaseDownloading}, Dst: PhaseFailed},
		},
		fsm.Callbacks{},
	)
}

// Store is an in-memory session tracker keyed by device and request. All
// methods are safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewStore creates a Store whose terminal and stale sessions are dropped
// after ttl by Sweep.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

func sessionKey(deviceID, requestID string) string {
	return deviceID + "/" + requestID
}

// Create registers a new session in the pending phase, replacing any
// previous session for the same device and request.
func (st *Store) Create(deviceID, requestID string, channel firmware.Channel, result *firmware.ResolutionResult) *Session {
	now := time.Now()
	s := &Session{
		DeviceID:  deviceID,
		RequestID: requestID,
		Channel:   channel,
		Version:   result.Version,
		Key:       result.Key,
		StartedAt: now,
		UpdatedAt: now,
		machine:   newMachine(),
	}

	st.mu.Lock()
	st.sessions[sessionKey(deviceID, requestID)] = s
	metrics.ActiveSessions.Set(float64(len(st.sessions)))
	st.mu.Unlock()

	return s
}

// Get returns the session for a device and request, if tracked.
func (st *Store) Get(deviceID, requestID string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[sessionKey(deviceID, requestID)]
	return s, ok
}

// Transition applies a device-reported event to a session. Unknown sessions
// and invalid transitions are errors, never panics; the session stays in
// its current phase on rejection.
func (st *Store) Transition(ctx context.Context, deviceID, requestID, event string) error {
	// Held across the event and the UpdatedAt write so a concurrent Sweep
	// never observes a half-applied transition.
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[sessionKey(deviceID, requestID)]
	if !ok {
		return fmt.Errorf("no update session for device %q request %q", deviceID, requestID)
	}

	if err := s.machine.Event(ctx, event); err != nil {
		return fmt.Errorf("session %s/%s: event %q rejected in phase %q: %w",
			deviceID, requestID, event, s.Phase(), err)
	}

	s.UpdatedAt = time.Now()
	log.Debug("update session transitioned", "deviceID", deviceID, "requestID", requestID, "phase", s.Phase())
	return nil
}

// Sweep drops sessions that are terminal or have not been updated within
// the TTL, returning how many were removed.
func (st *Store) Sweep() int {
	cutoff := time.Now().Add(-st.ttl)

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for key, s := range st.sessions {
		if s.Done() || s.UpdatedAt.Before(cutoff) {
			delete(st.sessions, key)
			removed++
		}
	}
	metrics.ActiveSessions.Set(float64(len(st.sessions)))
	return removed
}

// Run sweeps periodically until the context is cancelled.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				log.Debug("swept update sessions", "removed", n)
			}
		}
	}
}
