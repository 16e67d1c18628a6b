// Package hub runs the long-lived firmware service: an HTTP API with
// health and metrics endpoints, and an MQTT ingress answering device
// firmware requests. The resolution core stays protocol-agnostic; this
// package only adapts transports onto it.
package hub

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Bucknalla/notecard-mcp/internal/session"
	"github.com/Bucknalla/notecard-mcp/pkg/log"
)

// Server is the common interface for all sub-servers.
type Server interface {
	Start(ctx context.Context) error
}

// HubServer manages the lifecycle of the protocol servers and the
// background workers around them.
type HubServer struct {
	servers  []Server
	sessions *session.Store
	mapping  *MappingWatcher
}

// Run launches all servers and background workers in parallel and blocks
// until the context is cancelled or a server fails.
func (s *HubServer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range s.servers {
		srv := srv
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	g.Go(func() error {
		s.sessions.Run(ctx, sessionSweepInterval)
		return nil
	})

	if s.mapping != nil {
		g.Go(func() error {
			return s.mapping.Run(ctx)
		})
	}

	log.Info("All servers starting...")
	return g.Wait()
}
