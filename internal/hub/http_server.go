package hub

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Bucknalla/notecard-mcp/internal/firmware"
	"github.com/Bucknalla/notecard-mcp/internal/pkg/metrics"
	"github.com/Bucknalla/notecard-mcp/pkg/log"
	"github.com/Bucknalla/notecard-mcp/pkg/options"
)

type httpServer struct {
	server     *http.Server
	resolver   *firmware.Resolver
	classifier *firmware.Classifier
}

func newHTTPServer(opts *options.HttpOptions, resolver *firmware.Resolver, classifier *firmware.Classifier) *httpServer {
	s := &httpServer{
		resolver:   resolver,
		classifier: classifier,
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/firmware/{channel}/{hardwareType}/versions", s.handleVersions).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/firmware/resolve", s.handleResolve).Methods(http.MethodPost)

	// Basic Liveness Probe
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Readiness Probe
	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	s.server = &http.Server{
		Addr:    opts.Addr,
		Handler: r,
	}

	return s
}

func (s *httpServer) Start(ctx context.Context) error {
	log.Info("Starting HTTP Server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
