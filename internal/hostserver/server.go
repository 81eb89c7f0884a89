// Package hostserver is the HTTP/2 host collaborator: the thing that owns a
// socket, negotiates the wire protocol version, verifies request identity,
// and drives one internal/vm.VM per invocation attempt (SPEC_FULL.md §D).
// The VM itself has no knowledge of HTTP, goroutines or wall-clock time;
// everything in this package exists to give it those things.
package hostserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/restatevm/sharedcore/internal/config"
	"github.com/restatevm/sharedcore/internal/identity"
	"github.com/restatevm/sharedcore/internal/logger"
	"github.com/restatevm/sharedcore/internal/metrics"
	"github.com/restatevm/sharedcore/internal/retry"
	"github.com/restatevm/sharedcore/internal/vm"
)

// Server serves the protocol's service-invocation endpoints over HTTP.
//
// Endpoints:
//   - GET  /health           liveness probe
//   - GET  /discover         service/handler discovery manifest
//   - POST /invoke/{service}/{handler}  drives one invocation attempt
//
// The server supports graceful shutdown with a configurable timeout,
// mirroring the teacher's pkg/controlplane/api.Server.
type Server struct {
	server *http.Server
	config config.ServerConfig

	identityVerifier     *identity.Verifier
	requireIdentity      bool
	retryPolicy          *retry.Policy
	implicitCancellation vm.ImplicitCancellationOption
	handler              Handler
	metrics              *metrics.Metrics
	discoverManifest     DiscoverManifest

	startTime    time.Time
	shutdownOnce sync.Once
}

// Options configures a Server at construction time.
type Options struct {
	ServerConfig         config.ServerConfig
	Identity             *identity.Verifier
	RequireIdentity      bool
	RetryPolicy          retry.Policy
	ImplicitCancellation vm.ImplicitCancellationOption
	Handler              Handler
	Metrics              *metrics.Metrics
	Manifest             DiscoverManifest
}

// NewServer creates a new host server in a stopped state. Call Start to
// begin serving requests.
func NewServer(opts Options) *Server {
	if opts.Handler == nil {
		opts.Handler = EchoHandler{}
	}
	policy := opts.RetryPolicy

	s := &Server{
		config:               opts.ServerConfig,
		identityVerifier:      opts.Identity,
		requireIdentity:       opts.RequireIdentity,
		retryPolicy:           &policy,
		implicitCancellation:  opts.ImplicitCancellation,
		handler:               opts.Handler,
		metrics:               opts.Metrics,
		discoverManifest:      opts.Manifest,
		startTime:             time.Now(),
	}

	s.server = &http.Server{
		Addr:         opts.ServerConfig.ListenAddr,
		Handler:      NewRouter(s),
		ReadTimeout:  opts.ServerConfig.ReadTimeout,
		WriteTimeout: opts.ServerConfig.WriteTimeout,
		IdleTimeout:  opts.ServerConfig.IdleTimeout,
	}
	return s
}

// Start starts the host HTTP server and blocks until ctx is cancelled or an
// error occurs, then gracefully shuts down.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("host server listening", "addr", s.config.ListenAddr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("host server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("host server failed: %w", err)
	}
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.config.ShutdownTimeout > 0 {
		return s.config.ShutdownTimeout
	}
	return 5 * time.Second
}

// Stop initiates graceful shutdown. Safe to call multiple times and
// concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("host server shutdown initiated")
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("host server shutdown error: %w", err)
			logger.Error("host server shutdown error", logger.Err(err))
		} else {
			logger.Info("host server stopped gracefully")
		}
	})
	return shutdownErr
}

// Addr returns the address the server is configured to listen on.
func (s *Server) Addr() string { return s.config.ListenAddr }
