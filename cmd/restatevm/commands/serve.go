package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/restatevm/sharedcore/internal/config"
	"github.com/restatevm/sharedcore/internal/hostserver"
	"github.com/restatevm/sharedcore/internal/identity"
	"github.com/restatevm/sharedcore/internal/logger"
	"github.com/restatevm/sharedcore/internal/metrics"
	"github.com/restatevm/sharedcore/internal/telemetry"
	"github.com/restatevm/sharedcore/internal/vm"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the restatevm host process",
	Long: `Run the restatevm host: listen for invocation requests, drive one
internal/vm.VM per attempt, and expose health/discovery/metrics endpoints.

This process is meant to sit behind a language SDK's own process
supervision (it always runs in the foreground; use --config to point at a
non-default configuration file).

Examples:
  # Start with default config location
  restatevm serve

  # Start with custom config
  restatevm serve --config /etc/restatevm/config.yaml

  # Override configuration via environment variables
  RESTATEVM_SERVER_LISTEN_ADDR=:9080 restatevm serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	hostserver.Version = Version

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "restatevm",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}()

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}
	hostMetrics := metrics.New()

	identityVerifier, err := identity.New(cfg.Identity.PublicKeys)
	if err != nil {
		return fmt.Errorf("failed to initialize identity verifier: %w", err)
	}

	policy := cfg.Retry.RetryPolicy()

	implicitCancellation := vm.ImplicitCancellationEnabled

	srv := hostserver.NewServer(hostserver.Options{
		ServerConfig:         cfg.Server,
		Identity:             identityVerifier,
		RequireIdentity:      cfg.Identity.Require,
		RetryPolicy:          policy,
		ImplicitCancellation: implicitCancellation,
		Metrics:              hostMetrics,
		Manifest:             hostserver.DiscoverManifest{ProtocolVersion: 1},
	})

	logger.Info("restatevm host starting",
		"addr", srv.Addr(),
		"version", Version,
		"metrics_enabled", cfg.Metrics.Enabled,
		"telemetry_enabled", telemetry.IsEnabled(),
		"identity_required", cfg.Identity.Require)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received")
		cancel()
		if err := <-serverDone; err != nil {
			return fmt.Errorf("host server shutdown error: %w", err)
		}
	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			return err
		}
	}

	logger.Info("restatevm host stopped")
	return nil
}
