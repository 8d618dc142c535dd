package cmd

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mattcoley/propertydetails/internal/config"
	errwrap "github.com/mattcoley/propertydetails/internal/errors"
	"github.com/mattcoley/propertydetails/internal/metrics"
	"github.com/mattcoley/propertydetails/internal/observability"
	"github.com/mattcoley/propertydetails/internal/server"
	"github.com/mattcoley/propertydetails/internal/server/handlers"
	servermw "github.com/mattcoley/propertydetails/internal/server/middleware"
)

const telemetryNamespace = "propertydetails"

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server exposing GET /property/details.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Re-read and validate the config file

The server will cleanly shut down the HTTP server and flush logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyMockFlag(cmd)

		cfg, err := config.Load()
		if err != nil {
			return errwrap.Wrap(cmd.Context(), errwrap.CodeConfigInvalid, err, "configuration invalid")
		}

		observability.InitServerLogger(config.AppName, cfg.Logging.Level, telemetryNamespace)
		logger := observability.ServerLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(config.AppName, cfg.Metrics.Port, telemetryNamespace); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
		}

		p, err := buildPipeline(cmd.Context(), cfg, logger)
		if err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "pipeline initialization failed")
		}

		logger.Info("Initializing server",
			zap.String("service", config.AppName),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Int("metrics_port", observability.GetMetricsPort()),
			zap.String("upstream_mode", cfg.Upstream.Mode()),
			zap.String("rate_limit_backend", cfg.RateLimit.Backend),
			zap.Bool("auth_enabled", len(cfg.Auth.Tokens) > 0))

		hm := handlers.NewHealthManager(versionInfo.Version)
		hm.RegisterChecker("rate_limit_gate", p.gate)
		if cfg.Metrics.Enabled {
			hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		}

		opts := []server.Option{
			server.WithLookup(p.service, string(p.service.Mode())),
			server.WithAuthTokens(cfg.Auth.Tokens),
			server.WithHealthManager(hm),
			server.WithTimeouts(cfg.Server),
			server.WithAdminToken(os.Getenv(config.EnvPrefix + "_ADMIN_TOKEN")),
		}

		janitorCtx, stopJanitor := context.WithCancel(context.Background())
		defer stopJanitor()
		if cfg.ClientLimit.Enabled {
			limiter := servermw.NewClientLimiter(cfg.ClientLimit.RPS, cfg.ClientLimit.Burst, cfg.ClientLimit.IdleTTL)
			limiter.StartJanitor(janitorCtx, time.Minute)
			opts = append(opts, server.WithClientLimiter(limiter))
		}

		srv := server.New(cfg.Server.Host, cfg.Server.Port, opts...)

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Shutdown handlers run LIFO: HTTP server, then backends, then metrics
		// and the logger.
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Flushing logger...")
			if err := logger.Sync(); err != nil {
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			if err := observability.ShutdownMetrics(); err != nil {
				logger.Warn("Metrics exporter stop failed", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			stopJanitor()
			if err := p.Close(); err != nil {
				logger.Warn("Rate limit backend close failed", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			logger.Info("Received SIGHUP: attempting config reload")

			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					logger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				logger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.Wrap(ctx, errwrap.CodeConfigInvalid, err, "config reload failed")
			}

			if _, err := config.Load(); err != nil {
				logger.Error("Reloaded configuration is invalid", zap.Error(err))
				return errwrap.Wrap(ctx, errwrap.CodeConfigInvalid, err, "config reload failed")
			}

			// Listener, credentials, and backend are bound at startup.
			logger.Info("Configuration reloaded; restart to apply server, upstream, or backend changes",
				zap.String("file", viper.ConfigFileUsed()))
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		metrics.SetServerStartTime(time.Now().Unix())

		errChan := make(chan error, 1)
		go func() {
			logger.Info("Starting HTTP server...",
				zap.String("host", cfg.Server.Host),
				zap.Int("port", cfg.Server.Port))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().Bool("mock", false, "serve the canned upstream fixture instead of calling the provider")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
