package cmd

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mattcoley/propertydetails/internal/config"
	"github.com/mattcoley/propertydetails/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long: `Verify the configuration loads and the rate limit backend is reachable.

The provider itself is not called.`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		logger.Info("Running health check...")

		if versionInfo.Version == "" {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing", nil)
			return
		}
		logger.Info("✅ Version information available", zap.String("version", versionInfo.Version))

		cfg, err := config.Load()
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Configuration invalid", err)
			return
		}
		logger.Info("✅ Configuration valid",
			zap.String("upstream_mode", cfg.Upstream.Mode()),
			zap.String("rate_limit_backend", cfg.RateLimit.Backend))

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		p, err := buildPipeline(ctx, cfg, logger)
		if err != nil {
			ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Pipeline could not be built", err)
			return
		}
		defer func() { _ = p.Close() }()

		if err := p.gate.CheckHealth(ctx); err != nil {
			ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Rate limit backend unreachable", err)
			return
		}
		logger.Info("✅ Rate limit backend reachable")

		logger.Info("")
		logger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
