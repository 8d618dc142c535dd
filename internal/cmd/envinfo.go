package cmd

import (
	"fmt"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mattcoley/propertydetails/internal/config"
	"github.com/mattcoley/propertydetails/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display environment, configuration, and version information.",
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		version := crucible.GetVersion()

		log.Info("=== propertydetails Environment Information ===")
		log.Info("")

		log.Info("Application:")
		log.Info("  Name:       " + config.AppName)
		log.Info("  Version:    " + versionInfo.Version)
		log.Info("  Commit:     " + versionInfo.Commit)
		log.Info("  Built:      " + versionInfo.BuildDate)
		log.Info("")

		log.Info("SSOT:")
		log.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		log.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		log.Info("")

		log.Info("Runtime:")
		log.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		log.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		log.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		log.Info("")

		cfg, err := config.Decode(viper.GetViper())
		if err != nil {
			log.Warn("Config load failed", zap.Error(err))
			return
		}

		log.Info("Configuration:")
		log.Info("  Config File:     " + viper.ConfigFileUsed())
		log.Info(fmt.Sprintf("  Server:          %s:%d", cfg.Server.Host, cfg.Server.Port))
		log.Info("  Log Level:       " + cfg.Logging.Level)
		log.Info(fmt.Sprintf("  Metrics Port:    %d (enabled=%t)", cfg.Metrics.Port, cfg.Metrics.Enabled))
		log.Info("  Upstream Mode:   " + cfg.Upstream.Mode())
		log.Info("  Upstream URL:    " + cfg.Upstream.BaseURL)
		log.Info(fmt.Sprintf("  Credentials:     %t", cfg.Upstream.APIKey != "" && cfg.Upstream.APISecret != ""))
		log.Info("  RL Backend:      " + cfg.RateLimit.Backend)
		switch cfg.RateLimit.Backend {
		case config.BackendLibsql:
			if cfg.Store.URL != "" {
				log.Info("  DB URL:          " + cfg.Store.URL)
			} else {
				log.Info("  DB Path:         " + cfg.Store.Path)
			}
		case config.BackendRedis:
			log.Info("  Redis:           " + cfg.Redis.Addr)
		}
		log.Info(fmt.Sprintf("  Auth Tokens:     %d", len(cfg.Auth.Tokens)))
		log.Info(fmt.Sprintf("  Client Limit:    %t", cfg.ClientLimit.Enabled))
		log.Info("")

		log.Info("=== End Environment Information ===")
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
