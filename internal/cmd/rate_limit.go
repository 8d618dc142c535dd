package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mattcoley/propertydetails/internal/config"
	"github.com/mattcoley/propertydetails/internal/core/ratelimit"
	"github.com/mattcoley/propertydetails/internal/observability"
	"github.com/mattcoley/propertydetails/internal/output"
)

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Inspect or clear the stored provider rate limit deadline",
}

var rateLimitShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored reset deadline",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		return withGate(cmd.Context(), func(cfg *config.Config, gate *ratelimit.Gate) error {
			status, err := gateStatus(cmd.Context(), cfg, gate, time.Now())
			if err != nil {
				return err
			}
			rendered, err := output.NewFormatter(format).FormatGate(status)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		})
	},
}

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the stored reset deadline",
	Long: `Clear the stored reset deadline so the next lookup calls the provider.

The provider may still reject that call; the deadline is then recorded again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if !yes && !dryRun {
			return errors.New("reset requires --yes (or use --dry-run)")
		}

		return withGate(cmd.Context(), func(cfg *config.Config, gate *ratelimit.Gate) error {
			_, active, err := gate.Deadline(cmd.Context())
			if err != nil {
				return err
			}
			if !dryRun && active {
				if err := gate.Reset(cmd.Context()); err != nil {
					return err
				}
				observability.CLILogger.Info("Cleared rate limit deadline", zap.String("key", gate.Key()))
			}
			return writeResetResult(cmd.OutOrStdout(), gate.Key(), active, dryRun)
		})
	},
}

func init() {
	rateLimitShowCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json|markdown")

	rateLimitResetCmd.Flags().Bool("yes", false, "Confirm the reset")
	rateLimitResetCmd.Flags().Bool("dry-run", false, "Report what would be cleared")

	rateLimitCmd.AddCommand(rateLimitShowCmd)
	rateLimitCmd.AddCommand(rateLimitResetCmd)
	rootCmd.AddCommand(rateLimitCmd)
}

// withGate loads config, opens the configured backend, and runs fn against a
// gate over it. Upstream credentials are not needed for these commands.
func withGate(ctx context.Context, fn func(*config.Config, *ratelimit.Gate) error) error {
	cfg, err := config.Decode(viper.GetViper())
	if err != nil {
		return err
	}

	deadlines, closeStore, err := openDeadlineStore(ctx, cfg, observability.CLILogger)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	gate := ratelimit.NewGate(deadlines,
		ratelimit.WithKey(cfg.RateLimit.Key),
		ratelimit.WithLogger(observability.CLILogger))
	return fn(cfg, gate)
}

func gateStatus(ctx context.Context, cfg *config.Config, gate *ratelimit.Gate, now time.Time) (*output.GateStatus, error) {
	status := &output.GateStatus{
		Key:     gate.Key(),
		Backend: cfg.RateLimit.Backend,
	}

	resetAt, ok, err := gate.Deadline(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return status, nil
	}

	resetAt = resetAt.UTC()
	status.ResetAt = &resetAt
	if remaining, _ := gate.TimeUntilReset(ctx, now); remaining > 0 {
		status.Active = true
		status.RemainingSeconds = remaining
	}
	return status, nil
}

func writeResetResult(w io.Writer, key string, found, dryRun bool) error {
	switch {
	case !found:
		_, err := fmt.Fprintf(w, "No deadline stored for %s\n", key)
		return err
	case dryRun:
		_, err := fmt.Fprintf(w, "Would clear deadline for %s\n", key)
		return err
	default:
		_, err := fmt.Fprintf(w, "Cleared deadline for %s\n", key)
		return err
	}
}
