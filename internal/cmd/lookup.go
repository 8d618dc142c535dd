package cmd

import (
	"fmt"
	"net/url"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mattcoley/propertydetails/internal/config"
	"github.com/mattcoley/propertydetails/internal/core"
	"github.com/mattcoley/propertydetails/internal/core/validate"
	errwrap "github.com/mattcoley/propertydetails/internal/errors"
	"github.com/mattcoley/propertydetails/internal/observability"
	"github.com/mattcoley/propertydetails/internal/output"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Check whether one property has a septic system",
	Long: `Run a single septic lookup through the same pipeline the server uses.

Either --address with --zipcode, or --address with --city and --state, is
required. The exit code is 0 only when the property was classified.`,
	Example: `  propertydetails lookup --address "123 Main St" --zipcode 12345 --mock
  propertydetails lookup --address "1 Elm Rd" --city Springfield --state IL --output-format json`,
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().String("address", "", "street address")
	lookupCmd.Flags().String("zipcode", "", "ZIP code")
	lookupCmd.Flags().String("city", "", "city (requires --state)")
	lookupCmd.Flags().String("state", "", "state (requires --city)")
	lookupCmd.Flags().String("unit", "", "unit or apartment")
	lookupCmd.Flags().Bool("mock", false, "use the canned upstream fixture instead of calling the provider")
	lookupCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json|markdown")
	lookupCmd.Flags().String("out", "", "Write output to a file (default stdout)")
}

func runLookup(cmd *cobra.Command, args []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}

	query, err := validate.Query(lookupParams(cmd))
	if err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Invalid lookup",
			errwrap.WrapInvalidInput(cmd.Context(), err, err.Error()))
		return nil
	}

	applyMockFlag(cmd)
	cfg, err := config.Load()
	if err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Configuration invalid", err)
		return nil
	}

	p, err := buildPipeline(cmd.Context(), cfg, observability.CLILogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			observability.CLILogger.Warn("Rate limit backend close failed", zap.Error(err))
		}
	}()

	outcome := p.service.LookupQuery(cmd.Context(), query)
	observability.CLILogger.Debug("Lookup finished",
		zap.String("mode", string(p.service.Mode())),
		zap.String("outcome", outcomeSummary(outcome)))
	result := &output.LookupResult{
		Query:     query,
		Outcome:   outcome,
		Mode:      p.service.Mode(),
		CheckedAt: time.Now().UTC(),
	}

	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	sink, err := openSink(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	rendered, err := output.NewFormatter(format).FormatLookup(result)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(sink.writer, rendered); err != nil {
		return err
	}

	if code, ok := outcomeExitCode(outcome); !ok {
		_ = sink.close()
		ExitWithCode(observability.CLILogger, code, "Lookup did not classify the property",
			fmt.Errorf("outcome %s", outcome.Kind))
	}
	return nil
}

// lookupParams reads the address flags into the same shape as a request's
// query string.
func lookupParams(cmd *cobra.Command) url.Values {
	values := url.Values{}
	for _, name := range []string{"address", "zipcode", "city", "state", "unit"} {
		if value, err := cmd.Flags().GetString(name); err == nil {
			values.Set(name, value)
		}
	}
	return values
}

// applyMockFlag lets --mock override upstream.mock_response for this run.
func applyMockFlag(cmd *cobra.Command) {
	if mock, err := cmd.Flags().GetBool("mock"); err == nil && mock {
		viper.Set("upstream.mock_response", true)
	}
}

func outcomeSummary(o core.Outcome) string {
	return fmt.Sprintf("%s: %s", output.OutcomeLabel(o), output.OutcomeNotes(o))
}
