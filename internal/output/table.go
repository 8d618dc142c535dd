package output

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatLookup renders a lookup result as a table.
func (f *TableFormatter) FormatLookup(result *LookupResult) (string, error) {
	if result == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Address", "Status", "Notes"})
	t.AppendRow(table.Row{
		AddressLabel(result.Query),
		OutcomeLabel(result.Outcome),
		OutcomeNotes(result.Outcome),
	})
	if result.Mode != "" {
		t.AppendFooter(table.Row{"", "", fmt.Sprintf("upstream: %s", result.Mode)})
	}

	return t.Render(), nil
}

// FormatGate renders gate state inside a box.
func (f *TableFormatter) FormatGate(status *GateStatus) (string, error) {
	if status == nil {
		return "", nil
	}

	lines := []string{
		"Provider Rate Limit",
		"",
		fmt.Sprintf("key:      %s", status.Key),
		fmt.Sprintf("backend:  %s", status.Backend),
		fmt.Sprintf("state:    %s", gateStateLabel(status)),
		fmt.Sprintf("reset_at: %s", gateResetLabel(status)),
	}
	return ascii.DrawBox(strings.Join(lines, "\n"), 0), nil
}
