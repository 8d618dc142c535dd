package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders results as a markdown table.
type MarkdownFormatter struct{}

// FormatLookup renders a lookup result as Markdown.
func (f *MarkdownFormatter) FormatLookup(result *LookupResult) (string, error) {
	if result == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(AddressLabel(result.Query))))
	sb.WriteString("| Status | Notes |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| %s | %s |\n",
		escapeMarkdownCell(OutcomeLabel(result.Outcome)),
		escapeMarkdownCell(OutcomeNotes(result.Outcome)),
	))
	if result.Mode != "" {
		sb.WriteString(fmt.Sprintf("\n**Upstream**: %s\n", result.Mode))
	}
	return sb.String(), nil
}

// FormatGate renders gate state as Markdown.
func (f *MarkdownFormatter) FormatGate(status *GateStatus) (string, error) {
	if status == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## Provider rate limit\n\n")
	sb.WriteString("| Key | Backend | State | Reset At |\n")
	sb.WriteString("|-----|---------|-------|----------|\n")
	sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
		escapeMarkdownCell(status.Key),
		escapeMarkdownCell(status.Backend),
		escapeMarkdownCell(gateStateLabel(status)),
		escapeMarkdownCell(gateResetLabel(status)),
	))
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
