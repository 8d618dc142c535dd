// Package output renders lookup results and gate state for the CLI.
package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattcoley/propertydetails/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// LookupResult pairs a query with the outcome it produced.
type LookupResult struct {
	Query     core.AddressQuery `json:"query"`
	Outcome   core.Outcome      `json:"result"`
	Mode      core.Mode         `json:"upstream_mode"`
	CheckedAt time.Time         `json:"checked_at"`
}

// GateStatus is the operator view of the provider reset deadline.
type GateStatus struct {
	Key              string     `json:"key"`
	Backend          string     `json:"backend"`
	Active           bool       `json:"active"`
	ResetAt          *time.Time `json:"reset_at,omitempty"`
	RemainingSeconds int64      `json:"remaining_seconds"`
}

// Formatter renders CLI results.
type Formatter interface {
	FormatLookup(result *LookupResult) (string, error)
	FormatGate(status *GateStatus) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// FormatLookupList renders several lookups, separated by blank lines.
func FormatLookupList(format Format, results []*LookupResult) (string, error) {
	formatter := NewFormatter(format)
	if format == FormatJSON {
		return marshal(results, true)
	}

	rendered := make([]string, 0, len(results))
	for _, result := range results {
		if result == nil {
			continue
		}
		value, err := formatter.FormatLookup(result)
		if err != nil {
			return "", err
		}
		rendered = append(rendered, value)
	}
	return strings.Join(rendered, "\n\n"), nil
}

// AddressLabel joins the populated query fields into one line.
func AddressLabel(q core.AddressQuery) string {
	parts := []string{q.Address}
	if q.Unit != "" {
		parts[0] += " " + q.Unit
	}
	locality := strings.TrimSpace(strings.Join(nonEmpty(q.City, q.State), ", "))
	if locality != "" {
		parts = append(parts, locality)
	}
	if q.Zipcode != "" {
		parts = append(parts, q.Zipcode)
	}
	return strings.Join(nonEmpty(parts...), ", ")
}

// OutcomeLabel is the short status column value.
func OutcomeLabel(o core.Outcome) string {
	switch o.Kind {
	case core.OutcomeClassified:
		if o.HasSeptic {
			return "septic"
		}
		return "no septic"
	case core.OutcomeNotFound:
		return "not found"
	case core.OutcomeRateLimited:
		return "rate limited"
	case core.OutcomeInvalidQuery:
		return "invalid query"
	default:
		return "upstream error"
	}
}

// OutcomeNotes explains the outcome beyond its label.
func OutcomeNotes(o core.Outcome) string {
	switch o.Kind {
	case core.OutcomeRateLimited:
		if o.RetryAfterSeconds > 0 {
			return fmt.Sprintf("retry in %ds", o.RetryAfterSeconds)
		}
		return "reset unknown"
	case core.OutcomeInvalidQuery:
		return o.Message
	case core.OutcomeNotFound:
		return "provider has no record"
	case core.OutcomeUpstreamError:
		return "provider call failed"
	default:
		return ""
	}
}

func gateStateLabel(status *GateStatus) string {
	if status.Active {
		return fmt.Sprintf("limited (%ds remaining)", status.RemainingSeconds)
	}
	return "open"
}

func gateResetLabel(status *GateStatus) string {
	if status.ResetAt == nil {
		return "-"
	}
	return status.ResetAt.UTC().Format(time.RFC3339)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
