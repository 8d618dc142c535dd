package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mattcoley/propertydetails/internal/core"
)

func sampleResult(outcome core.Outcome) *LookupResult {
	return &LookupResult{
		Query:     core.AddressQuery{Address: "123 Main St", Zipcode: "12345"},
		Outcome:   outcome,
		Mode:      core.ModeMocked,
		CheckedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func TestJSONFormatterLookup(t *testing.T) {
	rendered, err := NewFormatter(FormatJSON).FormatLookup(sampleResult(core.Classified(true)))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Equal(t, "mocked", decoded["upstream_mode"])

	result := decoded["result"].(map[string]any)
	require.Equal(t, "classified", result["outcome"])
	require.Equal(t, true, result["has_septic"])
}

func TestFormatters(t *testing.T) {
	result := sampleResult(core.RateLimited(42))

	table, err := NewFormatter(FormatTable).FormatLookup(result)
	require.NoError(t, err)
	require.Contains(t, table, "123 Main St, 12345")
	require.Contains(t, table, "rate limited")
	require.Contains(t, table, "retry in 42s")

	markdown, err := NewFormatter(FormatMarkdown).FormatLookup(result)
	require.NoError(t, err)
	require.Contains(t, markdown, "## 123 Main St, 12345")
	require.Contains(t, markdown, "| rate limited | retry in 42s |")
	require.Contains(t, markdown, "**Upstream**: mocked")
}

func TestAddressLabel(t *testing.T) {
	require.Equal(t, "1 Elm Rd Apt 2, Springfield, IL",
		AddressLabel(core.AddressQuery{Address: "1 Elm Rd", Unit: "Apt 2", City: "Springfield", State: "IL"}))
	require.Equal(t, "1 Elm Rd, 12345",
		AddressLabel(core.AddressQuery{Address: "1 Elm Rd", Zipcode: "12345"}))
}

func TestOutcomeLabels(t *testing.T) {
	cases := []struct {
		outcome core.Outcome
		label   string
		notes   string
	}{
		{core.Classified(true), "septic", ""},
		{core.Classified(false), "no septic", ""},
		{core.NotFound(), "not found", "provider has no record"},
		{core.RateLimited(0), "rate limited", "reset unknown"},
		{core.UpstreamError(), "upstream error", "provider call failed"},
		{core.InvalidQuery("address is required"), "invalid query", "address is required"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.label, OutcomeLabel(tc.outcome))
		require.Equal(t, tc.notes, OutcomeNotes(tc.outcome))
	}
}

func TestMarkdownEscaping(t *testing.T) {
	result := sampleResult(core.InvalidQuery("a|b"))
	markdown, err := NewFormatter(FormatMarkdown).FormatLookup(result)
	require.NoError(t, err)
	require.Contains(t, markdown, "a\\|b")
}

func TestFormatGate(t *testing.T) {
	resetAt := time.Date(2026, 1, 2, 3, 5, 0, 0, time.UTC)
	status := &GateStatus{Key: "housecanary", Backend: "memory", Active: true, ResetAt: &resetAt, RemainingSeconds: 55}

	boxed, err := NewFormatter(FormatTable).FormatGate(status)
	require.NoError(t, err)
	require.Contains(t, boxed, "limited (55s remaining)")
	require.Contains(t, boxed, "2026-01-02T03:05:00Z")

	open, err := NewFormatter(FormatMarkdown).FormatGate(&GateStatus{Key: "housecanary", Backend: "redis"})
	require.NoError(t, err)
	require.Contains(t, open, "| housecanary | redis | open | - |")

	encoded, err := NewFormatter(FormatJSON).FormatGate(status)
	require.NoError(t, err)
	require.Contains(t, encoded, "\"remaining_seconds\": 55")
}

func TestFormatLookupListNonJSON(t *testing.T) {
	rendered, err := FormatLookupList(FormatTable, []*LookupResult{
		sampleResult(core.Classified(true)),
		nil,
		sampleResult(core.NotFound()),
	})
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(rendered, "123 Main St, 12345"))

	encoded, err := FormatLookupList(FormatJSON, []*LookupResult{sampleResult(core.NotFound())})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(encoded, "["))
}
