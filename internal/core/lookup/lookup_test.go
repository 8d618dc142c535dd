package lookup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleDoc() map[string]any {
	return map[string]any{
		"property": map[string]any{
			"features": map[string]any{
				"structures": map[string]any{"sewer": "Public"},
			},
			"count": 3.0,
			"empty": nil,
		},
	}
}

func TestPathReturnsDeepValue(t *testing.T) {
	value, ok := Path(sampleDoc(), "property", "features", "structures", "sewer")
	require.True(t, ok)
	require.Equal(t, "Public", value)
}

func TestPathMissingAtAnyDepth(t *testing.T) {
	doc := sampleDoc()

	cases := map[string][]string{
		"leaf":         {"property", "features", "structures", "random"},
		"intermediate": {"property", "missing", "structures", "sewer"},
		"root":         {"nope"},
		"through leaf": {"property", "count", "deeper"},
		"null value":   {"property", "empty"},
		"through null": {"property", "empty", "child"},
	}

	for name, keys := range cases {
		t.Run(name, func(t *testing.T) {
			value, ok := Path(doc, keys...)
			require.False(t, ok)
			require.Nil(t, value)
		})
	}
}

func TestPathNilDocument(t *testing.T) {
	_, ok := Path(nil, "a", "b")
	require.False(t, ok)
}

func TestPathNoKeysReturnsDocument(t *testing.T) {
	doc := sampleDoc()
	value, ok := Path(doc)
	require.True(t, ok)
	require.Equal(t, doc, value)
}

func TestPathSlashInKey(t *testing.T) {
	doc := map[string]any{
		"property/details": map[string]any{"api_code": 0.0},
	}
	value, ok := Path(doc, "property/details", "api_code")
	require.True(t, ok)
	require.Equal(t, 0.0, value)
}

func TestString(t *testing.T) {
	s, ok := String(sampleDoc(), "property", "features", "structures", "sewer")
	require.True(t, ok)
	require.Equal(t, "Public", s)

	_, ok = String(sampleDoc(), "property", "count")
	require.False(t, ok)
}
