package similarity

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarity(t *testing.T) {
	table := Default()

	tests := []struct {
		a, b     string
		expected float64
	}{
		{"person", "person", 1},
		{"boy", "person", 0.9},
		{"person", "boy", 0.9},
		{"cup", "glass", 0.8},
		{"glass", "cup", 0.8},
		{"hand", "arm", 0.5},
		{"boy", "girl", 0},      // no direct edge, no multi-hop through person
		{"arm", "finger", 0},    // both link to hand only
		{"chair", "table", 0},   // unknown names
		{"unicorn", "person", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, table.Similarity(tt.a, tt.b), "%s~%s", tt.a, tt.b)
	}
}

func TestNewRejectsBadPairs(t *testing.T) {
	_, err := New([]Pair{{"a", "a", 0.5}})
	assert.Error(t, err)

	_, err = New([]Pair{{"a", "b", 1.5}})
	assert.Error(t, err)

	_, err = New([]Pair{{"", "b", 0.5}})
	assert.Error(t, err)
}

func TestNewDuplicateKeepsLast(t *testing.T) {
	table, err := New([]Pair{{"a", "b", 0.2}, {"b", "a", 0.7}})
	require.NoError(t, err)
	assert.Equal(t, 0.7, table.Similarity("a", "b"))
	assert.Equal(t, 1, table.Len())
}

func TestEmptyAndNil(t *testing.T) {
	var nilTable *Table
	assert.Equal(t, float64(1), nilTable.Similarity("x", "x"))
	assert.Equal(t, float64(0), nilTable.Similarity("x", "y"))
	assert.Equal(t, float64(0), Empty().Similarity("cup", "glass"))
}

func TestYAMLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Default().WriteYAML(&buf))

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, Default().Pairs(), got.Pairs())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.yaml")
	content := "pairs:\n  - {a: sofa, b: couch, weight: 0.95}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.95, table.Similarity("couch", "sofa"))
	assert.Equal(t, float64(0), table.Similarity("cup", "glass"))
}

func TestReadEmptyDocument(t *testing.T) {
	table, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}
