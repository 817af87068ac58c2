package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMapping(t *testing.T) {
	m := DefaultMapping()

	tests := []struct {
		color, shape string
		code         string
		ok           bool
	}{
		{"Red", ShapeTriangle, "A", true},
		{"Red", ShapeSquare, "B", true},
		{"Blue", ShapeTriangle, "C", true},
		{"Blue", ShapeSquare, "D", true},
		{"Green", ShapeSquare, "", false},
	}
	for _, tt := range tests {
		code, ok := m.Lookup(tt.color, tt.shape)
		assert.Equal(t, tt.ok, ok, "%s %s", tt.color, tt.shape)
		assert.Equal(t, tt.code, code, "%s %s", tt.color, tt.shape)
	}

	assert.Equal(t, []string{"A", "B", "C", "D"}, m.Codes())
}

func TestParseMapping(t *testing.T) {
	m, err := ParseMapping([]byte(`[
		{"color": "Red", "shape": "Square", "code": "B"},
		{"color": "Green", "shape": "Triangle", "code": "B"}
	]`))
	require.NoError(t, err)

	code, ok := m.Lookup("Green", "Triangle")
	require.True(t, ok)
	assert.Equal(t, "B", code)
	assert.Equal(t, []string{"B"}, m.Codes())
}

func TestParseMapping_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"missing code", `[{"color":"Red","shape":"Square"}]`},
		{"missing color", `[{"shape":"Square","code":"A"}]`},
		{"unknown shape", `[{"color":"Red","shape":"Circle","code":"A"}]`},
		{"conflict", `[{"color":"Red","shape":"Square","code":"A"},{"color":"Red","shape":"Square","code":"B"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMapping([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestMapping_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.json")

	require.NoError(t, SaveMapping(path, DefaultMapping()))
	loaded, err := LoadMapping(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultMapping(), loaded)
}

func TestMapping_Entries(t *testing.T) {
	entries := DefaultMapping().Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, MappingEntry{Color: "Blue", Shape: "Square", Code: "D"}, entries[0])
	assert.Equal(t, MappingEntry{Color: "Red", Shape: "Triangle", Code: "A"}, entries[3])
}
