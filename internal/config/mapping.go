package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Shape names accepted in mappings. They match the shape kinds produced by
// the detector.
const (
	ShapeTriangle = "Triangle"
	ShapeSquare   = "Square"
)

// MappingKey identifies a (color, shape) pair.
type MappingKey struct {
	Color string
	Shape string
}

// ActionMapping maps (color, shape) pairs to action codes. Pairs that are not
// present produce no action.
type ActionMapping map[MappingKey]string

// MappingEntry is the serialized form of one mapping row.
type MappingEntry struct {
	Color string `json:"color"`
	Shape string `json:"shape"`
	Code  string `json:"code"`
}

// DefaultMapping returns the four codes the relay bank encodes.
func DefaultMapping() ActionMapping {
	return ActionMapping{
		{Color: "Red", Shape: ShapeTriangle}:  "A",
		{Color: "Red", Shape: ShapeSquare}:    "B",
		{Color: "Blue", Shape: ShapeTriangle}: "C",
		{Color: "Blue", Shape: ShapeSquare}:   "D",
	}
}

// Lookup returns the action code for a (color, shape) pair.
func (m ActionMapping) Lookup(color, shape string) (string, bool) {
	code, ok := m[MappingKey{Color: color, Shape: shape}]
	return code, ok
}

// Codes returns the distinct action codes, sorted.
func (m ActionMapping) Codes() []string {
	seen := make(map[string]bool, len(m))
	codes := make([]string, 0, len(m))
	for _, c := range m {
		if !seen[c] {
			seen[c] = true
			codes = append(codes, c)
		}
	}
	sort.Strings(codes)
	return codes
}

// Entries returns the mapping as rows sorted by color, then shape.
func (m ActionMapping) Entries() []MappingEntry {
	entries := make([]MappingEntry, 0, len(m))
	for k, code := range m {
		entries = append(entries, MappingEntry{Color: k.Color, Shape: k.Shape, Code: code})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Color != entries[j].Color {
			return entries[i].Color < entries[j].Color
		}
		return entries[i].Shape < entries[j].Shape
	})
	return entries
}

// MappingFromEntries builds a mapping, rejecting incomplete rows, unknown
// shapes and a pair mapped to two different codes.
func MappingFromEntries(entries []MappingEntry) (ActionMapping, error) {
	m := make(ActionMapping, len(entries))
	for i, e := range entries {
		if e.Color == "" || e.Code == "" {
			return nil, fmt.Errorf("mapping entry %d: color and code are required", i)
		}
		if e.Shape != ShapeTriangle && e.Shape != ShapeSquare {
			return nil, fmt.Errorf("mapping entry %d: unknown shape %q", i, e.Shape)
		}
		k := MappingKey{Color: e.Color, Shape: e.Shape}
		if prev, ok := m[k]; ok && prev != e.Code {
			return nil, fmt.Errorf("mapping entry %d: %s %s already mapped to %q", i, e.Color, e.Shape, prev)
		}
		m[k] = e.Code
	}
	return m, nil
}

// ParseMapping decodes a JSON list of {color, shape, code} rows.
func ParseMapping(data []byte) (ActionMapping, error) {
	var entries []MappingEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse mapping JSON: %w", err)
	}
	return MappingFromEntries(entries)
}

// LoadMapping reads a mapping file.
func LoadMapping(path string) (ActionMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}
	return ParseMapping(data)
}

// SaveMapping writes the mapping file atomically.
func SaveMapping(path string, m ActionMapping) error {
	data, err := json.MarshalIndent(m.Entries(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode mapping: %w", err)
	}
	return writeFileAtomic(path, data)
}
