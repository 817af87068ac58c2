package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayActive(t *testing.T) {
	tests := []struct {
		args    []string
		inverse bool
	}{
		{[]string{"markerctl", "--mcp"}, true},
		{[]string{"markerctl", "--mcp", "--relay-active", "low"}, true},
		{[]string{"markerctl", "--mcp", "--relay-active", "high"}, false},
	}
	for _, tt := range tests {
		parser, f := newParser()
		require.NoError(t, parser.Parse(tt.args), "%v", tt.args)
		assert.Equal(t, tt.inverse, f.inverseLogic(), "%v", tt.args)
	}

	parser, _ := newParser()
	assert.Error(t, parser.Parse([]string{"markerctl", "--relay-active", "sideways"}))
}

func TestDefaults(t *testing.T) {
	parser, f := newParser()
	require.NoError(t, parser.Parse([]string{"markerctl", "--source", "frames"}))

	assert.Equal(t, 100, *f.interval)
	assert.Equal(t, "log", *f.actuator)
	assert.False(t, *f.headless)
}
