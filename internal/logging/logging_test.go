package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logs.Level
	}{
		{"debug", logs.LevelDebug},
		{"DEBUG", logs.LevelDebug},
		{" info ", logs.LevelInfo},
		{"warn", logs.LevelWarn},
		{"warning", logs.LevelWarn},
		{"error", logs.LevelError},
		{"critical", logs.LevelCritical},
		{"", logs.LevelInfo},
		{"verbose", logs.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "ParseLevel(%q)", tt.in)
	}
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	assert.Equal(t, logs.LevelDebug, LevelFromEnv())

	t.Setenv(EnvLogLevel, "")
	assert.Equal(t, logs.LevelInfo, LevelFromEnv())
}

func TestFilter(t *testing.T) {
	var buf bytes.Buffer
	f := NewFilter(&logs.Logger{Output: &buf}, logs.LevelInfo)

	f.Debugf("unmapped pair")
	f.Infof("started")
	f.Warnf("skipped profile")
	f.Criticalf("halt")

	out := buf.String()
	assert.NotContains(t, out, "unmapped pair")
	assert.Contains(t, out, "Info started")
	assert.Contains(t, out, "Warning skipped profile")
	assert.Contains(t, out, "Critical halt")

	buf.Reset()
	f.Min = logs.LevelDebug
	f.Debugf("unmapped pair")
	assert.Contains(t, buf.String(), "Debug unmapped pair")
}

func TestFilter_OneLinePerMessage(t *testing.T) {
	var buf bytes.Buffer
	f := NewFilter(&logs.Logger{Output: &buf}, logs.LevelDebug)

	f.Infof("frame %d processed", 7)
	f.Errorf("actuator failed: %v", "timeout")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Info frame 7 processed")
	assert.Contains(t, lines[1], "Error actuator failed: timeout")
}

func TestFilter_CriticalAlwaysPasses(t *testing.T) {
	var buf bytes.Buffer
	f := NewFilter(&logs.Logger{Output: &buf}, logs.LevelCritical+1)

	f.Errorf("dropped")
	f.Criticalf("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}
