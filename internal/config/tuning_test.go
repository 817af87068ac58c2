package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTuning_Valid(t *testing.T) {
	d := DefaultTuning()
	require.NoError(t, d.Validate())

	assert.Equal(t, 0.7, d.ConfidenceThreshold)
	assert.Equal(t, 5, d.WindowSize)
	assert.Equal(t, 3, d.StableCount)
	assert.Equal(t, 5*time.Second, d.CooldownFor("A"))
}

func TestTuning_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Tuning)
	}{
		{"negative component area", func(c *Tuning) { c.MinComponentArea = -1 }},
		{"negative kernel", func(c *Tuning) { c.KernelSize = -3 }},
		{"zero epsilon", func(c *Tuning) { c.ApproxEpsilon = 0 }},
		{"epsilon of one", func(c *Tuning) { c.ApproxEpsilon = 1 }},
		{"inverted aspect band", func(c *Tuning) { c.SquareAspectMin = 1.3 }},
		{"negative weight", func(c *Tuning) { c.DensityWeight = -0.1 }},
		{"threshold above one", func(c *Tuning) { c.ConfidenceThreshold = 1.5 }},
		{"empty window", func(c *Tuning) { c.WindowSize = 0 }},
		{"stable count above window", func(c *Tuning) { c.StableCount = 6 }},
		{"negative cooldown", func(c *Tuning) { c.Cooldown = Duration(-time.Second) }},
		{"negative override", func(c *Tuning) { c.Cooldowns = map[string]Duration{"A": Duration(-1)} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultTuning()
			tt.modify(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestTuning_CooldownFor(t *testing.T) {
	c := DefaultTuning()
	c.Cooldowns = map[string]Duration{"B": Duration(2 * time.Second)}

	assert.Equal(t, 2*time.Second, c.CooldownFor("B"))
	assert.Equal(t, 5*time.Second, c.CooldownFor("A"))
}

func TestParseTuning_Partial(t *testing.T) {
	c, err := ParseTuning([]byte(`{
		"confidence_threshold": 0.8,
		"window_size": 7,
		"cooldown": "750ms",
		"cooldowns": {"D": "10s"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, 0.8, c.ConfidenceThreshold)
	assert.Equal(t, 7, c.WindowSize)
	assert.Equal(t, 750*time.Millisecond, c.CooldownFor("A"))
	assert.Equal(t, 10*time.Second, c.CooldownFor("D"))

	// Untouched fields keep their defaults.
	assert.Equal(t, 3, c.StableCount)
	assert.Equal(t, 0.04, c.ApproxEpsilon)
	assert.True(t, c.Annotate)
}

func TestParseTuning_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown field", `{"confidence": 0.5}`},
		{"bad duration", `{"cooldown": "soon"}`},
		{"numeric duration", `{"cooldown": 5}`},
		{"invalid values", `{"window_size": 2, "stable_count": 3}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTuning([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestTuningPatch_ApplyDoesNotAlias(t *testing.T) {
	base := DefaultTuning()
	base.Cooldowns = map[string]Duration{"A": Duration(time.Second)}

	threshold := 0.9
	patched := TuningPatch{
		ConfidenceThreshold: &threshold,
		Cooldowns:           map[string]Duration{"B": Duration(3 * time.Second)},
	}.Apply(base)

	assert.Equal(t, 0.9, patched.ConfidenceThreshold)
	assert.Equal(t, 0.7, base.ConfidenceThreshold)
	assert.Len(t, patched.Cooldowns, 2)
	assert.Len(t, base.Cooldowns, 1, "Apply modified the base overrides")
}

func TestTuning_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.json")

	c := DefaultTuning()
	c.KernelSize = 5
	c.DebugMasks = true
	c.Cooldowns = map[string]Duration{"C": Duration(1500 * time.Millisecond)}
	require.NoError(t, SaveTuning(path, c))

	loaded, err := LoadTuning(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestLoadTuning_Checks(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "tuning.txt")
	require.NoError(t, os.WriteFile(txt, []byte(`{}`), 0o644))
	_, err := LoadTuning(txt)
	assert.Error(t, err, "non-json extension accepted")

	_, err = LoadTuning(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{}`), 0o644))
	c, err := LoadTuning(empty)
	require.NoError(t, err)
	assert.Equal(t, DefaultTuning(), c)
}

func TestDuration_JSON(t *testing.T) {
	d := Duration(90 * time.Second)
	out, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(out))

	var back Duration
	require.NoError(t, back.UnmarshalJSON(out))
	assert.Equal(t, d, back)
}
