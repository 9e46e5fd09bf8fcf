package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomz197/sieve/internal/phase"
	"github.com/tomz197/sieve/internal/tilt"
)

func TestDefaultTuningMatchesPackages(t *testing.T) {
	tu := DefaultTuning()
	require.NoError(t, tu.Validate())
	assert.Equal(t, tilt.DefaultParams(), tu.TiltParams())
	assert.Equal(t, phase.DefaultThresholds(), tu.Thresholds())
	assert.Equal(t, time.Second, tu.Phase.CheckInterval)
	assert.Equal(t, 2.5, tu.Phase.ClearRadius)
}

func TestLoadTuningOverlaysDefaults(t *testing.T) {
	doc := `
phase:
  check_interval: 800ms
  gather_radius: 1.2
tilt:
  smoothing: 0.5
`
	tu, err := LoadTuning(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, 800*time.Millisecond, tu.Phase.CheckInterval)
	assert.Equal(t, 1.2, tu.Phase.GatherRadius)
	assert.Equal(t, 0.5, tu.Tilt.Smoothing)

	def := DefaultTuning()
	assert.Equal(t, def.Phase.ClearHeight, tu.Phase.ClearHeight)
	assert.Equal(t, def.Tilt.Limit, tu.Tilt.Limit)
	assert.Equal(t, def.Bridge, tu.Bridge)
}

func TestLoadTuningEmptyDocument(t *testing.T) {
	tu, err := LoadTuning(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultTuning(), tu)
}

func TestLoadTuningRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"zero limit", "tilt:\n  limit: 0\n"},
		{"smoothing above one", "tilt:\n  smoothing: 1.5\n"},
		{"negative interval", "phase:\n  check_interval: -1s\n"},
		{"zero gather radius", "phase:\n  gather_radius: 0\n"},
		{"zero burst", "bridge:\n  orientation_burst: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTuning(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidTuning)
		})
	}
}

func TestLoadTuningBadYAML(t *testing.T) {
	_, err := LoadTuning(strings.NewReader("tilt: [1, 2"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidTuning)
}

func TestTuningFromEnv(t *testing.T) {
	t.Setenv(EnvTuning, "")
	tu, err := TuningFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultTuning(), tu)

	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("phase:\n  clear_radius: 3\n"), 0o600))
	t.Setenv(EnvTuning, path)

	tu, err = TuningFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 3.0, tu.Phase.ClearRadius)

	t.Setenv(EnvTuning, filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = TuningFromEnv()
	assert.Error(t, err)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("SIEVE_TEST_KEY", "value")
	assert.Equal(t, "value", GetEnv("SIEVE_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", GetEnv("SIEVE_TEST_MISSING", "fallback"))
}
