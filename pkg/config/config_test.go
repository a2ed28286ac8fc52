package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-vortex/pkg/influence"
	"github.com/dd0wney/cluso-vortex/pkg/vortex"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, vortex.DefaultSettings(), cfg.Settings())

	fc, err := cfg.FlowCondition()
	require.NoError(t, err)
	assert.False(t, fc.Supersonic())
	assert.InDelta(t, 1.225, fc.Density(), 1e-12)
}

func TestParse(t *testing.T) {
	doc := `
flow:
  mach: 0.6
  velocity: [200, 0, 10]
  density: 0.9
kernel:
  core_ratio: 0.05
lattice:
  span: 12
  refine: 1
influence:
  workers: 4
logging:
  level: debug
`
	cfg, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, 0.6, cfg.Flow.Mach)
	assert.Equal(t, [3]float64{200, 0, 10}, cfg.Flow.Velocity)
	assert.Equal(t, 0.05, cfg.Kernel.CoreRatio)
	// untouched keys keep defaults
	assert.Equal(t, vortex.DefaultSettings().TransitionFactor, cfg.Kernel.TransitionFactor)
	assert.Equal(t, 12.0, cfg.Lattice.Span)
	assert.Equal(t, 1, cfg.Lattice.Refine)
	assert.Equal(t, influence.DefaultLatticeOptions().SpanPanels, cfg.Lattice.SpanPanels)
	assert.Equal(t, 4, cfg.Workers())
	assert.Equal(t, "debug", cfg.Logging.Level)

	fc, err := cfg.FlowCondition()
	require.NoError(t, err)
	assert.InDelta(t, 0.64, fc.Beta2(), 1e-12)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
		substr  string
	}{
		{"unknown key", "flow:\n  speed: 3\n", nil, "speed"},
		{"negative mach", "flow:\n  mach: -0.5\n", nil, "Mach"},
		{"hypersonic", "flow:\n  mach: 7\n", nil, "Mach"},
		{"sonic", "flow:\n  mach: 1.0\n", vortex.ErrSonicMach, ""},
		{"zero velocity", "flow:\n  velocity: [0, 0, 0]\n", vortex.ErrZeroFreeStream, ""},
		{"zero density", "flow:\n  density: 0\n", nil, "Density"},
		{"collocation above core", "kernel:\n  core_ratio: 0.01\n  collocation_ratio: 0.02\n", vortex.ErrInvalidSettings, ""},
		{"transition factor", "kernel:\n  transition_factor: 0.5\n", nil, "TransitionFactor"},
		{"empty lattice", "lattice:\n  span_panels: 0\n", nil, "SpanPanels"},
		{"over-refined lattice", "lattice:\n  refine: 12\n", nil, "Refine"},
		{"too many workers", "influence:\n  workers: 5000\n", nil, "Workers"},
		{"log level", "logging:\n  level: chatty\n", nil, "Logging.Level"},
		{"malformed", "flow: [\n", nil, "decode yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "error %v is not %v", err, tt.wantErr)
			}
			if tt.substr != "" {
				assert.Contains(t, err.Error(), tt.substr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vortex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("flow:\n  mach: 2.0\n  velocity: [600, 0, 0]\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	fc, err := cfg.FlowCondition()
	require.NoError(t, err)
	assert.True(t, fc.Supersonic())

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWorkersDefaultsToCPUCount(t *testing.T) {
	cfg := Default()
	assert.Equal(t, min(runtime.NumCPU(), 1024), cfg.Workers())
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "warn"

	var sb strings.Builder
	logger := cfg.Logger(&sb)
	logger.Info("dropped")
	logger.Warn("kept")

	assert.NotContains(t, sb.String(), "dropped")
	assert.Contains(t, sb.String(), "kept")
}
