package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/StokesPC/bc"
	"github.com/notargets/StokesPC/physics"
)

const channelCase = `
name: channel
grid:
  xlo: [0, 0]
  xhi: [2, 1]
  cells: [8, 4]
  tile: [4, 4]
  workers: 2
  partition: round-robin
physics:
  rho: 1
  mu: 0.1
time:
  dt: 0.05
boundaries:
  x_lo: {type: inflow, values: [1, 0]}
  x_hi: {type: outflow}
forcing:
  u: [0, -1]
`

func writeCase(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "case.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeCase(t, channelCase))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	want := &Config{
		Name: "channel",
		Grid: GridConfig{
			XLo: []float64{0, 0}, XHi: []float64{2, 1},
			Cells: []int{8, 4}, Tile: []int{4, 4},
			Workers: 2, Partition: "round-robin",
		},
		Physics: physics.StokesSpecifications{Rho: 1, Mu: 0.1},
		Time:    TimeConfig{Dt: 0.05},
		Boundaries: map[string]bc.LocationSpec{
			"x_lo": {Type: "inflow", Values: []float64{1, 0}},
			"x_hi": {Type: "outflow"},
		},
		Forcing: ForcingConfig{U: []float64{0, -1}},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	_, err = LoadConfig(writeCase(t, "grid: [unterminated"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"one dimension", func(c *Config) { c.Grid.Cells = []int{4} }},
		{"extent length", func(c *Config) { c.Grid.XHi = []float64{1} }},
		{"empty extent", func(c *Config) { c.Grid.XHi[0] = c.Grid.XLo[0] }},
		{"zero tile", func(c *Config) { c.Grid.Tile[1] = 0 }},
		{"no workers", func(c *Config) { c.Grid.Workers = 0 }},
		{"partition", func(c *Config) { c.Grid.Partition = "metis" }},
		{"viscosity", func(c *Config) { c.Physics.Mu = 0 }},
		{"unsteady density", func(c *Config) { c.Time.Dt, c.Physics.Rho = 0.1, 0 }},
		{"steady drag", func(c *Config) { c.Physics.Lambda = 1 }},
		{"forcing length", func(c *Config) { c.Forcing.U = []float64{1, 2, 3} }},
		{"location", func(c *Config) {
			c.Boundaries = map[string]bc.LocationSpec{"z_lo": {Type: "wall"}}
		}},
		{"kind", func(c *Config) {
			c.Boundaries = map[string]bc.LocationSpec{"x_lo": {Type: "porous"}}
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestRunClosedCavity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Grid.Cells, cfg.Grid.Tile = []int{8, 8}, []int{4, 4}
	cfg.Forcing.U = []float64{1, 0.5}

	report, err := Run(cfg)
	require.NoError(t, err)
	assert.True(t, report.Nullspace)
	assert.Less(t, report.MaxDivergence, 1.e-8)
	assert.InDelta(t, 0, report.MeanPressure, 1.e-10)
	assert.Greater(t, report.MaxVelocity, 0.)
}

func TestRunChannel(t *testing.T) {
	cfg, err := LoadConfig(writeCase(t, channelCase))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	report, err := Run(cfg)
	require.NoError(t, err)
	assert.False(t, report.Nullspace)
	assert.Less(t, report.MaxDivergence, 1.e-8)
	assert.Greater(t, report.MaxPressure, 0.)
}

func TestRootCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", writeCase(t, channelCase), "--workers", "1"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil); workers = 0; configPath = "" })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "max|div u|")
}
