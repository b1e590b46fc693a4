package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/notargets/StokesPC/bc"
	"github.com/notargets/StokesPC/partitions"
	"github.com/notargets/StokesPC/physics"
)

// Config is the case file of one preconditioner application
type Config struct {
	Name       string                       `yaml:"name"`
	Grid       GridConfig                   `yaml:"grid"`
	Physics    physics.StokesSpecifications `yaml:"physics"`
	Time       TimeConfig                   `yaml:"time"`
	Boundaries map[string]bc.LocationSpec   `yaml:"boundaries"`
	Forcing    ForcingConfig                `yaml:"forcing"`
}

// GridConfig describes a uniform single level box
type GridConfig struct {
	XLo       []float64 `yaml:"xlo"`
	XHi       []float64 `yaml:"xhi"`
	Cells     []int     `yaml:"cells"`
	Tile      []int     `yaml:"tile"`
	Workers   int       `yaml:"workers"`
	Partition string    `yaml:"partition"`
}

// TimeConfig holds the time interval, Dt <= 0 selects the steady problem
type TimeConfig struct {
	Dt   float64 `yaml:"dt"`
	Time float64 `yaml:"time"`
}

// ForcingConfig is a constant right hand side, U per velocity component
type ForcingConfig struct {
	U []float64 `yaml:"u"`
	P float64   `yaml:"p"`
}

// DefaultConfig is a steady lid-free cavity with a constant body force
func DefaultConfig() *Config {
	return &Config{
		Name: "cavity",
		Grid: GridConfig{
			XLo:       []float64{0, 0},
			XHi:       []float64{1, 1},
			Cells:     []int{16, 16},
			Tile:      []int{8, 8},
			Workers:   2,
			Partition: partitions.CostBalanced.String(),
		},
		Physics: physics.StokesSpecifications{Rho: 1, Mu: 1},
		Forcing: ForcingConfig{U: []float64{1, 0}},
	}
}

// LoadConfig reads a YAML case file over the defaults. A missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Dim() int { return len(c.Grid.Cells) }

// Validate checks the case for consistency before anything is allocated
func (c *Config) Validate() error {
	dim := c.Dim()
	if dim != 2 && dim != 3 {
		return fmt.Errorf("grid: %d dimensions, need 2 or 3", dim)
	}
	g := c.Grid
	if len(g.XLo) != dim || len(g.XHi) != dim || len(g.Tile) != dim {
		return fmt.Errorf("grid: xlo, xhi and tile must have %d entries", dim)
	}
	for d := 0; d < dim; d++ {
		if g.XHi[d] <= g.XLo[d] {
			return fmt.Errorf("grid: empty extent along axis %d", d)
		}
		if g.Cells[d] < 1 || g.Tile[d] < 1 {
			return fmt.Errorf("grid: cells and tile must be positive along axis %d", d)
		}
	}
	if g.Workers < 1 {
		return fmt.Errorf("grid: workers must be positive, got %d", g.Workers)
	}
	if _, err := partitions.ParseStrategy(g.Partition); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	if c.Physics.Mu <= 0 {
		return fmt.Errorf("physics: mu must be positive, got %g", c.Physics.Mu)
	}
	if c.Time.Dt > 0 && c.Physics.Rho <= 0 {
		return fmt.Errorf("physics: rho must be positive for an unsteady case")
	}
	if c.Time.Dt <= 0 && c.Physics.Lambda != 0 {
		return fmt.Errorf("physics: drag needs a time step, got dt = %g", c.Time.Dt)
	}
	if len(c.Forcing.U) > dim {
		return fmt.Errorf("forcing: %d velocity components for %d dimensions", len(c.Forcing.U), dim)
	}
	for name, spec := range c.Boundaries {
		if _, err := bc.ParseLocation(name, dim); err != nil {
			return fmt.Errorf("boundaries: %w", err)
		}
		if _, err := bc.ParseKind(spec.Type); err != nil {
			return fmt.Errorf("boundaries: %s: %w", name, err)
		}
	}
	return nil
}
