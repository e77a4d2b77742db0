package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/capsim/internal/battery"
	"github.com/san-kum/capsim/internal/cache"
	"github.com/san-kum/capsim/internal/compare"
	"github.com/san-kum/capsim/internal/dynamo"
)

const (
	DefaultCrate            = 2.0
	DefaultConvergenceCrate = 1.0
	DefaultVoltageScale     = 6.0
	DefaultYMin             = 10.5
	DefaultYMax             = 13.0
	DefaultInsetSamples     = 40
	DefaultInsetFraction    = 0.4
	DefaultWidth            = 16.0 // centimetres
	DefaultHeight           = 10.0
)

type Config struct {
	Crates           []float64        `yaml:"crates"`
	PlotCrates       []float64        `yaml:"plot_crates,omitempty"`
	Npts             int              `yaml:"npts"`
	ConvergenceCrate float64          `yaml:"convergence_crate"`
	ConvergenceNpts  []int            `yaml:"convergence_npts"`
	Grid             compare.GridSpec `yaml:"grid"`
	Solver           SolverConfig     `yaml:"solver"`
	Params           battery.Params   `yaml:"params"`
	Plot             PlotConfig       `yaml:"plot"`
	Cache            CacheConfig      `yaml:"cache"`
	OutputDir        string           `yaml:"output_dir,omitempty"`
	Format           string           `yaml:"format"`
	Workers          int              `yaml:"workers"`
}

type SolverConfig struct {
	Integrator string  `yaml:"integrator"`
	Dt         float64 `yaml:"dt"`
	Tolerance  float64 `yaml:"tolerance"`
	MaxDt      float64 `yaml:"max_dt"`
	MinDt      float64 `yaml:"min_dt"`
	MaxSteps   int     `yaml:"max_steps"`
}

type PlotConfig struct {
	VoltageScale  float64 `yaml:"voltage_scale"`
	YMin          float64 `yaml:"y_min"`
	YMax          float64 `yaml:"y_max"`
	InsetSamples  int     `yaml:"inset_samples"`
	InsetFraction float64 `yaml:"inset_fraction"`
	Width         float64 `yaml:"width_cm"`
	Height        float64 `yaml:"height_cm"`
}

type CacheConfig struct {
	Dir         string `yaml:"dir"`
	Comparison  string `yaml:"comparison"`
	Convergence string `yaml:"convergence"`
}

func DefaultConfig() *Config {
	dc := dynamo.DefaultConfig()
	return &Config{
		Crates:           []float64{DefaultCrate},
		Npts:             battery.DefaultNpts,
		ConvergenceCrate: DefaultConvergenceCrate,
		ConvergenceNpts:  []int{10, 30, 50},
		Grid:             compare.DefaultGridSpec(),
		Solver: SolverConfig{
			Integrator: "rk45",
			Dt:         dc.Dt,
			Tolerance:  dc.Tolerance,
			MaxDt:      dc.MaxDt,
			MinDt:      dc.MinDt,
			MaxSteps:   dc.MaxSteps,
		},
		Params: battery.DefaultParams(),
		Plot: PlotConfig{
			VoltageScale:  DefaultVoltageScale,
			YMin:          DefaultYMin,
			YMax:          DefaultYMax,
			InsetSamples:  DefaultInsetSamples,
			InsetFraction: DefaultInsetFraction,
			Width:         DefaultWidth,
			Height:        DefaultHeight,
		},
		Cache: CacheConfig{
			Dir:         ".",
			Comparison:  cache.NameComparison,
			Convergence: cache.NameConvergence,
		},
		Format:  "png",
		Workers: 1,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the values the sweeps and plots cannot recover from.
func (c *Config) Validate() error {
	if len(c.Crates) == 0 {
		return fmt.Errorf("config: no C-rates")
	}
	if len(c.ConvergenceNpts) == 0 {
		return fmt.Errorf("config: no convergence grid sizes")
	}
	if c.Plot.YMax <= c.Plot.YMin {
		return fmt.Errorf("config: y range [%g, %g] is empty", c.Plot.YMin, c.Plot.YMax)
	}
	if c.Plot.InsetSamples < 2 {
		return fmt.Errorf("config: inset needs at least 2 samples")
	}
	if c.Plot.InsetFraction <= 0 || c.Plot.InsetFraction >= 1 {
		return fmt.Errorf("config: inset fraction %g outside (0, 1)", c.Plot.InsetFraction)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: negative worker count")
	}
	switch c.Format {
	case "png", "svg", "eps", "pdf", "jpg", "tif", "html", "json", "csv":
	default:
		return fmt.Errorf("config: unknown output format %q", c.Format)
	}
	return nil
}

// GetSolver assembles the solver settings for battery.Model.Solve.
func (c *Config) GetSolver() battery.Solver {
	dc := dynamo.DefaultConfig()
	dc.Dt = c.Solver.Dt
	dc.Tolerance = c.Solver.Tolerance
	dc.MaxDt = c.Solver.MaxDt
	dc.MinDt = c.Solver.MinDt
	dc.MaxSteps = c.Solver.MaxSteps
	dc.Adaptive = c.Solver.Integrator == "rk45"
	return battery.Solver{Integrator: c.Solver.Integrator, Config: dc}
}

// GetSweepOptions returns the compare options for this config.
func (c *Config) GetSweepOptions() compare.Options {
	return compare.Options{Solver: c.GetSolver(), Workers: c.Workers}
}

// GetPlotCrates returns the C-rates to plot, all computed ones by default.
func (c *Config) GetPlotCrates() []float64 {
	if len(c.PlotCrates) > 0 {
		return c.PlotCrates
	}
	return c.Crates
}
