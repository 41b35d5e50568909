package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/eigenflow/internal/flowmap"
)

const (
	DefaultHorizon       = 0.05
	DefaultDt            = 0.001
	DefaultEpsDu         = 1e-7
	DefaultSmoothness    = 0.4
	DefaultSeed          = 1
	DefaultMaxIterations = 30
	DefaultNumValues     = 5
	DefaultRitzTol       = 1e-6
	DefaultResidualTol   = 1e-6
)

type Config struct {
	Model      string  `yaml:"model"`
	Integrator string  `yaml:"integrator"`
	Horizon    float64 `yaml:"horizon"`
	Dt         float64 `yaml:"dt"`

	EpsDu      float64 `yaml:"eps_du"`
	Seed       int64   `yaml:"seed"`
	Smoothness float64 `yaml:"smoothness"`

	MaxIterations int     `yaml:"max_iterations"`
	NumValues     int     `yaml:"num_values"`
	RitzTol       float64 `yaml:"ritz_tol"`
	ResidualTol   float64 `yaml:"residual_tol"`

	// Equilibrium selects which of the model's known fixed points is
	// the base point; BasePoint overrides it with an explicit vector.
	Equilibrium int       `yaml:"equilibrium"`
	BasePoint   []float64 `yaml:"base_point"`

	// Perturb supplies an explicit seed perturbation; empty means
	// synthesize one from Seed and Smoothness.
	Perturb []float64 `yaml:"perturb"`

	// Poincare switches to the section return map. The base point must
	// then lie on a periodic orbit that crosses the section; a trajectory
	// started at an equilibrium never crosses, so equilibrium indices do
	// not combine with this mode. Use base_point.
	Poincare bool              `yaml:"poincare"`
	Symmetry *flowmap.Symmetry `yaml:"symmetry"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:         "lorenz",
		Integrator:    "rk4",
		Horizon:       DefaultHorizon,
		Dt:            DefaultDt,
		EpsDu:         DefaultEpsDu,
		Seed:          DefaultSeed,
		Smoothness:    DefaultSmoothness,
		MaxIterations: DefaultMaxIterations,
		NumValues:     DefaultNumValues,
		RitzTol:       DefaultRitzTol,
		ResidualTol:   DefaultResidualTol,
	}
}

// Normalize fills zero-valued numeric fields with defaults; presets
// only spell out what they change.
func (c *Config) Normalize() {
	if c.Integrator == "" {
		c.Integrator = "rk4"
	}
	if c.Horizon <= 0 {
		c.Horizon = DefaultHorizon
	}
	if c.Dt <= 0 {
		c.Dt = DefaultDt
	}
	if c.EpsDu <= 0 {
		c.EpsDu = DefaultEpsDu
	}
	if c.Smoothness <= 0 {
		c.Smoothness = DefaultSmoothness
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.NumValues <= 0 {
		c.NumValues = DefaultNumValues
	}
	if c.RitzTol <= 0 {
		c.RitzTol = DefaultRitzTol
	}
	if c.ResidualTol <= 0 {
		c.ResidualTol = DefaultResidualTol
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
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
