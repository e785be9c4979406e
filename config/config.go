// Package config holds the solver settings of every engine with documented
// defaults, and loads overrides from a file and HWB_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/meenmo/hwbermudan/amc"
	"github.com/meenmo/hwbermudan/calibration"
	"github.com/meenmo/hwbermudan/density"
	"github.com/meenmo/hwbermudan/hullwhite"
	"github.com/meenmo/hwbermudan/internal/logger"
	"github.com/meenmo/hwbermudan/mcsim"
	"github.com/meenmo/hwbermudan/numerics"
	"github.com/meenmo/hwbermudan/pde"
)

// Config holds solver and engine parameters.
type Config struct {
	Root        RootConfig        `mapstructure:"root"`
	PDE         PDEConfig         `mapstructure:"pde"`
	Density     DensityConfig     `mapstructure:"density"`
	AMC         AMCConfig         `mapstructure:"amc"`
	Calibration CalibrationConfig `mapstructure:"calibration"`
	// Workers bounds the goroutines of every fan-out.
	Workers int           `mapstructure:"workers"`
	Logger  logger.Config `mapstructure:"logger"`
}

// RootConfig is the exercise-boundary search of the coupon-bond option.
type RootConfig struct {
	ExerciseLower float64 `mapstructure:"exercise_lower"`
	ExerciseUpper float64 `mapstructure:"exercise_upper"`
	Tolerance     float64 `mapstructure:"tolerance"`
	MaxIterations int     `mapstructure:"max_iterations"`
}

type PDEConfig struct {
	GridPoints int     `mapstructure:"grid_points"`
	StdDevs    float64 `mapstructure:"std_devs"`
	Theta      float64 `mapstructure:"theta"`
	TimeStep   float64 `mapstructure:"time_step"`
	// FixedBoundaryCurvature switches off the curvature estimate in favour of BoundaryCurvature.
	FixedBoundaryCurvature bool    `mapstructure:"fixed_boundary_curvature"`
	BoundaryCurvature      float64 `mapstructure:"boundary_curvature"`
	CurvatureTolerance     float64 `mapstructure:"curvature_tolerance"`
}

type DensityConfig struct {
	// cubic-spline-exact, simpson or hermite
	Method        string  `mapstructure:"method"`
	GridPoints    int     `mapstructure:"grid_points"`
	StdDevs       float64 `mapstructure:"std_devs"`
	HermiteDegree int     `mapstructure:"hermite_degree"`
	BreakEven     bool    `mapstructure:"break_even"`
}

type AMCConfig struct {
	Paths               int     `mapstructure:"paths"`
	Seed                uint64  `mapstructure:"seed"`
	SplitRatio          float64 `mapstructure:"split_ratio"`
	MaxPolynomialDegree int     `mapstructure:"max_polynomial_degree"`
	Strategy            string  `mapstructure:"strategy"`
	// SimulationStep is the largest step between simulation times.
	SimulationStep float64 `mapstructure:"simulation_step"`
}

type CalibrationConfig struct {
	LowerFactor    float64 `mapstructure:"lower_factor"`
	UpperFactor    float64 `mapstructure:"upper_factor"`
	ImpliedLower   float64 `mapstructure:"implied_lower"`
	ImpliedUpper   float64 `mapstructure:"implied_upper"`
	MaxEvaluations int     `mapstructure:"max_evaluations"`
}

// DefaultConfig provides production-ready default values.
var DefaultConfig = Config{
	Root: RootConfig{
		ExerciseLower: -0.3,
		ExerciseUpper: 0.3,
		Tolerance:     1.0e-8,
		MaxIterations: 200,
	},
	PDE: PDEConfig{
		GridPoints:         101,
		StdDevs:            5,
		Theta:              0.5,
		TimeStep:           1.0 / 12.0,
		CurvatureTolerance: 1.0e-8,
	},
	Density: DensityConfig{
		Method:        "cubic-spline-exact",
		GridPoints:    101,
		StdDevs:       5,
		HermiteDegree: 11,
		BreakEven:     true,
	},
	AMC: AMCConfig{
		Paths:               10000,
		Seed:                123,
		SplitRatio:          0.25,
		MaxPolynomialDegree: 2,
		Strategy:            "exercise-boundary",
		SimulationStep:      0.25,
	},
	Calibration: CalibrationConfig{
		LowerFactor:    0.01,
		UpperFactor:    10.0,
		ImpliedLower:   -0.05,
		ImpliedUpper:   0.15,
		MaxEvaluations: 200,
	},
	Workers: 4,
	Logger:  logger.DefaultConfig,
}

// cfg is the active configuration. Defaults to DefaultConfig.
var cfg = DefaultConfig

// SetConfig replaces the active configuration.
func SetConfig(c Config) {
	cfg = c
}

// GetConfig returns the active configuration.
func GetConfig() Config {
	return cfg
}

// Load reads TOML, YAML or JSON from path (skipped when empty), applies HWB_*
// environment overrides such as HWB_PDE_GRID_POINTS, and fills the rest from DefaultConfig.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config.Load: read %s: %w", path, err)
		}
	}
	v.SetEnvPrefix("HWB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config.Load: unmarshal: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &c, nil
}

// Validate checks ranges the engines would reject later.
func (c *Config) Validate() error {
	switch {
	case !(c.Root.ExerciseLower < c.Root.ExerciseUpper):
		return fmt.Errorf("root: empty exercise bracket [%g, %g]: %w", c.Root.ExerciseLower, c.Root.ExerciseUpper, numerics.ErrInvalidInput)
	case c.PDE.GridPoints < 3:
		return fmt.Errorf("pde: grid_points %d: %w", c.PDE.GridPoints, numerics.ErrInvalidInput)
	case c.PDE.Theta < 0 || c.PDE.Theta > 1:
		return fmt.Errorf("pde: theta %g: %w", c.PDE.Theta, numerics.ErrInvalidInput)
	case !(c.PDE.TimeStep > 0):
		return fmt.Errorf("pde: time_step %g: %w", c.PDE.TimeStep, numerics.ErrInvalidInput)
	case c.Density.GridPoints < 1:
		return fmt.Errorf("density: grid_points %d: %w", c.Density.GridPoints, numerics.ErrInvalidInput)
	case c.AMC.SplitRatio < 0 || c.AMC.SplitRatio > 1:
		return fmt.Errorf("amc: split_ratio %g: %w", c.AMC.SplitRatio, numerics.ErrInvalidInput)
	case c.AMC.Paths <= 0:
		return fmt.Errorf("amc: paths %d: %w", c.AMC.Paths, numerics.ErrInvalidInput)
	case !(c.Calibration.LowerFactor < c.Calibration.UpperFactor):
		return fmt.Errorf("calibration: factors [%g, %g]: %w", c.Calibration.LowerFactor, c.Calibration.UpperFactor, numerics.ErrInvalidInput)
	}
	if _, err := amc.ParseStrategy(c.AMC.Strategy); err != nil {
		return err
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig
	v.SetDefault("root.exercise_lower", d.Root.ExerciseLower)
	v.SetDefault("root.exercise_upper", d.Root.ExerciseUpper)
	v.SetDefault("root.tolerance", d.Root.Tolerance)
	v.SetDefault("root.max_iterations", d.Root.MaxIterations)

	v.SetDefault("pde.grid_points", d.PDE.GridPoints)
	v.SetDefault("pde.std_devs", d.PDE.StdDevs)
	v.SetDefault("pde.theta", d.PDE.Theta)
	v.SetDefault("pde.time_step", d.PDE.TimeStep)
	v.SetDefault("pde.fixed_boundary_curvature", d.PDE.FixedBoundaryCurvature)
	v.SetDefault("pde.boundary_curvature", d.PDE.BoundaryCurvature)
	v.SetDefault("pde.curvature_tolerance", d.PDE.CurvatureTolerance)

	v.SetDefault("density.method", d.Density.Method)
	v.SetDefault("density.grid_points", d.Density.GridPoints)
	v.SetDefault("density.std_devs", d.Density.StdDevs)
	v.SetDefault("density.hermite_degree", d.Density.HermiteDegree)
	v.SetDefault("density.break_even", d.Density.BreakEven)

	v.SetDefault("amc.paths", d.AMC.Paths)
	v.SetDefault("amc.seed", d.AMC.Seed)
	v.SetDefault("amc.split_ratio", d.AMC.SplitRatio)
	v.SetDefault("amc.max_polynomial_degree", d.AMC.MaxPolynomialDegree)
	v.SetDefault("amc.strategy", d.AMC.Strategy)
	v.SetDefault("amc.simulation_step", d.AMC.SimulationStep)

	v.SetDefault("calibration.lower_factor", d.Calibration.LowerFactor)
	v.SetDefault("calibration.upper_factor", d.Calibration.UpperFactor)
	v.SetDefault("calibration.implied_lower", d.Calibration.ImpliedLower)
	v.SetDefault("calibration.implied_upper", d.Calibration.ImpliedUpper)
	v.SetDefault("calibration.max_evaluations", d.Calibration.MaxEvaluations)

	v.SetDefault("workers", d.Workers)

	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.format", d.Logger.Format)
	v.SetDefault("logger.output", d.Logger.Output)
	v.SetDefault("logger.file_path", d.Logger.FilePath)
	v.SetDefault("logger.max_size", d.Logger.MaxSize)
	v.SetDefault("logger.max_backups", d.Logger.MaxBackups)
	v.SetDefault("logger.max_age", d.Logger.MaxAge)
	v.SetDefault("logger.compress", d.Logger.Compress)
	v.SetDefault("logger.with_caller", d.Logger.WithCaller)
}

func (c Config) rootOptions() numerics.RootOptions {
	return numerics.RootOptions{Tolerance: c.Root.Tolerance, MaxIterations: c.Root.MaxIterations}
}

// HullWhiteOptions is the model's exercise-boundary search.
func (c Config) HullWhiteOptions() hullwhite.Options {
	return hullwhite.Options{
		ExerciseBracket: numerics.Bracket{Lower: c.Root.ExerciseLower, Upper: c.Root.ExerciseUpper},
		Root:            c.rootOptions(),
	}
}

func (c Config) PDESettings() pde.Settings {
	s := pde.Settings{
		GridPoints:         c.PDE.GridPoints,
		StdDevs:            c.PDE.StdDevs,
		Theta:              c.PDE.Theta,
		TimeStep:           c.PDE.TimeStep,
		CurvatureTolerance: c.PDE.CurvatureTolerance,
	}
	if c.PDE.FixedBoundaryCurvature {
		lambda := c.PDE.BoundaryCurvature
		s.BoundaryCurvature = &lambda
	}
	return s
}

func (c Config) DensitySettings() density.Settings {
	return density.Settings{
		GridPoints: c.Density.GridPoints,
		StdDevs:    c.Density.StdDevs,
		Workers:    c.Workers,
	}
}

func (c Config) SimulationSettings() mcsim.Settings {
	return mcsim.Settings{Paths: c.AMC.Paths, Seed: c.AMC.Seed, Workers: c.Workers}
}

func (c Config) AMCSettings() (amc.Settings, error) {
	st, err := amc.ParseStrategy(c.AMC.Strategy)
	if err != nil {
		return amc.Settings{}, err
	}
	return amc.Settings{
		MaxPolynomialDegree: c.AMC.MaxPolynomialDegree,
		SplitRatio:          c.AMC.SplitRatio,
		Strategy:            st,
		Workers:             c.Workers,
	}, nil
}

func (c Config) CalibrationSettings() calibration.Settings {
	return calibration.Settings{
		LowerFactor:    c.Calibration.LowerFactor,
		UpperFactor:    c.Calibration.UpperFactor,
		Root:           c.rootOptions(),
		ImpliedBracket: numerics.Bracket{Lower: c.Calibration.ImpliedLower, Upper: c.Calibration.ImpliedUpper},
		MaxEvaluations: c.Calibration.MaxEvaluations,
	}
}
