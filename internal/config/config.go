// Package config loads and hot-reloads the on-disk TOML configuration for
// one DVA design run: GA tunables, fitness weights, and the parameter
// space.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"devana/internal/dva"
	"devana/internal/fitness"
	"devana/internal/ga"
)

// BoundSpec is one TOML-serializable parameter bound.
type BoundSpec struct {
	Lo    float64 `toml:"lo"`
	Hi    float64 `toml:"hi"`
	Fixed bool    `toml:"fixed"`
	Value float64 `toml:"value"`
}

func (b BoundSpec) toBound() dva.Bound {
	return dva.Bound{Lo: b.Lo, Hi: b.Hi, Fixed: b.Fixed, Value: b.Value}
}

// MassCriteria holds one mass's target/weight TOML tables.
type MassCriteria struct {
	Targets map[string]float64 `toml:"targets"`
	Weights map[string]float64 `toml:"weights"`
}

// MainParamsSpec mirrors dva.MainParams with TOML tags.
type MainParamsSpec struct {
	MU      float64    `toml:"mu"`
	Landa   [5]float64 `toml:"landa"`
	Nu      [5]float64 `toml:"nu"`
	ALow    float64    `toml:"a_low"`
	AUpp    float64    `toml:"a_upp"`
	F1      float64    `toml:"f1"`
	F2      float64    `toml:"f2"`
	OmegaDC float64    `toml:"omega_dc"`
	ZetaDC  float64    `toml:"zeta_dc"`
}

func (m MainParamsSpec) toMainParams() dva.MainParams {
	return dva.MainParams{
		MU: m.MU, Landa: m.Landa, Nu: m.Nu,
		ALow: m.ALow, AUpp: m.AUpp, F1: m.F1, F2: m.F2,
		OmegaDC: m.OmegaDC, ZetaDC: m.ZetaDC,
	}
}

// RunConfig is the full on-disk configuration for one DVA design run.
type RunConfig struct {
	// GA engine
	PopulationSize      int     `toml:"population_size"`
	MaxGenerations      int     `toml:"max_generations"`
	CrossoverProb       float64 `toml:"crossover_prob"`
	MutationProb        float64 `toml:"mutation_prob"`
	Tolerance           float64 `toml:"tolerance"`
	SeedingMethod       string  `toml:"seeding_method"`
	AdaptiveController  string  `toml:"adaptive_controller"`
	UseSurrogate        bool    `toml:"use_surrogate"`
	SurrogateK          int     `toml:"surrogate_k"`
	SurrogateMinObs     int     `toml:"surrogate_min_obs"`
	WatchdogSeconds     int     `toml:"watchdog_seconds"`
	MinCrossoverProb    float64 `toml:"min_crossover_prob"`
	MaxCrossoverProb    float64 `toml:"max_crossover_prob"`
	MinMutationProb     float64 `toml:"min_mutation_prob"`
	MaxMutationProb     float64 `toml:"max_mutation_prob"`
	Seed                uint64  `toml:"seed"`
	SobolSampleSize     int     `toml:"sobol_sample_size"`

	// Fitness function
	Alpha                float64                    `toml:"alpha"`
	PercentageErrorScale float64                    `toml:"percentage_error_scale"`
	CostScale            float64                    `toml:"cost_scale"`
	ActivationThreshold  float64                    `toml:"activation_threshold"`
	ActivationPenalty    float64                    `toml:"activation_penalty"`
	EnhancedCost         bool                       `toml:"enhanced_cost"`
	OmegaStart           float64                    `toml:"omega_start"`
	OmegaEnd             float64                    `toml:"omega_end"`
	OmegaPoints          int                        `toml:"omega_points"`
	SimpleCost           [dva.DVAParamCount]float64 `toml:"simple_cost"`

	MassCriteria [5]MassCriteria `toml:"mass"`

	Main MainParamsSpec `toml:"main"`

	Bounds []BoundSpec `toml:"bounds"`
}

// GetConfigPath returns the default config file path: current directory
// first, then ~/.config/devana/config.toml.
func GetConfigPath() string {
	if _, err := os.Stat("./devana.toml"); err == nil {
		return "./devana.toml"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./devana.toml"
	}
	return filepath.Join(home, ".config", "devana", "config.toml")
}

// Load reads and parses a RunConfig from path. A missing file yields
// DefaultRunConfig().
func Load(path string) (RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRunConfig(), nil
		}
		return DefaultRunConfig(), fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	var cfg RunConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return DefaultRunConfig(), fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating parent directories as
// needed.
func Save(path string, cfg RunConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: failed to create directory %s: %w", dir, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}
	return nil
}

// DefaultRunConfig returns a reasonable starting configuration: a
// uniformly-bounded 48-gene parameter space, equal-weighted
// area-under-curve targets per mass, and ga.DefaultConfig()'s rates.
func DefaultRunConfig() RunConfig {
	gaDefaults := ga.DefaultConfig()

	bounds := make([]BoundSpec, dva.DVAParamCount)
	for i := range bounds {
		bounds[i] = BoundSpec{Lo: -1, Hi: 1}
	}

	var massCriteria [5]MassCriteria
	for m := range massCriteria {
		massCriteria[m] = MassCriteria{
			Targets: map[string]float64{"area_under_curve": 1.0},
			Weights: map[string]float64{"area_under_curve": 0.2},
		}
	}

	return RunConfig{
		PopulationSize:      gaDefaults.PopulationSize,
		MaxGenerations:      gaDefaults.MaxGenerations,
		CrossoverProb:       gaDefaults.CrossoverProb,
		MutationProb:        gaDefaults.MutationProb,
		Tolerance:           gaDefaults.Tolerance,
		SeedingMethod:       string(gaDefaults.SeedingMethod),
		AdaptiveController:  string(gaDefaults.AdaptiveController),
		UseSurrogate:        gaDefaults.UseSurrogate,
		SurrogateK:          gaDefaults.SurrogateK,
		SurrogateMinObs:     gaDefaults.SurrogateMinObs,
		WatchdogSeconds:     gaDefaults.WatchdogSeconds,
		MinCrossoverProb:    gaDefaults.MinCrossoverProb,
		MaxCrossoverProb:    gaDefaults.MaxCrossoverProb,
		MinMutationProb:     gaDefaults.MinMutationProb,
		MaxMutationProb:     gaDefaults.MaxMutationProb,
		SobolSampleSize:     64,

		Alpha:               0.001,
		PercentageErrorScale: 0.01,
		CostScale:           0,
		ActivationThreshold: 0.1,
		ActivationPenalty:   0.01,
		OmegaStart:          0.1,
		OmegaEnd:            100,
		OmegaPoints:         400,

		MassCriteria: massCriteria,
		Main: MainParamsSpec{
			MU:      0.2,
			Landa:   [5]float64{0.1, 0.1, 0.1, 0.1, 0.1},
			Nu:      [5]float64{0.05, 0.05, 0.05, 0.05, 0.05},
			ALow:    1.0,
			AUpp:    0.5,
			F1:      1.0,
			F2:      0.5,
			OmegaDC: 1.0,
			ZetaDC:  0.05,
		},
		Bounds: bounds,
	}
}

// ToGAConfig builds package ga's Config from the persisted tunables.
func (c RunConfig) ToGAConfig() ga.Config {
	return ga.Config{
		PopulationSize:      c.PopulationSize,
		MaxGenerations:      c.MaxGenerations,
		CrossoverProb:       c.CrossoverProb,
		MutationProb:        c.MutationProb,
		Tolerance:           c.Tolerance,
		SeedingMethod:       ga.SeedingMethod(c.SeedingMethod),
		AdaptiveController:  ga.ControllerKind(c.AdaptiveController),
		UseSurrogate:        c.UseSurrogate,
		SurrogateK:          c.SurrogateK,
		SurrogateMinObs:     c.SurrogateMinObs,
		WatchdogSeconds:     c.WatchdogSeconds,
		MinCrossoverProb:    c.MinCrossoverProb,
		MaxCrossoverProb:    c.MaxCrossoverProb,
		MinMutationProb:     c.MinMutationProb,
		MaxMutationProb:     c.MaxMutationProb,
		Seed:                c.Seed,
	}
}

// ToFitnessConfig builds package fitness's Config. logger is not a
// persisted value; pass nil for silent operation or a *log.Logger to
// receive assembly/solve diagnostics.
func (c RunConfig) ToFitnessConfig(logger *log.Logger) fitness.Config {
	var targets fitness.MassTargets
	var weights fitness.MassWeights
	for m := 0; m < 5; m++ {
		targets[m] = c.MassCriteria[m].Targets
		weights[m] = c.MassCriteria[m].Weights
	}

	var simpleCost [dva.DVAParamCount]float64
	copy(simpleCost[:], c.SimpleCost[:])

	return fitness.Config{
		Targets:              targets,
		Weights:              weights,
		Alpha:                c.Alpha,
		PercentageErrorScale: c.PercentageErrorScale,
		CostScale:            c.CostScale,
		ActivationThreshold:  c.ActivationThreshold,
		ActivationPenalty:    c.ActivationPenalty,
		EnhancedCost:         c.EnhancedCost,
		SimpleCost:           simpleCost,
		OmegaStart:           c.OmegaStart,
		OmegaEnd:             c.OmegaEnd,
		OmegaPoints:          c.OmegaPoints,
		Logger:               logger,
	}
}

// ToParameterSpace builds the DVA parameter space from the persisted
// bounds. Missing bound entries default to the full [-1,1] range.
func (c RunConfig) ToParameterSpace() dva.ParameterSpace {
	bounds := make([]dva.Bound, dva.DVAParamCount)
	for i := range bounds {
		if i < len(c.Bounds) {
			bounds[i] = c.Bounds[i].toBound()
		} else {
			bounds[i] = dva.Bound{Lo: -1, Hi: 1}
		}
	}
	return dva.ParameterSpace{Bounds: bounds}
}

// ToMainParams builds the main-system parameter tuple.
func (c RunConfig) ToMainParams() dva.MainParams { return c.Main.toMainParams() }
