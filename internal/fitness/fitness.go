// Package fitness composes the FRF pipeline (package frf, package
// criteria) into the scalar objective the GA engine minimizes,
// including memoization and the simple/enhanced cost models.
package fitness

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"sync"
	"sync/atomic"

	"devana/internal/criteria"
	"devana/internal/dva"
	"devana/internal/frf"
)

// CacheDigits is the number of decimal digits used to canonicalize a
// parameter vector for cache lookups.
const CacheDigits = 12

// CostCategory partitions DVA parameters for the enhanced cost-benefit
// model.
type CostCategory int

const (
	CategoryMaterial CostCategory = iota
	CategoryManufacturing
	CategoryMaintenance
	CategoryOperational
	categoryCount
)

// MassTargets/MassWeights bundle the five per-mass target/weight maps.
type MassTargets [5]criteria.Targets
type MassWeights [5]criteria.Weights

// Config captures every fitness tunable plus the targets/weights the
// Scalarizer needs. Validate() must pass before a Function is constructed
// — a rejected config means the engine never starts (ConfigurationInvalid).
type Config struct {
	Targets MassTargets
	Weights MassWeights

	Alpha               float64 // sparsity weight
	PercentageErrorScale float64
	CostScale           float64
	ActivationThreshold float64
	ActivationPenalty   float64

	EnhancedCost    bool
	CategoryWeights [categoryCount]float64 // must sum to 1 when EnhancedCost
	CategoryCost    [dva.DVAParamCount]float64
	CategoryOf      [dva.DVAParamCount]CostCategory

	SimpleCost [dva.DVAParamCount]float64 // per-gene c_i for the simple cost model

	OmegaStart  float64
	OmegaEnd    float64
	OmegaPoints int

	Logger *log.Logger
}

// ErrConfigurationInvalid wraps a validation failure.
type ErrConfigurationInvalid struct{ Reason string }

func (e ErrConfigurationInvalid) Error() string {
	return fmt.Sprintf("fitness: invalid configuration: %s (ConfigurationInvalid)", e.Reason)
}

// Validate checks the enumerated constraints.
func (c Config) Validate() error {
	switch {
	case c.OmegaStart <= 0:
		return ErrConfigurationInvalid{"omega_start must be > 0"}
	case c.OmegaEnd <= c.OmegaStart:
		return ErrConfigurationInvalid{"omega_end must be > omega_start"}
	case c.OmegaPoints < 2:
		return ErrConfigurationInvalid{"omega_points must be >= 2"}
	case c.Alpha < 0:
		return ErrConfigurationInvalid{"alpha must be >= 0"}
	case c.PercentageErrorScale < 0:
		return ErrConfigurationInvalid{"percentage_error_scale must be >= 0"}
	case c.CostScale < 0:
		return ErrConfigurationInvalid{"cost_scale must be >= 0"}
	case c.ActivationThreshold < 0 || c.ActivationThreshold > 1:
		return ErrConfigurationInvalid{"activation_threshold must be in [0,1]"}
	case c.ActivationPenalty < 0:
		return ErrConfigurationInvalid{"activation_penalty must be >= 0"}
	}
	if c.EnhancedCost {
		sum := 0.0
		for _, w := range c.CategoryWeights {
			sum += w
		}
		if math.Abs(sum-1) > 1e-6 {
			return ErrConfigurationInvalid{"enhanced cost category weights must sum to 1"}
		}
	}
	return nil
}

// Breakdown reports every component contributing to a fitness value, for
// host-side display.
type Breakdown struct {
	SingularResponse float64
	Composites       [5]float64
	Sparsity         float64
	PercentageError  float64
	ActivationCount  int
	ActivationTerm   float64
	Cost             float64
	Total            float64
	Invalid          bool
	FailureReason    string
}

// Function is the constructed, cacheable fitness evaluator: a pure
// function of its inputs plus the configuration captured at construction.
type Function struct {
	cfg  Config
	grid dva.FrequencyGrid

	mu    sync.Mutex
	cache map[string]Breakdown
	hits  atomic.Int64
}

// NewFunction validates cfg and builds a Function over the configured
// frequency grid. Returns ErrConfigurationInvalid if cfg fails validation.
func NewFunction(cfg Config) (*Function, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	criteria.Logger = cfg.Logger
	return &Function{
		cfg:   cfg,
		grid:  dva.NewFrequencyGrid(cfg.OmegaStart, cfg.OmegaEnd, cfg.OmegaPoints),
		cache: make(map[string]Breakdown),
	}, nil
}

// Evaluate scores one individual's DVA parameter vector against a fixed
// set of main parameters, returning a non-negative scalar to minimize (or
// +Inf on pipeline failure). Results are memoized by a
// canonical-rounded key; cache hits skip the FRF pipeline entirely.
func (fn *Function) Evaluate(main dva.MainParams, genes []float64) float64 {
	return fn.EvaluateWithBreakdown(main, genes, true).Total
}

// EvaluateWithBreakdown is Evaluate plus the full component breakdown;
// useCache=false bypasses the memo table entirely — this is the canonical
// path for final best-individual re-evaluation, so the returned fitness
// always matches a fresh FRF pass rather than a possibly-stale memo entry.
func (fn *Function) EvaluateWithBreakdown(main dva.MainParams, genes []float64, useCache bool) Breakdown {
	key := canonicalKey(genes)

	if useCache {
		fn.mu.Lock()
		if cached, ok := fn.cache[key]; ok {
			fn.mu.Unlock()
			fn.hits.Add(1)
			return cached
		}
		fn.mu.Unlock()
	}

	bd := fn.evaluateUncached(main, genes)

	if useCache {
		fn.mu.Lock()
		fn.cache[key] = bd
		fn.mu.Unlock()
	}
	return bd
}

// CacheLen reports the number of distinct parameter vectors memoized so
// far (diagnostic / test hook).
func (fn *Function) CacheLen() int {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	return len(fn.cache)
}

// CacheHits reports the number of Evaluate/EvaluateWithBreakdown calls
// that were satisfied from the memo table instead of a fresh FRF pass.
func (fn *Function) CacheHits() int64 { return fn.hits.Load() }

func (fn *Function) evaluateUncached(main dva.MainParams, genes []float64) Breakdown {
	d := dva.DVAParamsFromSlice(genes)
	sys := frf.Assemble(main, d)

	if sys.HasNaN() {
		if fn.cfg.Logger != nil {
			fn.cfg.Logger.Printf("fitness: AssemblyInvalid for genes (NaN in assembled matrices)")
		}
		return Breakdown{Invalid: true, FailureReason: "AssemblyInvalid", Total: math.Inf(1)}
	}

	red, err := frf.Reduce(sys, 0)
	if err != nil {
		if fn.cfg.Logger != nil {
			fn.cfg.Logger.Printf("fitness: %v", err)
		}
		return Breakdown{Invalid: true, FailureReason: "AllZeroMass", Total: math.Inf(1)}
	}

	resp, err := frf.Solve(sys, red, fn.grid, main.OmegaDC)
	if err != nil {
		if fn.cfg.Logger != nil {
			fn.cfg.Logger.Printf("fitness: %v", err)
		}
		return Breakdown{Invalid: true, FailureReason: "LinAlgError", Total: math.Inf(1)}
	}

	var composites [5]float64
	pctErr := 0.0
	for mass := 0; mass < 5; mass++ {
		mag := resp.Magnitude(mass + 1) // DOFs 1..5 are the five masses
		res := criteria.Extract(fn.grid.Omega, mag)
		composites[mass] = criteria.Scalarize(res, fn.cfg.Targets[mass], fn.cfg.Weights[mass])
		pctErr += percentageError(res, fn.cfg.Targets[mass], fn.cfg.Weights[mass])
	}

	singular := criteria.SingularResponse(composites)

	sparsity := 0.0
	activeCount := 0
	for _, g := range genes {
		sparsity += math.Abs(g)
		if g > fn.cfg.ActivationThreshold {
			activeCount++
		}
	}

	var cost float64
	if fn.cfg.EnhancedCost {
		cost = fn.enhancedCost(genes, singular)
	} else {
		cost = fn.simpleCost(genes)
	}

	activationTerm := fn.cfg.ActivationPenalty * float64(activeCount)

	total := math.Abs(singular-1) +
		fn.cfg.Alpha*sparsity +
		fn.cfg.PercentageErrorScale*pctErr +
		activationTerm +
		fn.cfg.CostScale*cost

	return Breakdown{
		SingularResponse: singular,
		Composites:       composites,
		Sparsity:         sparsity,
		PercentageError:  pctErr,
		ActivationCount:  activeCount,
		ActivationTerm:   activationTerm,
		Cost:             cost,
		Total:            total,
	}
}

func (fn *Function) simpleCost(genes []float64) float64 {
	cost := 0.0
	for i, g := range genes {
		if i < len(fn.cfg.SimpleCost) {
			cost += fn.cfg.SimpleCost[i] * g
		}
	}
	return cost
}

// enhancedCost partitions parameters into material/manufacturing/
// maintenance/operational categories, applies category-specific scaling,
// and adds a benefit term proportional to singular-response proximity to
// target.
func (fn *Function) enhancedCost(genes []float64, singular float64) float64 {
	var perCategory [categoryCount]float64
	for i, g := range genes {
		if i >= len(fn.cfg.CategoryOf) {
			continue
		}
		cat := fn.cfg.CategoryOf[i]
		perCategory[cat] += fn.cfg.CategoryCost[i] * g
	}

	cost := 0.0
	for cat := CostCategory(0); cat < categoryCount; cat++ {
		cost += fn.cfg.CategoryWeights[cat] * perCategory[cat]
	}

	benefit := 1.0 / (1.0 + math.Abs(singular-1))
	return cost - benefit
}

// percentageError sums |actual-target|/max(|target|,eps) in percent, over
// every criterion present in both targets and weights.
func percentageError(res criteria.Result, targets criteria.Targets, weights criteria.Weights) float64 {
	const eps = 1e-9
	total := 0.0
	for name := range weights {
		target, ok := targets[name]
		if !ok {
			continue
		}
		actual, ok := lookupPublic(res, name)
		if !ok {
			continue
		}
		denom := math.Max(math.Abs(target), eps)
		total += 100 * math.Abs(actual-target) / denom
	}
	return total
}

// lookupPublic re-derives the same name resolution Scalarize uses
// internally; kept local to avoid exporting criteria's internal lookup.
func lookupPublic(res criteria.Result, name string) (float64, bool) {
	switch {
	case name == "slope_max":
		return res.SlopeMax, true
	case name == "area_under_curve":
		return res.AreaUnderCurve, true
	}
	if v, ok := res.Bandwidth(parseTwoSuffix(name, "bandwidth_")); ok {
		return v, true
	}
	if k, ok := parseOneSuffix(name, "peak_value_"); ok {
		if _, v, ok := res.PeakPositionValue(k); ok {
			return v, true
		}
	}
	if k, ok := parseOneSuffix(name, "peak_position_"); ok {
		if p, _, ok := res.PeakPositionValue(k); ok {
			return float64(p), true
		}
	}
	return 0, false
}

func parseOneSuffix(name, prefix string) (int, bool) {
	if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
		return 0, false
	}
	k, err := strconv.Atoi(name[len(prefix):])
	if err != nil {
		return 0, false
	}
	return k, true
}

func parseTwoSuffix(name, prefix string) (int, int) {
	if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
		return -1, -1
	}
	rest := name[len(prefix):]
	for idx := 0; idx < len(rest); idx++ {
		if rest[idx] == '_' {
			i, err1 := strconv.Atoi(rest[:idx])
			j, err2 := strconv.Atoi(rest[idx+1:])
			if err1 == nil && err2 == nil {
				return i, j
			}
		}
	}
	return -1, -1
}

// canonicalKey rounds each gene to CacheDigits decimal digits and encodes
// the result as a stable string key.
func canonicalKey(genes []float64) string {
	buf := make([]byte, 0, len(genes)*16)
	scale := math.Pow(10, CacheDigits)
	for _, g := range genes {
		rounded := math.Round(g*scale) / scale
		buf = strconv.AppendFloat(buf, rounded, 'g', -1, 64)
		buf = append(buf, ',')
	}
	return string(buf)
}

// TheoreticalMinimum reports a relaxed lower bound on fitness: a
// diagnostic-only figure assuming every composite measure and the
// percentage-error/sparsity/activation/cost terms reach zero, which
// conflicting physical constraints make unachievable in practice. It
// exists only to give a host a sense of scale for a reported fitness.
func TheoreticalMinimum(cfg Config) float64 {
	return math.Abs(0 - 1) // best-case singular response of 0 vs target 1
}
