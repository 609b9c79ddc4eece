package ga

import (
	"math"
	"math/rand/v2"
)

// ControllerMetrics is what Step consumes each generation: the quantities
// the heuristic/bandit/Q-learning policies condition on.
type ControllerMetrics struct {
	Stagnation int     // generations since best improved
	Diversity  float64 // mean pairwise Euclidean distance between genomes
	Improved   bool
	BestDelta  float64 // negative = improvement (best fitness went down)
}

// ControllerOutput is the rate triplet every policy returns, all clamped
// to the configured [min,max] bounds. All three controller kinds respect
// the same rate bounds and emit this same record shape.
type ControllerOutput struct {
	CrossoverProb  float64
	MutationProb   float64
	PopulationSize int
}

// Controller is the one interface shared by the three adaptive policies —
// a variant with three cases, not an inheritance hierarchy.
type Controller interface {
	Step(metrics ControllerMetrics) ControllerOutput
}

// NewController builds the controller named by kind, or a no-op pass-
// through controller for ControllerOff.
func NewController(kind ControllerKind, cfg Config, rng *rand.Rand) Controller {
	switch kind {
	case ControllerHeuristic:
		return &heuristicController{cfg: cfg, pc: cfg.CrossoverProb, pm: cfg.MutationProb}
	case ControllerBandit:
		return newBanditController(cfg, rng)
	case ControllerQLearning:
		return newQLearningController(cfg, rng)
	default:
		return staticController{cfg: cfg}
	}
}

// staticController never changes rates — used for ControllerOff.
type staticController struct{ cfg Config }

func (s staticController) Step(ControllerMetrics) ControllerOutput {
	return ControllerOutput{CrossoverProb: s.cfg.CrossoverProb, MutationProb: s.cfg.MutationProb, PopulationSize: s.cfg.PopulationSize}
}

// heuristicController tracks stagnation and diversity directly: high
// stagnation raises mutation, low diversity raises mutation and lowers
// crossover, improvement decays both back toward baselines.
type heuristicController struct {
	cfg    Config
	pc, pm float64
}

func (h *heuristicController) Step(m ControllerMetrics) ControllerOutput {
	const diversityFloor = 0.1
	const decayRate = 0.1

	if m.Improved {
		h.pm += (h.cfg.MutationProb - h.pm) * decayRate
		h.pc += (h.cfg.CrossoverProb - h.pc) * decayRate
	} else {
		stagnationBoost := math.Min(float64(m.Stagnation)/50.0, 1.0) * 0.05
		h.pm += stagnationBoost
	}

	if m.Diversity < diversityFloor {
		h.pm += 0.05
		h.pc -= 0.05
	}

	h.pc = clamp(h.pc, h.cfg.MinCrossoverProb, h.cfg.MaxCrossoverProb)
	h.pm = clamp(h.pm, h.cfg.MinMutationProb, h.cfg.MaxMutationProb)

	return ControllerOutput{CrossoverProb: h.pc, MutationProb: h.pm, PopulationSize: h.cfg.PopulationSize}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
