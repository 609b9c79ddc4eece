package ga

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func controllerTestConfig() Config {
	cfg := DefaultConfig()
	cfg.MinCrossoverProb, cfg.MaxCrossoverProb = 0.3, 0.95
	cfg.MinMutationProb, cfg.MaxMutationProb = 0.01, 0.3
	return cfg
}

func TestHeuristicController_StagnationRaisesMutation(t *testing.T) {
	cfg := controllerTestConfig()
	c := NewController(ControllerHeuristic, cfg, nil)

	var last ControllerOutput
	for gen := 0; gen < 60; gen++ {
		last = c.Step(ControllerMetrics{Stagnation: gen, Diversity: 0.5, Improved: false, BestDelta: 0})
	}
	assert.Greater(t, last.MutationProb, cfg.MutationProb)
	assert.GreaterOrEqual(t, last.MutationProb, cfg.MinMutationProb)
	assert.LessOrEqual(t, last.MutationProb, cfg.MaxMutationProb)
}

func TestHeuristicController_LowDiversityLowersCrossover(t *testing.T) {
	cfg := controllerTestConfig()
	c := NewController(ControllerHeuristic, cfg, nil)

	var last ControllerOutput
	for gen := 0; gen < 10; gen++ {
		last = c.Step(ControllerMetrics{Stagnation: 0, Diversity: 0.01, Improved: false})
	}
	assert.Less(t, last.CrossoverProb, cfg.CrossoverProb)
}

func TestBanditController_RatesStayWithinBounds(t *testing.T) {
	cfg := controllerTestConfig()
	rng := rand.New(rand.NewPCG(7, 7))
	c := NewController(ControllerBandit, cfg, rng)

	for gen := 0; gen < 50; gen++ {
		out := c.Step(ControllerMetrics{Stagnation: gen % 5, Diversity: 0.3, BestDelta: -0.01})
		assert.GreaterOrEqual(t, out.CrossoverProb, cfg.MinCrossoverProb)
		assert.LessOrEqual(t, out.CrossoverProb, cfg.MaxCrossoverProb)
		assert.GreaterOrEqual(t, out.MutationProb, cfg.MinMutationProb)
		assert.LessOrEqual(t, out.MutationProb, cfg.MaxMutationProb)
	}
}

func TestQLearningController_RatesStayWithinBounds(t *testing.T) {
	cfg := controllerTestConfig()
	rng := rand.New(rand.NewPCG(9, 9))
	c := NewController(ControllerQLearning, cfg, rng)

	for gen := 0; gen < 200; gen++ {
		out := c.Step(ControllerMetrics{Stagnation: gen % 20, Diversity: 0.2, BestDelta: -0.001})
		assert.GreaterOrEqual(t, out.CrossoverProb, cfg.MinCrossoverProb)
		assert.LessOrEqual(t, out.CrossoverProb, cfg.MaxCrossoverProb)
		assert.GreaterOrEqual(t, out.MutationProb, cfg.MinMutationProb)
		assert.LessOrEqual(t, out.MutationProb, cfg.MaxMutationProb)
	}
}

func TestStaticController_NeverChangesRates(t *testing.T) {
	cfg := controllerTestConfig()
	c := NewController(ControllerOff, cfg, nil)
	out := c.Step(ControllerMetrics{Stagnation: 100, Diversity: 0})
	assert.Equal(t, cfg.CrossoverProb, out.CrossoverProb)
	assert.Equal(t, cfg.MutationProb, out.MutationProb)
}
