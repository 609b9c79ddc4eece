package fitness

import (
	"testing"

	"devana/internal/dva"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() Config {
	var cfg Config
	cfg.OmegaStart = 0.1
	cfg.OmegaEnd = 100
	cfg.OmegaPoints = 200
	cfg.ActivationThreshold = 0.1
	cfg.ActivationPenalty = 0.01
	cfg.Alpha = 0.001
	cfg.PercentageErrorScale = 0
	cfg.CostScale = 0
	for m := 0; m < 5; m++ {
		cfg.Targets[m] = map[string]float64{"area_under_curve": 1.0}
		cfg.Weights[m] = map[string]float64{"area_under_curve": 0.2}
	}
	return cfg
}

func nominalMain() dva.MainParams {
	return dva.MainParams{
		MU:      0.2,
		Landa:   [5]float64{0.1, 0.1, 0.1, 0.1, 0.1},
		Nu:      [5]float64{0.05, 0.05, 0.05, 0.05, 0.05},
		ALow:    1.0,
		AUpp:    0.5,
		F1:      1.0,
		F2:      0.5,
		OmegaDC: 1.0,
		ZetaDC:  0.05,
	}
}

func TestFunction_Determinism(t *testing.T) {
	fn, err := NewFunction(baseConfig())
	require.NoError(t, err)

	genes := make([]float64, dva.DVAParamCount)
	for i := range genes {
		genes[i] = 0.1
	}

	a := fn.Evaluate(nominalMain(), genes)
	b := fn.Evaluate(nominalMain(), genes)
	assert.Equal(t, a, b)
}

func TestFunction_CacheConsistency(t *testing.T) {
	fn, err := NewFunction(baseConfig())
	require.NoError(t, err)

	genes := make([]float64, dva.DVAParamCount)
	for i := range genes {
		genes[i] = 0.05
	}

	main := nominalMain()
	first := fn.Evaluate(main, genes)
	assert.Equal(t, 1, fn.CacheLen())
	second := fn.Evaluate(main, genes)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, fn.CacheLen(), "second call with same rounded key must hit cache")
}

func TestFunction_CacheBypassMatchesFresh(t *testing.T) {
	fn, err := NewFunction(baseConfig())
	require.NoError(t, err)

	genes := make([]float64, dva.DVAParamCount)
	for i := range genes {
		genes[i] = 0.2
	}
	main := nominalMain()

	cached := fn.EvaluateWithBreakdown(main, genes, true)
	fresh := fn.EvaluateWithBreakdown(main, genes, false)
	assert.Equal(t, cached.Total, fresh.Total)
}

func TestConfig_Validate_RejectsBadOmega(t *testing.T) {
	cfg := baseConfig()
	cfg.OmegaEnd = cfg.OmegaStart
	_, err := NewFunction(cfg)
	require.Error(t, err)
	var invalid ErrConfigurationInvalid
	assert.ErrorAs(t, err, &invalid)
}

func TestConfig_Validate_EnhancedCostWeightsMustSumToOne(t *testing.T) {
	cfg := baseConfig()
	cfg.EnhancedCost = true
	cfg.CategoryWeights = [categoryCount]float64{0.5, 0.5, 0.5, 0.5}
	_, err := NewFunction(cfg)
	require.Error(t, err)
}

func TestEvaluate_NeverNegative(t *testing.T) {
	fn, err := NewFunction(baseConfig())
	require.NoError(t, err)

	genes := make([]float64, dva.DVAParamCount)
	score := fn.Evaluate(nominalMain(), genes)
	assert.GreaterOrEqual(t, score, 0.0)
}
