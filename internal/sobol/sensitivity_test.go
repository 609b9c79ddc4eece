package sobol

import (
	"testing"

	"devana/internal/dva"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoVarSpace() dva.ParameterSpace {
	return dva.ParameterSpace{Bounds: []dva.Bound{{Lo: -1, Hi: 1}, {Lo: -1, Hi: 1}}}
}

func TestAnalyze_PriorityWeightsSumToOne(t *testing.T) {
	space := twoVarSpace()
	fn := func(genes []float64) float64 { return genes[0]*genes[0] + 0.01*genes[1] }

	result := Analyze(space, fn, 64, nil)
	require.Len(t, result.Priority, 2)

	sum := 0.0
	for _, w := range result.Priority {
		assert.GreaterOrEqual(t, w, 0.0)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestAnalyze_DominantParameterGetsHigherPriority(t *testing.T) {
	space := twoVarSpace()
	// genes[0] drives nearly all the output variance; genes[1] barely matters.
	fn := func(genes []float64) float64 { return genes[0]*genes[0]*10 + 0.001*genes[1] }

	result := Analyze(space, fn, 256, nil)
	assert.Greater(t, result.Priority[0], result.Priority[1])
}

func TestAnalyze_ProgressReachesOneHundred(t *testing.T) {
	space := twoVarSpace()
	fn := func(genes []float64) float64 { return genes[0] + genes[1] }

	var last int
	Analyze(space, fn, 32, func(p int) {
		assert.GreaterOrEqual(t, p, last)
		last = p
	})
	assert.Equal(t, 100, last)
}

func TestAnalyze_FixedParameterHasNoSensitivity(t *testing.T) {
	space := dva.ParameterSpace{Bounds: []dva.Bound{{Fixed: true, Value: 2}, {Lo: -1, Hi: 1}}}
	fn := func(genes []float64) float64 { return genes[0] + genes[1]*genes[1] }

	result := Analyze(space, fn, 64, nil)
	assert.Less(t, result.TotalOrder[0], result.TotalOrder[1]+1e-6)
}
