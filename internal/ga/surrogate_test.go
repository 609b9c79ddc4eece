package ga

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSurrogate_InactiveBelowMinObservations(t *testing.T) {
	s := NewSurrogate(3, 60, 10)
	for i := 0; i < 5; i++ {
		s.Observe([]float64{float64(i)}, float64(i))
	}
	assert.False(t, s.Active())
	assert.True(t, s.ShouldEvaluate(100), "screener must pass everything through before activation")
}

func TestSurrogate_PredictsNearestNeighborMean(t *testing.T) {
	s := NewSurrogate(1, 60, 1)
	s.Observe([]float64{0, 0}, 10)
	s.Observe([]float64{10, 10}, 1000)

	pred := s.Predict([]float64{0.1, 0.1})
	assert.InDelta(t, 10, pred, 1, "k=1 should predict close to the nearest observed point")
}

func TestSurrogate_ShouldEvaluateGatesOnPercentile(t *testing.T) {
	s := NewSurrogate(1, 50, 1)
	for i := 1; i <= 10; i++ {
		s.Observe([]float64{float64(i)}, float64(i))
	}
	assert.True(t, s.Active())
	assert.True(t, s.ShouldEvaluate(1), "a cheap prediction should pass the percentile gate")
	assert.False(t, s.ShouldEvaluate(100), "an expensive prediction should be screened out")
}
