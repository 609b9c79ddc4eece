package ga

import (
	"math"
	"sort"
	"sync"

	"devana/internal/dva"
)

// Surrogate is a k-nearest-neighbor fitness predictor over observed (x, f)
// pairs, used to pre-filter mutation/crossover candidates before a full
// FRF evaluation. Predict and Observe are called concurrently from every
// worker in the engine's per-generation pool, so all mutable state is
// guarded by mu.
type Surrogate struct {
	k              int
	passThroughPct float64
	minObs         int

	mu           sync.RWMutex
	observations []surrogateObs
	recentTrue   []float64 // ring buffer of recent true fitness values
	recentCap    int
}

type surrogateObs struct {
	x []float64
	f float64
}

// NewSurrogate builds a screener with reasonable defaults when k,
// passThroughPct, or minObs are zero.
func NewSurrogate(k int, passThroughPct float64, minObs int) *Surrogate {
	if k <= 0 {
		k = 5
	}
	if passThroughPct <= 0 {
		passThroughPct = 60
	}
	if minObs <= 0 {
		minObs = 50
	}
	return &Surrogate{k: k, passThroughPct: passThroughPct, minObs: minObs, recentCap: 200}
}

// Observe records a true (x, f) evaluation for future kNN predictions.
func (s *Surrogate) Observe(x []float64, f float64) {
	cx := make([]float64, len(x))
	copy(cx, x)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.observations = append(s.observations, surrogateObs{x: cx, f: f})

	if dva.IsValidScore(f) {
		s.recentTrue = append(s.recentTrue, f)
		if len(s.recentTrue) > s.recentCap {
			s.recentTrue = s.recentTrue[len(s.recentTrue)-s.recentCap:]
		}
	}
}

// Active reports whether enough observations exist to screen.
func (s *Surrogate) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observations) >= s.minObs
}

// Predict returns the inverse-distance-weighted mean fitness of the k
// nearest observed points to x.
func (s *Surrogate) Predict(x []float64) float64 {
	s.mu.RLock()
	obs := make([]surrogateObs, len(s.observations))
	copy(obs, s.observations)
	s.mu.RUnlock()

	if len(obs) == 0 {
		return math.Inf(1)
	}

	type distPair struct {
		dist float64
		f    float64
	}
	dists := make([]distPair, len(obs))
	for i, o := range obs {
		dists[i] = distPair{dist: euclidean(x, o.x), f: o.f}
	}
	sort.Slice(dists, func(i, j int) bool { return dists[i].dist < dists[j].dist })

	k := s.k
	if k > len(dists) {
		k = len(dists)
	}

	const epsilon = 1e-12
	weightedSum, weightTotal := 0.0, 0.0
	for i := 0; i < k; i++ {
		w := 1.0 / (dists[i].dist + epsilon)
		weightedSum += w * dists[i].f
		weightTotal += w
	}
	if weightTotal == 0 {
		return math.Inf(1)
	}
	return weightedSum / weightTotal
}

// ShouldEvaluate reports whether a candidate predicted at f̂ is cheap
// enough (below the configured percentile of recent true fitnesses) to
// warrant a full evaluation. A candidate that fails this gate keeps its
// predicted score in the engine (scoreOne) and competes in elitist
// selection on that score; it is not re-evaluated before entering the
// elite set. Only the final best individual is re-scored with a full
// evaluation, in the engine's finalize.
func (s *Surrogate) ShouldEvaluate(predicted float64) bool {
	s.mu.RLock()
	recentTrue := make([]float64, len(s.recentTrue))
	copy(recentTrue, s.recentTrue)
	s.mu.RUnlock()

	if !s.Active() || len(recentTrue) == 0 {
		return true
	}
	threshold := percentile(recentTrue, s.passThroughPct)
	return predicted <= threshold
}

func percentile(values []float64, pct float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := (pct / 100) * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
