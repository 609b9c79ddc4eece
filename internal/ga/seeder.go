package ga

import (
	"math/rand/v2"
	"sort"

	"devana/internal/dva"
)

// FitnessFunc is the external fitness contract: a pure function of
// a parameter vector returning a non-negative scalar (or +Inf).
type FitnessFunc func(genes []float64) float64

// Seeder produces N individuals of length n respecting bounds and fixed
// constraints.
type Seeder interface {
	Seed(space dva.ParameterSpace, n int, rng *rand.Rand) [][]float64
}

// NewSeeder builds the strategy named by method. fitnessFn is required only
// for SeedBestOfPool; memory is required only for SeedMemory (may be nil
// otherwise, in which case memory falls back to uniform).
func NewSeeder(method SeedingMethod, fitnessFn FitnessFunc, memory [][]float64) Seeder {
	switch method {
	case SeedSobol:
		return haltonSeeder{}
	case SeedLHS:
		return lhsSeeder{}
	case SeedMemory:
		return memoryReplaySeeder{memory: memory}
	case SeedBestOfPool:
		return bestOfPoolSeeder{fitnessFn: fitnessFn, poolMultiplier: 10}
	case SeedNeural:
		return neuralSeeder{}
	default:
		return uniformSeeder{}
	}
}

func uniformVector(space dva.ParameterSpace, rng *rand.Rand) []float64 {
	n := space.Len()
	out := make([]float64, n)
	for i, b := range space.Bounds {
		if b.Fixed {
			out[i] = b.Value
			continue
		}
		out[i] = b.Lo + rng.Float64()*(b.Hi-b.Lo)
	}
	return out
}

// uniformSeeder draws independent uniform values per gene.
type uniformSeeder struct{}

func (uniformSeeder) Seed(space dva.ParameterSpace, n int, rng *rand.Rand) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = uniformVector(space, rng)
	}
	return out
}

// haltonSeeder scales a low-discrepancy Halton sequence (one prime base
// per dimension) to bounds, standing in for true Sobol direction-number
// sequences (documented stdlib-only choice — see DESIGN.md: no
// Sobol-sequence library appears anywhere in the example pack).
type haltonSeeder struct{}

var smallPrimes = []int{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61, 67, 71,
	73, 79, 83, 89, 97, 101, 103, 107, 109, 113, 127, 131, 137, 139, 149, 151, 157, 163, 167, 173,
	179, 181, 191, 193, 197, 199, 211, 223, 227, 229}

func vanDerCorput(index, base int) float64 {
	result, f := 0.0, 1.0/float64(base)
	for index > 0 {
		result += f * float64(index%base)
		index /= base
		f /= float64(base)
	}
	return result
}

func (haltonSeeder) Seed(space dva.ParameterSpace, n int, rng *rand.Rand) [][]float64 {
	dim := space.Len()
	out := make([][]float64, n)
	// Random starting offset so repeated seeds from the same RNG stream
	// still vary run-to-run while staying deterministic for a fixed seed.
	offset := rng.IntN(1000) + 1
	for i := 0; i < n; i++ {
		vec := make([]float64, dim)
		for d, b := range space.Bounds {
			if b.Fixed {
				vec[d] = b.Value
				continue
			}
			base := smallPrimes[d%len(smallPrimes)]
			u := vanDerCorput(offset+i+1, base)
			vec[d] = b.Lo + u*(b.Hi-b.Lo)
		}
		out[i] = vec
	}
	return out
}

// lhsSeeder implements Latin Hypercube Sampling: each dimension's [0,1]
// range is split into n equal strata, one sample drawn per stratum, then
// independently permuted across dimensions.
type lhsSeeder struct{}

func (lhsSeeder) Seed(space dva.ParameterSpace, n int, rng *rand.Rand) [][]float64 {
	dim := space.Len()
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, dim)
	}

	for d, b := range space.Bounds {
		if b.Fixed {
			for i := range out {
				out[i][d] = b.Value
			}
			continue
		}
		perm := rng.Perm(n)
		for i := 0; i < n; i++ {
			stratum := perm[i]
			u := (float64(stratum) + rng.Float64()) / float64(n)
			out[i][d] = b.Lo + u*(b.Hi-b.Lo)
		}
	}
	return out
}

// memoryReplaySeeder loads prior-run bests and jitters them by small
// Gaussian perturbation; falls back to uniform once memory is exhausted.
type memoryReplaySeeder struct {
	memory [][]float64
}

func (m memoryReplaySeeder) Seed(space dva.ParameterSpace, n int, rng *rand.Rand) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		if i < len(m.memory) {
			src := m.memory[i]
			vec := make([]float64, len(src))
			copy(vec, src)
			for d, b := range space.Bounds {
				if b.Fixed {
					vec[d] = b.Value
					continue
				}
				sigma := 0.05 * (b.Hi - b.Lo)
				vec[d] = clamp(vec[d]+rng.NormFloat64()*sigma, b.Lo, b.Hi)
			}
			out[i] = vec
			continue
		}
		out[i] = uniformVector(space, rng)
	}
	return out
}

// bestOfPoolSeeder generates M≫N uniform candidates, evaluates all with
// the fitness function, and retains the best N.
type bestOfPoolSeeder struct {
	fitnessFn      FitnessFunc
	poolMultiplier int
}

func (b bestOfPoolSeeder) Seed(space dva.ParameterSpace, n int, rng *rand.Rand) [][]float64 {
	if b.fitnessFn == nil {
		return uniformSeeder{}.Seed(space, n, rng)
	}
	mult := b.poolMultiplier
	if mult < 2 {
		mult = 2
	}
	poolSize := n * mult

	type scored struct {
		vec   []float64
		score float64
	}
	pool := make([]scored, poolSize)
	for i := range pool {
		vec := uniformVector(space, rng)
		pool[i] = scored{vec: vec, score: b.fitnessFn(vec)}
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].score < pool[j].score })

	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = pool[i].vec
	}
	return out
}

// neuralSeeder receives candidates from an external generator and
// validates bounds/fixed constraints; it makes no assumption about how
// those candidates were produced.
type neuralSeeder struct {
	Candidates [][]float64
}

func (ns neuralSeeder) Seed(space dva.ParameterSpace, n int, rng *rand.Rand) [][]float64 {
	out := make([][]float64, 0, n)
	for _, c := range ns.Candidates {
		if len(out) >= n {
			break
		}
		vec := make([]float64, len(c))
		copy(vec, c)
		space.Clamp(vec)
		out = append(out, vec)
	}
	for len(out) < n {
		out = append(out, uniformVector(space, rng))
	}
	return out
}
