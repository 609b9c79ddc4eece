package ga

import (
	"math/rand/v2"
	"sort"
	"testing"

	"devana/internal/dva"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boundedSpace() dva.ParameterSpace {
	bounds := []dva.Bound{
		{Lo: -2, Hi: 2},
		{Lo: 0, Hi: 10},
		{Fixed: true, Value: 3.5},
		{Lo: -1, Hi: 1},
	}
	return dva.ParameterSpace{Bounds: bounds}
}

func testRNG() *rand.Rand { return rand.New(rand.NewPCG(1, 1)) }

func TestSeeders_RespectBoundsAndFixedGenes(t *testing.T) {
	space := boundedSpace()
	rng := testRNG()

	methods := []SeedingMethod{SeedUniform, SeedSobol, SeedLHS, SeedMemory, SeedNeural}
	for _, m := range methods {
		seeder := NewSeeder(m, nil, nil)
		pop := seeder.Seed(space, 20, rng)
		assert.Len(t, pop, 20)
		for _, ind := range pop {
			assert.True(t, space.Valid(ind), "method %s produced out-of-bounds individual %v", m, ind)
		}
	}
}

func TestBestOfPoolSeeder_RetainsLowestScoring(t *testing.T) {
	space := boundedSpace()
	rng := testRNG()

	fitnessFn := func(genes []float64) float64 {
		return genes[0]*genes[0] + genes[1]*genes[1] + genes[3]*genes[3]
	}
	seeder := bestOfPoolSeeder{fitnessFn: fitnessFn, poolMultiplier: 20}
	pop := seeder.Seed(space, 5, rng)
	require.Len(t, pop, 5)

	var scores []float64
	for _, ind := range pop {
		assert.True(t, space.Valid(ind))
		scores = append(scores, fitnessFn(ind))
	}
	assert.True(t, sort.Float64sAreSorted(scores), "retained pool must be the best-scoring members in ascending order")
}

func TestMemoryReplaySeeder_JittersRecordedBests(t *testing.T) {
	space := boundedSpace()
	rng := testRNG()
	memory := [][]float64{{1, 5, 3.5, 0.5}}

	seeder := NewSeeder(SeedMemory, nil, memory)
	pop := seeder.Seed(space, 3, rng)
	as := assert.New(t)
	as.Len(pop, 3)
	as.True(space.Valid(pop[0]))
	as.Equal(3.5, pop[0][2], "fixed gene must remain exact even after jitter")
}

func TestLHSSeeder_CoversEachStratum(t *testing.T) {
	space := dva.ParameterSpace{Bounds: []dva.Bound{{Lo: 0, Hi: 1}}}
	rng := testRNG()
	seeder := lhsSeeder{}
	pop := seeder.Seed(space, 10, rng)

	seen := make([]bool, 10)
	for _, ind := range pop {
		stratum := int(ind[0] * 10)
		if stratum > 9 {
			stratum = 9
		}
		seen[stratum] = true
	}
	for i, ok := range seen {
		assert.True(t, ok, "stratum %d was never sampled", i)
	}
}
