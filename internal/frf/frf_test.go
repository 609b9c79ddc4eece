package frf

import (
	"math"
	"testing"

	"devana/internal/dva"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func TestReduce_TrivialZeroDVA_PrimaryStaysActive(t *testing.T) {
	sys := Assemble(nominalMain(), dva.DVAParams{})
	red, err := Reduce(sys, 0)
	require.NoError(t, err)
	assert.True(t, red.Mask[0], "primary mass DOF must remain active")
	assert.GreaterOrEqual(t, red.N, 1)
}

func TestReduce_DisabledMasses_RemovesThreeDOFs(t *testing.T) {
	main := nominalMain()
	// DVAParams{} leaves mu_1..3, beta, lambda, and nu all zero, so the
	// three optional absorber DOFs (1-3) carry no mass, stiffness, or
	// damping of their own and must be reduced away, leaving only the
	// primary mass and the two structurally-intrinsic shared-inertia DOFs.
	sys := Assemble(main, dva.DVAParams{})
	red, err := Reduce(sys, 0)
	require.NoError(t, err)
	require.Equal(t, 3, red.N, "disabled absorber DOFs 1-3 should be reduced away")
	assert.Equal(t, []int{0, 4, 5}, red.Active)
}

func TestReduce_AllZero_ReportsAllZeroMass(t *testing.T) {
	// Assemble always gives the primary DOF unit mass, so the all-zero
	// system is built directly: every M, C, K entry is zero.
	sys := System{F: func(float64) [DOF]complex128 { return [DOF]complex128{} }}
	_, err := Reduce(sys, 0)
	require.Error(t, err)
	var azm ErrAllZeroMass
	assert.ErrorAs(t, err, &azm)
}

func TestSolve_S1_TrivialZeroConfiguration(t *testing.T) {
	main := nominalMain()
	sys := Assemble(main, dva.DVAParams{})
	red, err := Reduce(sys, 0)
	require.NoError(t, err)

	grid := dva.NewFrequencyGrid(0, 10000, 1000)
	resp, err := Solve(sys, red, grid, main.OmegaDC)
	require.NoError(t, err)

	mag := resp.Magnitude(0)
	for _, v := range mag {
		assert.False(t, math.IsNaN(v))
		assert.False(t, math.IsInf(v, 0))
	}

	peaks := 0
	for i := 1; i < len(mag)-1; i++ {
		if mag[i] > mag[i-1] && mag[i] > mag[i+1] {
			peaks++
		}
	}
	assert.GreaterOrEqual(t, peaks, 1, "mass_1 should show at least one resonance peak")
}

func TestSolveComplex_MatchesIndependentExpansion(t *testing.T) {
	a := [][]complex128{
		{complex(2, 1), complex(0, 0)},
		{complex(1, 0), complex(3, -1)},
	}
	b := []complex128{complex(5, 0), complex(4, 2)}

	x, err := solveComplex(a, b)
	require.NoError(t, err)

	// Verify A*x == b within tolerance.
	for i := range a {
		var sum complex128
		for j := range a[i] {
			sum += a[i][j] * x[j]
		}
		diff := cabs(sum - b[i])
		assert.Less(t, diff, 1e-9)
	}
}
