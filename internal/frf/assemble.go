// Package frf implements the coupled 6-DOF primary+DVA Frequency Response
// Function pipeline: system assembly, degree-of-freedom reduction,
// and the per-frequency complex linear solve.
package frf

import (
	"math"
	"math/cmplx"

	"devana/internal/dva"
)

// DOF is the fixed system dimension before reduction: 5 DVA masses plus the
// primary mass.
const DOF = 6

// System is the real-valued mass/damping/stiffness triple plus the complex
// forcing function produced by Assemble. F never mutates its captured
// inputs; it is pure in ω.
type System struct {
	M, C, K [DOF][DOF]float64
	F       func(omega float64) [DOF]complex128
}

// Assemble builds the 6x6 mass, damping, stiffness matrices and the
// forcing function from the main and DVA parameters.
//
// Damping is pre-scaled by 2*ZetaDC*OmegaDC; stiffness by OmegaDC^2. The
// primary mass and the two shared-inertia DOFs (4,5) always carry this
// intrinsic stiffness/damping, since they are structurally present
// regardless of tuning; DOFs 1-3 are optional absorbers and carry none of
// their own, only whatever Beta/Lambda coupling adds.
// Forcing combines two harmonic sources at multiples of ω via the
// phasors exp(jω) and exp(2jω). All arithmetic is total: there is no error
// return, NaN/Inf inputs simply propagate (caller maps that to
// AssemblyInvalid, see package fitness).
func Assemble(main dva.MainParams, d dva.DVAParams) System {
	var sys System

	dampScale := 2 * main.ZetaDC * main.OmegaDC
	stiffScale := main.OmegaDC * main.OmegaDC

	// Primary mass normalized to 1, grounded at the structure's own
	// (OmegaDC, ZetaDC) resonance. This intrinsic term is independent of
	// every DVA coupling below: a primary structure with no absorbers
	// attached at all must still have its own restoring stiffness.
	sys.M[0][0] = 1
	sys.K[0][0] = stiffScale
	sys.C[0][0] = dampScale

	// DVA masses 1-3 are MU_i * primary mass; they carry no stiffness or
	// damping of their own, only what the Beta/Lambda coupling loop below
	// adds, so an absorber with Mu=Beta=Lambda=0 is correctly inert.
	for i := 0; i < 3; i++ {
		sys.M[i+1][i+1] = d.Mu[i]
	}
	// Remaining two mass DOFs (indices 4,5) share a single inertia ratio
	// (main.MU) rather than an independent per-DOF mass, matching the DVA
	// physical model's 5-mass/6-DOF convention. Unlike DOFs 1-3 they are a
	// fixed part of the structure, not an optional absorber, so they are
	// grounded at the same intrinsic resonance as the primary mass,
	// scaled to their own inertia.
	sys.M[4][4] = main.MU
	sys.M[5][5] = main.MU
	sys.K[4][4] = stiffScale * main.MU
	sys.K[5][5] = stiffScale * main.MU
	sys.C[4][4] = dampScale * main.MU
	sys.C[5][5] = dampScale * main.MU

	for i := 0; i < 15; i++ {
		row := i/5 + 1 // beta/lambda each span 3 coupled rows x 5 terms
		if row > 5 {
			row = 5
		}

		sys.K[row][row] += d.Beta[i] * stiffScale
		sys.K[0][0] += d.Beta[i] * stiffScale
		sys.K[0][row] -= d.Beta[i] * stiffScale
		sys.K[row][0] -= d.Beta[i] * stiffScale

		sys.C[row][row] += d.Lambda[i] * dampScale
		sys.C[0][0] += d.Lambda[i] * dampScale
		sys.C[0][row] -= d.Lambda[i] * dampScale
		sys.C[row][0] -= d.Lambda[i] * dampScale
	}

	for i := 0; i < 15; i++ {
		row := i/5 + 1
		if row > 5 {
			row = 5
		}
		sys.K[row][row] += d.Nu[i] * stiffScale * 1e-3
		sys.C[row][row] += d.Nu[i] * dampScale * 1e-3
	}

	alow, aupp, f1, f2 := main.ALow, main.AUpp, main.F1, main.F2
	sys.F = func(omega float64) [DOF]complex128 {
		var f [DOF]complex128
		p1 := cmplx.Exp(complex(0, omega))
		p2 := cmplx.Exp(complex(0, 2*omega))
		amp0 := complex(alow*f1, 0)*p1 + complex(aupp*f2, 0)*p2
		f[0] = amp0
		for i := 0; i < 3; i++ {
			f[i+1] = amp0 * complex(main.Landa[i%5], 0)
		}
		f[4] = amp0 * complex(main.Nu[0], 0)
		f[5] = amp0 * complex(main.Nu[1], 0)
		return f
	}

	return sys
}

// HasNaN reports whether any entry of M, C, K is NaN — the caller maps
// this to AssemblyInvalid.
func (s System) HasNaN() bool {
	for i := 0; i < DOF; i++ {
		for j := 0; j < DOF; j++ {
			if math.IsNaN(s.M[i][j]) || math.IsNaN(s.C[i][j]) || math.IsNaN(s.K[i][j]) {
				return true
			}
		}
	}
	return false
}
