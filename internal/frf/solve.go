package frf

import (
	"fmt"
	"math"

	"devana/internal/dva"
)

// ErrLinAlg is returned when the dynamic-stiffness solve fails at a given
// frequency-grid index.
type ErrLinAlg struct {
	OmegaIndex int
}

func (e ErrLinAlg) Error() string {
	return fmt.Sprintf("frf: linear solve failed at omega index %d (LinAlgError)", e.OmegaIndex)
}

// Response is the complex FRF result: Amplitude[dof][omegaIndex], always
// re-expanded to the full 6 DOFs (zero rows at inactive DOFs).
type Response struct {
	Amplitude [DOF][]complex128
}

// Solve evaluates the FRF at every frequency in grid for the reduced
// system red (built from sys via Reduce).
//
// For each ω: form Z(ω) = K - ω²M + jωC, multiply by OmegaDC² to
// unit-normalize, solve Z(ω)·x(ω) = F(ω), then scale the result by
// OmegaDC² to return to physical units. Linear solves are
// independent per-ω; this implementation does them in a simple loop, which
// is numerically equivalent to (and simpler than) any batched variant.
//
// omegaDC must be the same OMEGA_DC used to assemble sys — Solve does not
// re-derive it from sys.
func Solve(sys System, red Reduced, grid dva.FrequencyGrid, omegaDC float64) (Response, error) {
	var resp Response
	for i := range resp.Amplitude {
		resp.Amplitude[i] = make([]complex128, grid.Len())
	}

	scale := omegaDC * omegaDC
	n := red.N

	for wi, omega := range grid.Omega {
		z := make([][]complex128, n)
		for i := 0; i < n; i++ {
			z[i] = make([]complex128, n)
			for j := 0; j < n; j++ {
				val := complex(red.K[i][j]-omega*omega*red.M[i][j], omega*red.C[i][j])
				z[i][j] = val * complex(scale, 0)
			}
		}
		f := red.ForcingAt(sys, omega)

		x, err := solveComplex(z, f)
		if err != nil {
			return Response{}, ErrLinAlg{OmegaIndex: wi}
		}

		for k := range x {
			x[k] *= complex(scale, 0)
		}

		full := red.Expand(x)
		for dof := 0; dof < DOF; dof++ {
			resp.Amplitude[dof][wi] = full[dof]
		}
	}

	return resp, nil
}

// solveComplex solves A·x = b for a square complex system via Gaussian
// elimination with partial pivoting (by magnitude). A and b are not
// mutated; internal copies are used.
//
// gonum's mat package (not imported by this module; package ga uses
// gonum's floats and stat for real-valued statistics) has no complex128
// dense solve, in this
// example pack or the broader ecosystem, so the dynamic-stiffness solve is
// hand-rolled here — see DESIGN.md.
func solveComplex(a [][]complex128, b []complex128) ([]complex128, error) {
	n := len(b)
	if n == 0 {
		return nil, fmt.Errorf("frf: empty system")
	}

	// Augmented matrix copy.
	m := make([][]complex128, n)
	for i := range m {
		m[i] = make([]complex128, n+1)
		copy(m[i], a[i])
		m[i][n] = b[i]
	}

	for col := 0; col < n; col++ {
		// Partial pivot: largest magnitude in this column at/below row col.
		pivot := col
		best := cabs(m[col][col])
		for row := col + 1; row < n; row++ {
			if v := cabs(m[row][col]); v > best {
				best = v
				pivot = row
			}
		}
		if best < 1e-300 || math.IsNaN(best) {
			return nil, fmt.Errorf("frf: singular matrix at column %d", col)
		}
		if pivot != col {
			m[col], m[pivot] = m[pivot], m[col]
		}

		pivotVal := m[col][col]
		for row := col + 1; row < n; row++ {
			if m[row][col] == 0 {
				continue
			}
			factor := m[row][col] / pivotVal
			for k := col; k <= n; k++ {
				m[row][k] -= factor * m[col][k]
			}
		}
	}

	x := make([]complex128, n)
	for row := n - 1; row >= 0; row-- {
		sum := m[row][n]
		for k := row + 1; k < n; k++ {
			sum -= m[row][k] * x[k]
		}
		diag := m[row][row]
		if cabs(diag) < 1e-300 {
			return nil, fmt.Errorf("frf: singular matrix at row %d", row)
		}
		x[row] = sum / diag
	}

	return x, nil
}

// Magnitude returns |Amplitude[dof][:]| as a real non-negative spectrum,
// the input to package criteria's peak/bandwidth/slope/area extraction.
func (r Response) Magnitude(dof int) []float64 {
	src := r.Amplitude[dof]
	out := make([]float64, len(src))
	for i, z := range src {
		out[i] = cabs(z)
	}
	return out
}
