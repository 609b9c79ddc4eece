// Package criteria implements per-mass criterion extraction (peaks,
// bandwidths, slopes, area) and scalarization against targets/weights.
package criteria

import "math"

// Peak is a local maximum of a magnitude spectrum: its index position in
// the frequency grid and its magnitude value.
type Peak struct {
	Position int
	Value    float64
}

// Result is the flat per-mass criterion mapping: peak
// positions/values, pairwise bandwidths and slopes, slope_max,
// area_under_curve, and the full magnitude spectrum.
//
// Bandwidths and slopes are kept in disjoint fields (not a shared
// string-keyed map) so the bandwidth_i_j / slope_i_j families can never
// collide.
type Result struct {
	Peaks         []Peak
	Bandwidths    map[[2]int]float64 // key (i,j), i<j, 1-based peak indices
	Slopes        map[[2]int]float64 // key (i,j), i<j, 1-based peak indices
	SlopeMax      float64
	AreaUnderCurve float64
	Magnitude     []float64
	// TopTwoSlope is the secondary slope recomputed over just the two
	// largest-value peaks (by original ω order).
	TopTwoSlope float64
	HasTopTwo   bool
}

// Extract computes the full criterion dictionary for one mass's magnitude
// spectrum against the matching angular-frequency grid.
func Extract(omega, magnitude []float64) Result {
	res := Result{
		Magnitude:  append([]float64(nil), magnitude...),
		Bandwidths: make(map[[2]int]float64),
		Slopes:     make(map[[2]int]float64),
	}

	res.Peaks = findPeaks(omega, magnitude)
	res.Bandwidths = pairwiseBandwidths(omega, res.Peaks)
	res.Slopes, res.SlopeMax = pairwiseSlopes(omega, res.Peaks)
	res.AreaUnderCurve = trapz(omega, magnitude)

	if len(res.Peaks) > 2 {
		top := topTwoByValue(res.Peaks)
		_, slopeMax := pairwiseSlopes(omega, top)
		res.TopTwoSlope = slopeMax
		res.HasTopTwo = true
	}

	return res
}

// findPeaks returns strict local maxima; edge samples are never peaks.
func findPeaks(omega, mag []float64) []Peak {
	var peaks []Peak
	for i := 1; i < len(mag)-1; i++ {
		if mag[i] > mag[i-1] && mag[i] > mag[i+1] {
			peaks = append(peaks, Peak{Position: i, Value: mag[i]})
		}
	}
	return peaks
}

// pairwiseBandwidths stores ω_j - ω_i under 1-based key (i,j), i<j, for
// every unordered pair of peaks. Symmetric by construction:
// only i<j keys are ever produced.
func pairwiseBandwidths(omega []float64, peaks []Peak) map[[2]int]float64 {
	out := make(map[[2]int]float64)
	for i := 0; i < len(peaks); i++ {
		for j := i + 1; j < len(peaks); j++ {
			out[[2]int{i + 1, j + 1}] = omega[peaks[j].Position] - omega[peaks[i].Position]
		}
	}
	return out
}

// pairwiseSlopes computes (value_j - value_i)/(ω_j - ω_i) for every i<j
// pair; a zero denominator yields NaN and is excluded both from the map
// and from the running max.
func pairwiseSlopes(omega []float64, peaks []Peak) (map[[2]int]float64, float64) {
	out := make(map[[2]int]float64)
	maxAbs := 0.0
	any := false
	for i := 0; i < len(peaks); i++ {
		for j := i + 1; j < len(peaks); j++ {
			denom := omega[peaks[j].Position] - omega[peaks[i].Position]
			if denom == 0 {
				continue
			}
			slope := (peaks[j].Value - peaks[i].Value) / denom
			if math.IsNaN(slope) {
				continue
			}
			out[[2]int{i + 1, j + 1}] = slope
			if a := math.Abs(slope); !any || a > maxAbs {
				maxAbs = a
				any = true
			}
		}
	}
	if !any {
		return out, 0
	}
	return out, maxAbs
}

// topTwoByValue keeps the two peaks with the largest Value, preserving
// their original ω ordering.
func topTwoByValue(peaks []Peak) []Peak {
	best, second := -1, -1
	for i, p := range peaks {
		if best == -1 || p.Value > peaks[best].Value {
			second = best
			best = i
		} else if second == -1 || p.Value > peaks[second].Value {
			second = i
		}
	}
	idx := []int{best, second}
	if idx[0] > idx[1] {
		idx[0], idx[1] = idx[1], idx[0]
	}
	return []Peak{peaks[idx[0]], peaks[idx[1]]}
}

func trapz(omega, y []float64) float64 {
	if len(omega) != len(y) || len(omega) < 2 {
		return 0
	}
	area := 0.0
	for i := 1; i < len(omega); i++ {
		area += (omega[i] - omega[i-1]) * (y[i] + y[i-1]) / 2
	}
	return area
}

// PeakPositionValue returns (ω-position, value) of the k-th peak (1-based),
// emulating a peak_position_k/peak_value_k lookup by name.
func (r Result) PeakPositionValue(k int) (position int, value float64, ok bool) {
	if k < 1 || k > len(r.Peaks) {
		return 0, 0, false
	}
	return r.Peaks[k-1].Position, r.Peaks[k-1].Value, true
}

// Bandwidth looks up bandwidth_i_j (1-based, i<j).
func (r Result) Bandwidth(i, j int) (float64, bool) {
	if i > j {
		i, j = j, i
	}
	v, ok := r.Bandwidths[[2]int{i, j}]
	return v, ok
}

// Slope looks up slope_i_j (1-based, i<j).
func (r Result) Slope(i, j int) (float64, bool) {
	if i > j {
		i, j = j, i
	}
	v, ok := r.Slopes[[2]int{i, j}]
	return v, ok
}
