package criteria

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
)

// Targets and Weights are criterion-name maps understood by Scalarize.
// Recognized name shapes: "peak_position_K", "peak_value_K",
// "bandwidth_I_J", and the bare names "slope_max", "area_under_curve".
type Targets map[string]float64
type Weights map[string]float64

// warnedOnce tracks which (criterion name) pairs have already produced the
// "missing actual, no contribution" warning in this process, so repeat
// evaluations of the same config don't spam the log.
var warnedOnce sync.Map

// Logger receives the first-occurrence warning above. Nil by
// default (silent); set by package fitness/ga during engine construction.
var Logger *log.Logger

// Scalarize combines one mass's extracted criteria against targets/weights
// into a single composite measure. For each criterion present in
// both targets and weights: locate the actual value by name; if missing or
// the target is zero, skip (no contribution, but see warning behavior
// below); otherwise contribute weight * (actual / target).
func Scalarize(res Result, targets Targets, weights Weights) float64 {
	composite := 0.0
	for name, weight := range weights {
		target, hasTarget := targets[name]
		if !hasTarget || target == 0 {
			continue
		}
		actual, ok := lookup(res, name)
		if !ok {
			warnMissingOnce(name)
			continue
		}
		composite += weight * (actual / target)
	}
	return composite
}

// SingularResponse sums the five per-mass composite measures.
func SingularResponse(composites [5]float64) float64 {
	sum := 0.0
	for _, c := range composites {
		sum += c
	}
	return sum
}

func warnMissingOnce(name string) {
	if _, loaded := warnedOnce.LoadOrStore(name, struct{}{}); loaded {
		return
	}
	if Logger != nil {
		Logger.Printf("criteria: criterion %q has no corresponding extractor value; contributes 0 (warned once)", name)
	}
}

func lookup(res Result, name string) (float64, bool) {
	switch {
	case name == "slope_max":
		return res.SlopeMax, true
	case name == "area_under_curve":
		return res.AreaUnderCurve, true
	case strings.HasPrefix(name, "peak_position_"):
		k, err := strconv.Atoi(strings.TrimPrefix(name, "peak_position_"))
		if err != nil {
			return 0, false
		}
		pos, _, ok := res.PeakPositionValue(k)
		return float64(pos), ok
	case strings.HasPrefix(name, "peak_value_"):
		k, err := strconv.Atoi(strings.TrimPrefix(name, "peak_value_"))
		if err != nil {
			return 0, false
		}
		_, val, ok := res.PeakPositionValue(k)
		return val, ok
	case strings.HasPrefix(name, "bandwidth_"):
		i, j, err := parsePair(strings.TrimPrefix(name, "bandwidth_"))
		if err != nil {
			return 0, false
		}
		return res.Bandwidth(i, j)
	default:
		return 0, false
	}
}

func parsePair(s string) (int, int, error) {
	parts := strings.SplitN(s, "_", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("criteria: malformed pair key %q", s)
	}
	i, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	j, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return i, j, nil
}
