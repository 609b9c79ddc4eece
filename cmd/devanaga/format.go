package main

import (
	"fmt"
	"math"
)

// formatMinimalPrecision formats curr with one more decimal digit than the
// first precision at which it differs from prev (capped at 10), so consecutive
// best-fitness prints in plain mode don't repeat indistinguishable
// digits every generation.
func formatMinimalPrecision(prev, curr float64) string {
	if math.IsNaN(prev) || math.IsNaN(curr) || math.IsInf(prev, 0) || math.IsInf(curr, 0) {
		return fmt.Sprintf("%.2f", curr)
	}
	if prev == curr {
		return fmt.Sprintf("%.2f", curr)
	}

	const maxPrecision = 10
	for precision := 1; precision <= maxPrecision; precision++ {
		format := fmt.Sprintf("%%.%df", precision)
		if fmt.Sprintf(format, prev) != fmt.Sprintf(format, curr) {
			clarity := precision + 1
			if clarity > maxPrecision {
				clarity = maxPrecision
			}
			return fmt.Sprintf(fmt.Sprintf("%%.%df", clarity), curr)
		}
	}
	return fmt.Sprintf(fmt.Sprintf("%%.%df", maxPrecision), curr)
}
