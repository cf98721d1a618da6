package engine

import "math"

// pctDiff is the absolute percentage distance of b from a.
func pctDiff(a, b float64) (float64, bool) {
	if !isFinite(a) || a == 0 || !isFinite(b) {
		return 0, false
	}
	return math.Abs(b-a) / math.Abs(a) * 100.0, true
}

// pctMove is the signed percentage move from a to b.
func pctMove(a, b float64) (float64, bool) {
	if !isFinite(a) || a == 0 || !isFinite(b) {
		return 0, false
	}
	return (b - a) / a * 100.0, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
