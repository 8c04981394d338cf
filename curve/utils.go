package curve

import "sort"

// findBracketOrBoundary returns the indices of two adjacent pillar times that
// bracket the target. If the target is outside the range, returns the nearest
// boundary pair.
//
// times must be sorted ascending with at least two entries.
func findBracketOrBoundary(times []float64, target float64) (i1, i2 int) {
	if len(times) < 2 {
		panic("findBracketOrBoundary: need at least 2 times")
	}

	// Binary search for first time >= target
	idx := sort.SearchFloat64s(times, target)

	if idx <= 0 {
		return 0, 1
	}
	if idx >= len(times) {
		return len(times) - 2, len(times) - 1
	}
	// Normal case: times[idx-1] < target <= times[idx]
	return idx - 1, idx
}
