package fusion

import "math"

// Median returns the median of values using rank selection rather than a
// full sort. For an even length it averages the two middle ranks. The
// slice is partially reordered in place. An empty input returns NaN.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}

	mid := n / 2
	upper := quickselect(values, mid)
	if n%2 == 1 {
		return upper
	}

	// After selection every element left of mid is <= upper, so the
	// rank mid-1 element is the maximum of that left half.
	lower := values[0]
	for _, v := range values[1:mid] {
		if v > lower {
			lower = v
		}
	}
	return (lower + upper) / 2
}

// quickselect reorders a so that a[k] holds the element of rank k
// (0-based), everything before it is no larger and everything after it is
// no smaller. Average O(n).
func quickselect(a []float64, k int) float64 {
	lo, hi := 0, len(a)-1
	for lo < hi {
		p := partition(a, lo, hi)
		switch {
		case p == k:
			return a[k]
		case p < k:
			lo = p + 1
		default:
			hi = p - 1
		}
	}
	return a[k]
}

// partition applies Lomuto partitioning to a[lo:hi+1] around a
// median-of-three pivot and returns the pivot's final index. The pivot
// choice guards against quadratic behaviour on sorted input.
func partition(a []float64, lo, hi int) int {
	mid := lo + (hi-lo)/2
	if a[mid] < a[lo] {
		a[mid], a[lo] = a[lo], a[mid]
	}
	if a[hi] < a[lo] {
		a[hi], a[lo] = a[lo], a[hi]
	}
	if a[hi] < a[mid] {
		a[hi], a[mid] = a[mid], a[hi]
	}
	a[mid], a[hi] = a[hi], a[mid]

	pivot := a[hi]
	i := lo
	for j := lo; j < hi; j++ {
		if a[j] < pivot {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[hi] = a[hi], a[i]
	return i
}
