package fusion

import "math"

// DefaultMinPairwiseDistancePx excludes near-coincident current-frame
// keypoint pairs whose distance ratio is numerically unstable. This is a
// fixed pixel threshold, not a fraction of the image size.
const DefaultMinPairwiseDistancePx = 100.0

// distPrevEpsilon guards the distance ratio against division by a
// degenerate previous-frame distance (machine epsilon).
var distPrevEpsilon = math.Nextafter(1, 2) - 1

// CameraTTC estimates time-to-collision from the change in apparent scale
// of an object between two frames. The scale change is measured as the
// median ratio of pairwise keypoint distances (current over previous)
// across all i<j pairs of matches:
//
//	TTC = -dT / (1 - medianRatio)
//
// The median rather than the mean resists the heavy outliers that
// mismatched keypoints produce. Returns NaN when matches is empty or no
// pair survives the distance guards; any non-finite result means no usable
// estimate.
func CameraTTC(prevKeypoints, currKeypoints []Keypoint, matches []KeypointMatch, frameRate, minDistCurr float64) float64 {
	if len(matches) == 0 {
		return math.NaN()
	}
	ratios := pairwiseDistanceRatios(prevKeypoints, currKeypoints, matches, minDistCurr)
	if len(ratios) == 0 {
		return math.NaN()
	}
	dt := 1.0 / frameRate
	return -dt / (1 - Median(ratios))
}

// pairwiseDistanceRatios computes distCurr/distPrev for every unordered
// pair of distinct matches. Pairs with distPrev at or below machine
// epsilon or distCurr below minDistCurr are skipped. Matches with
// out-of-range keypoint indices are ignored entirely.
func pairwiseDistanceRatios(prevKeypoints, currKeypoints []Keypoint, matches []KeypointMatch, minDistCurr float64) []float64 {
	var ratios []float64
	for i := 0; i < len(matches)-1; i++ {
		if !matchInRange(matches[i], len(prevKeypoints), len(currKeypoints)) {
			continue
		}
		outerCurr := currKeypoints[matches[i].CurrIdx]
		outerPrev := prevKeypoints[matches[i].PrevIdx]

		for j := i + 1; j < len(matches); j++ {
			if !matchInRange(matches[j], len(prevKeypoints), len(currKeypoints)) {
				continue
			}
			innerCurr := currKeypoints[matches[j].CurrIdx]
			innerPrev := prevKeypoints[matches[j].PrevIdx]

			distCurr := math.Hypot(outerCurr.X-innerCurr.X, outerCurr.Y-innerCurr.Y)
			distPrev := math.Hypot(outerPrev.X-innerPrev.X, outerPrev.Y-innerPrev.Y)

			if distPrev > distPrevEpsilon && distCurr >= minDistCurr {
				ratios = append(ratios, distCurr/distPrev)
			}
		}
	}
	return ratios
}

func matchInRange(m KeypointMatch, prevLen, currLen int) bool {
	return m.PrevIdx >= 0 && m.PrevIdx < prevLen && m.CurrIdx >= 0 && m.CurrIdx < currLen
}
