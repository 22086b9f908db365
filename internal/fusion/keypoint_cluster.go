package fusion

import "gonum.org/v1/gonum/stat"

// DefaultMatchDistanceFilterRatio scales the mean descriptor distance of
// the contained matches into the one-sided rejection threshold applied by
// ClusterMatchesIntoBox.
const DefaultMatchDistanceFilterRatio = 0.8

// ClusterMatchesIntoBox appends to box.KeypointMatches the matches whose
// current-frame keypoint lies inside the box ROI (unshrunk) and whose
// descriptor distance is below filterRatio times the mean distance of the
// contained set. The filter is one-sided: descriptor distance has no
// natural lower-tail outlier, so only high-dissimilarity matches are
// removed. When no match falls inside the box, box.KeypointMatches is left
// empty. Matches with out-of-range keypoint indices are ignored.
func ClusterMatchesIntoBox(box *BoundingBox, currKeypoints []Keypoint, matches []KeypointMatch, filterRatio float64) {
	var contained []KeypointMatch
	for _, m := range matches {
		if m.CurrIdx < 0 || m.CurrIdx >= len(currKeypoints) {
			continue
		}
		kp := currKeypoints[m.CurrIdx]
		if box.ROI.Contains(kp.X, kp.Y) {
			contained = append(contained, m)
		}
	}
	if len(contained) == 0 {
		return
	}

	dists := make([]float64, len(contained))
	for i, m := range contained {
		dists[i] = m.Distance
	}
	threshold := filterRatio * stat.Mean(dists, nil)

	for _, m := range contained {
		if m.Distance < threshold {
			box.KeypointMatches = append(box.KeypointMatches, m)
		}
	}
}
