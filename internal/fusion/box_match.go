package fusion

// MatchBoundingBoxes resolves which current-frame box corresponds to each
// previous-frame box by keypoint voting: every match credits all
// (previous box, current box) index pairs whose ROIs contain the match's
// previous and current keypoints. Overlapping boxes each receive credit.
// For every previous box the current box with the most votes wins; ties go
// to the first current box encountered.
//
// A previous box that collects no votes maps to the first current box when
// fallbackToFirst is set, preserving the long-standing behaviour of the
// original pipeline; with it unset such boxes are omitted from the
// mapping. An empty current frame always yields an empty mapping.
func MatchBoundingBoxes(matches []KeypointMatch, prev, curr *Frame, fallbackToFirst bool) map[int]int {
	best := make(map[int]int, len(prev.Boxes))
	if len(prev.Boxes) == 0 || len(curr.Boxes) == 0 {
		return best
	}

	votes := voteTable(matches, prev, curr)
	for i := range prev.Boxes {
		maxVotes := 0
		bestIdx := -1
		for j := range curr.Boxes {
			if votes[i][j] > maxVotes {
				maxVotes = votes[i][j]
				bestIdx = j
			}
		}
		if bestIdx < 0 {
			if !fallbackToFirst {
				continue
			}
			bestIdx = 0
		}
		best[prev.Boxes[i].BoxID] = curr.Boxes[bestIdx].BoxID
	}
	return best
}

// voteTable counts, per (previous box, current box) index pair, the
// keypoint matches whose previous endpoint lies inside the previous box
// and whose current endpoint lies inside the current box. Each side of the
// table is sized by its own frame's box count. Matches with out-of-range
// keypoint indices are ignored.
func voteTable(matches []KeypointMatch, prev, curr *Frame) [][]int {
	votes := make([][]int, len(prev.Boxes))
	for i := range votes {
		votes[i] = make([]int, len(curr.Boxes))
	}

	for _, m := range matches {
		if m.PrevIdx < 0 || m.PrevIdx >= len(prev.Keypoints) ||
			m.CurrIdx < 0 || m.CurrIdx >= len(curr.Keypoints) {
			continue
		}
		pk := prev.Keypoints[m.PrevIdx]
		ck := curr.Keypoints[m.CurrIdx]

		var prevBoxes, currBoxes []int
		for i := range prev.Boxes {
			if prev.Boxes[i].ROI.Contains(pk.X, pk.Y) {
				prevBoxes = append(prevBoxes, i)
			}
		}
		for j := range curr.Boxes {
			if curr.Boxes[j].ROI.Contains(ck.X, ck.Y) {
				currBoxes = append(currBoxes, j)
			}
		}

		for _, i := range prevBoxes {
			for _, j := range currBoxes {
				votes[i][j]++
			}
		}
	}
	return votes
}
