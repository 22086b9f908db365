package fusion

// DefaultShrinkFactor is the fraction by which box ROIs are shrunk about
// their centre before lidar containment tests. Shrinking trims the box
// edges, where detector boxes routinely overhang the object and collect
// road or background returns.
const DefaultShrinkFactor = 0.10

// ClusterLidarPointsIntoBoxes assigns each lidar point to the bounding box
// whose shrunk ROI contains the point's camera projection. A point
// contained by zero boxes or by more than one box is dropped: ambiguous
// points near box edges introduce more error than discarding them costs.
// Points whose projection is non-finite (zero homogeneous depth) are
// skipped. Boxes are mutated in place, append-only on LidarPoints.
func ClusterLidarPointsIntoBoxes(boxes []BoundingBox, points []LidarPoint, shrinkFactor float64, proj *Projector) {
	for _, pt := range points {
		px, py := proj.Project(pt)
		if !finite(px) || !finite(py) {
			continue
		}

		enclosing := -1
		ambiguous := false
		for i := range boxes {
			if boxes[i].ROI.Shrunk(shrinkFactor).Contains(px, py) {
				if enclosing >= 0 {
					ambiguous = true
					break
				}
				enclosing = i
			}
		}

		if enclosing >= 0 && !ambiguous {
			boxes[enclosing].LidarPoints = append(boxes[enclosing].LidarPoints, pt)
		}
	}
}
