// Package fusion implements the lidar/camera fusion core: projection of
// lidar returns into the image plane, clustering of points and keypoint
// matches into detector bounding boxes, frame-to-frame box correspondence,
// and the two time-to-collision estimators.
//
// Coordinate conventions follow the sensor head: lidar points are in
// vehicle-centred sensor coordinates (X forward, Y left, Z up, metres);
// keypoints and box regions are in rectified image pixel coordinates.
package fusion

// LidarPoint is a single 3D return in sensor coordinates.
type LidarPoint struct {
	X            float64 `json:"x"` // Forward (m)
	Y            float64 `json:"y"` // Left (m)
	Z            float64 `json:"z"` // Up (m)
	Reflectivity float64 `json:"reflectivity,omitempty"`
}

// Keypoint is a detected 2D image feature, scoped to one frame.
type Keypoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// KeypointMatch is a tentative correspondence between a keypoint in the
// previous frame and one in the current frame, produced by an external
// descriptor matcher. Distance is a non-negative dissimilarity score;
// smaller means a more confident match.
type KeypointMatch struct {
	PrevIdx  int     `json:"prev_idx"`
	CurrIdx  int     `json:"curr_idx"`
	Distance float64 `json:"distance"`
}

// Rect is an axis-aligned rectangle in pixel space. Containment is
// half-open: the minimum edges are inside, the maximum edges are not
// (the image.Rectangle convention).
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether the pixel (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Shrunk returns the rectangle scaled by (1 - factor) about its centre.
// Factor 0 returns the rectangle unchanged.
func (r Rect) Shrunk(factor float64) Rect {
	return Rect{
		X:      r.X + factor*r.Width/2,
		Y:      r.Y + factor*r.Height/2,
		Width:  r.Width * (1 - factor),
		Height: r.Height * (1 - factor),
	}
}

// BoundingBox is a detector-produced 2D object region. LidarPoints and
// KeypointMatches start empty and are appended by the clusterers during one
// frame-pair computation; the ROI never changes after creation. Box IDs are
// unique within a frame and carry no meaning across frames except through
// MatchBoundingBoxes.
type BoundingBox struct {
	BoxID           int             `json:"box_id"`
	ROI             Rect            `json:"roi"`
	LidarPoints     []LidarPoint    `json:"lidar_points,omitempty"`
	KeypointMatches []KeypointMatch `json:"keypoint_matches,omitempty"`
}

// Frame bundles the external detector and sensor outputs for one capture
// instant. Boxes arrive with empty LidarPoints/KeypointMatches; the
// clusterers populate them in place.
type Frame struct {
	Boxes       []BoundingBox `json:"boxes"`
	Keypoints   []Keypoint    `json:"keypoints"`
	LidarPoints []LidarPoint  `json:"lidar_points"`
}
