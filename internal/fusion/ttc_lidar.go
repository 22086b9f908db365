package fusion

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultLaneWidthMeters is the assumed width of the ego lane. Lidar
// points outside the corridor |y| <= laneWidth/2 belong to neighbouring
// lanes or roadside clutter and are excluded from TTC estimation.
const DefaultLaneWidthMeters = 4.0

// LidarTTC estimates time-to-collision from the longitudinal closing of
// two lidar point sets under a constant-velocity model:
//
//	TTC = avgCurr * dT / (avgPrev - avgCurr)
//
// where avgPrev/avgCurr are the mean longitudinal (x) coordinates of the
// ego-lane points in each set. The mean rather than the minimum is used so
// sparse near-field outlier returns do not dominate, at the cost of bias
// when the point distribution is skewed. Returns NaN when either filtered
// set is empty. A near-zero closing distance yields a very large or
// infinite TTC; callers must treat any non-finite result as no usable
// estimate, never as zero.
func LidarTTC(prevPoints, currPoints []LidarPoint, frameRate, laneWidth float64) float64 {
	avgPrev, avgCurr, ok := laneMeans(prevPoints, currPoints, laneWidth)
	if !ok {
		return math.NaN()
	}
	dt := 1.0 / frameRate
	return avgCurr * dt / (avgPrev - avgCurr)
}

// LidarClosingSpeed reports the closing speed (m/s, positive when the
// object is approaching) implied by the same corridor means LidarTTC uses.
// NaN when either side has no ego-lane points.
func LidarClosingSpeed(prevPoints, currPoints []LidarPoint, frameRate, laneWidth float64) float64 {
	avgPrev, avgCurr, ok := laneMeans(prevPoints, currPoints, laneWidth)
	if !ok {
		return math.NaN()
	}
	return (avgPrev - avgCurr) * frameRate
}

func laneMeans(prevPoints, currPoints []LidarPoint, laneWidth float64) (avgPrev, avgCurr float64, ok bool) {
	prevX := laneLongitudinals(prevPoints, laneWidth/2)
	currX := laneLongitudinals(currPoints, laneWidth/2)
	if len(prevX) == 0 || len(currX) == 0 {
		return 0, 0, false
	}
	return stat.Mean(prevX, nil), stat.Mean(currX, nil), true
}

// laneLongitudinals collects the forward (x) coordinates of the points
// inside the ego-lane corridor |y| <= halfWidth.
func laneLongitudinals(points []LidarPoint, halfWidth float64) []float64 {
	xs := make([]float64, 0, len(points))
	for _, p := range points {
		if math.Abs(p.Y) <= halfWidth {
			xs = append(xs, p.X)
		}
	}
	return xs
}
