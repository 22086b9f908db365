package fusion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFramePair assembles a two-frame scenario against testCalib: one box
// per frame covering the projected lidar point (320,240) and all
// keypoints, a closing object (10m -> 8m), and keypoint geometry whose two
// retained matches give a 1.1 pairwise distance ratio.
func buildFramePair() (prev, curr *Frame, matches []KeypointMatch) {
	prev = &Frame{
		Boxes:       []BoundingBox{{BoxID: 7, ROI: Rect{X: 0, Y: 0, Width: 400, Height: 300}}},
		Keypoints:   []Keypoint{{X: 100, Y: 100}, {X: 200, Y: 100}, {X: 150, Y: 150}},
		LidarPoints: []LidarPoint{{X: 10, Y: 0, Z: 0}},
	}
	curr = &Frame{
		Boxes:       []BoundingBox{{BoxID: 3, ROI: Rect{X: 0, Y: 0, Width: 400, Height: 300}}},
		Keypoints:   []Keypoint{{X: 100, Y: 100}, {X: 210, Y: 100}, {X: 150, Y: 150}},
		LidarPoints: []LidarPoint{{X: 8, Y: 0, Z: 0}},
	}
	// Distances [1,1,10]: mean 4, threshold 3.2 — the first two matches
	// survive the filter and span 100px (prev) / 110px (curr).
	matches = []KeypointMatch{
		{PrevIdx: 0, CurrIdx: 0, Distance: 1},
		{PrevIdx: 1, CurrIdx: 1, Distance: 1},
		{PrevIdx: 2, CurrIdx: 2, Distance: 10},
	}
	return prev, curr, matches
}

func TestPipeline_ProcessFramePair(t *testing.T) {
	pipe := NewPipeline(testCalib(), DefaultParams())
	prev, curr, matches := buildFramePair()

	correspondence, results := pipe.ProcessFramePair(prev, curr, matches)

	require.Equal(t, map[int]int{7: 3}, correspondence)
	require.Len(t, results, 1)
	row := results[0]

	assert.Equal(t, 7, row.PrevBoxID)
	assert.Equal(t, 3, row.CurrBoxID)

	// Lidar: singleton means 10m -> 8m at 10 fps.
	assert.InDelta(t, 0.4, row.LidarTTCSeconds, 1e-9)
	assert.InDelta(t, 20.0, row.ClosingSpeedMps, 1e-9)
	assert.Equal(t, 1, row.LidarPointCount)

	// Camera: the retained pair spans 100px -> 110px, ratio 1.1.
	assert.InDelta(t, 1.0, row.CameraTTCSeconds, 1e-9)
	assert.Equal(t, 2, row.MatchCount)

	// Clusterers mutate the frames in place.
	assert.Len(t, prev.Boxes[0].LidarPoints, 1)
	assert.Len(t, curr.Boxes[0].LidarPoints, 1)
	assert.Len(t, curr.Boxes[0].KeypointMatches, 2)
}

func TestPipeline_NoLidarPointsGivesNaNLidarTTC(t *testing.T) {
	pipe := NewPipeline(testCalib(), DefaultParams())
	prev, curr, matches := buildFramePair()
	prev.LidarPoints = nil

	_, results := pipe.ProcessFramePair(prev, curr, matches)

	require.Len(t, results, 1)
	assert.True(t, math.IsNaN(results[0].LidarTTCSeconds), "lidar TTC should be NaN without points")
	// The camera estimate is independent and must survive.
	assert.InDelta(t, 1.0, results[0].CameraTTCSeconds, 1e-9)
}

func TestPipeline_NoMatchesGivesNaNCameraTTC(t *testing.T) {
	pipe := NewPipeline(testCalib(), DefaultParams())
	prev, curr, _ := buildFramePair()

	correspondence, results := pipe.ProcessFramePair(prev, curr, nil)

	// With no votes the fallback still maps the previous box.
	require.Equal(t, map[int]int{7: 3}, correspondence)
	require.Len(t, results, 1)
	assert.True(t, math.IsNaN(results[0].CameraTTCSeconds), "camera TTC should be NaN without matches")
	assert.InDelta(t, 0.4, results[0].LidarTTCSeconds, 1e-9)
}

func TestPipeline_SharedCurrentBoxClusteredOnce(t *testing.T) {
	pipe := NewPipeline(testCalib(), DefaultParams())
	prev, curr, matches := buildFramePair()
	// A second previous box with no votes falls back onto the same
	// current box; its matches must not be clustered twice.
	prev.Boxes = append(prev.Boxes, BoundingBox{BoxID: 8, ROI: Rect{X: 500, Y: 500, Width: 10, Height: 10}})

	_, results := pipe.ProcessFramePair(prev, curr, matches)

	require.Len(t, results, 2)
	assert.Len(t, curr.Boxes[0].KeypointMatches, 2, "shared current box must be clustered exactly once")
}

func TestPipeline_EmptyFrames(t *testing.T) {
	pipe := NewPipeline(testCalib(), DefaultParams())

	correspondence, results := pipe.ProcessFramePair(&Frame{}, &Frame{}, nil)
	assert.Empty(t, correspondence)
	assert.Empty(t, results)
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 10.0, p.FrameRate)
	assert.Equal(t, 0.10, p.ShrinkFactor)
	assert.Equal(t, 4.0, p.LaneWidthMeters)
	assert.Equal(t, 100.0, p.MinPairwiseDistancePx)
	assert.Equal(t, 0.8, p.MatchDistanceFilterRatio)
	assert.True(t, p.FallbackToFirstBox)
}
