package fusion

// DefaultFrameRate is the capture rate assumed when no rate is configured
// or recorded with a session.
const DefaultFrameRate = 10.0

// Params collects the pipeline tunables. Binaries build Params from the
// JSON tuning config; DefaultParams gives the canonical defaults without
// touching the filesystem.
type Params struct {
	FrameRate                float64 // Frames per second
	ShrinkFactor             float64 // ROI shrink for lidar clustering, [0,1)
	LaneWidthMeters          float64 // Ego-lane corridor width
	MinPairwiseDistancePx    float64 // Camera TTC pairwise distance floor
	MatchDistanceFilterRatio float64 // Keypoint match filter, (0,1]
	FallbackToFirstBox       bool    // Zero-vote correspondence fallback
}

// DefaultParams returns the canonical pipeline defaults.
func DefaultParams() Params {
	return Params{
		FrameRate:                DefaultFrameRate,
		ShrinkFactor:             DefaultShrinkFactor,
		LaneWidthMeters:          DefaultLaneWidthMeters,
		MinPairwiseDistancePx:    DefaultMinPairwiseDistancePx,
		MatchDistanceFilterRatio: DefaultMatchDistanceFilterRatio,
		FallbackToFirstBox:       true,
	}
}

// BoxPairTTC is one row of pipeline output: the two independent TTC
// estimates for a matched box pair, plus counts and closing speed for
// reporting. Either TTC may be NaN or infinite; non-finite values mean no
// usable estimate.
type BoxPairTTC struct {
	PrevBoxID        int
	CurrBoxID        int
	LidarTTCSeconds  float64
	CameraTTCSeconds float64
	ClosingSpeedMps  float64
	LidarPointCount  int // Points clustered into the current box
	MatchCount       int // Filtered matches clustered into the current box
}

// Pipeline runs the per-frame-pair fusion: lidar clustering into both
// frames' boxes, box correspondence, then per matched pair the keypoint
// filter and both TTC estimators. Processing is synchronous and a Pipeline
// holds no state across frame pairs; only the calibration composite is
// shared, read-only.
type Pipeline struct {
	proj   *Projector
	params Params
}

// NewPipeline builds a pipeline for one capture session.
func NewPipeline(calib CalibrationSet, params Params) *Pipeline {
	return &Pipeline{
		proj:   NewProjector(calib),
		params: params,
	}
}

// Params returns the pipeline's effective tunables.
func (p *Pipeline) Params() Params { return p.params }

// ProcessFramePair fuses one consecutive frame pair. Both frames' boxes
// are mutated in place (lidar points on both sides, filtered keypoint
// matches on current-frame boxes) so callers can inspect the clustered
// data afterwards. The returned map covers every previous-frame box ID
// when the zero-vote fallback is enabled and the current frame has at
// least one box; rows follow previous-frame box order.
func (p *Pipeline) ProcessFramePair(prev, curr *Frame, matches []KeypointMatch) (map[int]int, []BoxPairTTC) {
	ClusterLidarPointsIntoBoxes(prev.Boxes, prev.LidarPoints, p.params.ShrinkFactor, p.proj)
	ClusterLidarPointsIntoBoxes(curr.Boxes, curr.LidarPoints, p.params.ShrinkFactor, p.proj)

	correspondence := MatchBoundingBoxes(matches, prev, curr, p.params.FallbackToFirstBox)

	results := make([]BoxPairTTC, 0, len(correspondence))
	clustered := make(map[int]bool, len(curr.Boxes))
	for i := range prev.Boxes {
		prevBox := &prev.Boxes[i]
		currID, ok := correspondence[prevBox.BoxID]
		if !ok {
			continue
		}
		currBox := findBox(curr.Boxes, currID)
		if currBox == nil {
			continue
		}

		// Two previous boxes may map to the same current box; cluster
		// its matches only once.
		if !clustered[currBox.BoxID] {
			ClusterMatchesIntoBox(currBox, curr.Keypoints, matches, p.params.MatchDistanceFilterRatio)
			clustered[currBox.BoxID] = true
		}

		results = append(results, BoxPairTTC{
			PrevBoxID:        prevBox.BoxID,
			CurrBoxID:        currBox.BoxID,
			LidarTTCSeconds:  LidarTTC(prevBox.LidarPoints, currBox.LidarPoints, p.params.FrameRate, p.params.LaneWidthMeters),
			CameraTTCSeconds: CameraTTC(prev.Keypoints, curr.Keypoints, currBox.KeypointMatches, p.params.FrameRate, p.params.MinPairwiseDistancePx),
			ClosingSpeedMps:  LidarClosingSpeed(prevBox.LidarPoints, currBox.LidarPoints, p.params.FrameRate, p.params.LaneWidthMeters),
			LidarPointCount:  len(currBox.LidarPoints),
			MatchCount:       len(currBox.KeypointMatches),
		})
	}
	return correspondence, results
}

func findBox(boxes []BoundingBox, boxID int) *BoundingBox {
	for i := range boxes {
		if boxes[i].BoxID == boxID {
			return &boxes[i]
		}
	}
	return nil
}
