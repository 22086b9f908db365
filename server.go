package main

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/banshee-data/collision.report/internal/config"
	"github.com/banshee-data/collision.report/internal/fusion"
	"github.com/banshee-data/collision.report/internal/fusiondb"
	"github.com/banshee-data/collision.report/internal/httputil"
)

// maxRequestBytes caps /api/ttc request bodies. A dense frame pair with a
// few thousand keypoints and lidar points stays well under this.
const maxRequestBytes = 16 << 20

type Server struct {
	cfg   *config.FusionConfig
	calib *fusion.CalibrationSet
	db    *fusiondb.CaptureDB // nil when no capture database is configured
}

func NewServer(cfg *config.FusionConfig, calib *fusion.CalibrationSet, db *fusiondb.CaptureDB) *Server {
	return &Server{
		cfg:   cfg,
		calib: calib,
		db:    db,
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.homeHandler)
	mux.HandleFunc("/api/ttc", s.computeTTCHandler)
	mux.HandleFunc("/api/sessions", s.listSessionsHandler)
	mux.HandleFunc("/api/params", s.paramsHandler)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("collision.report: lidar/camera TTC fusion\n"))
}

// ttcRequest carries one frame pair and its keypoint matches. FrameRate
// overrides the configured capture rate when positive.
type ttcRequest struct {
	FrameRate float64                `json:"frame_rate,omitempty"`
	Previous  fusion.Frame           `json:"previous"`
	Current   fusion.Frame           `json:"current"`
	Matches   []fusion.KeypointMatch `json:"matches"`
}

// boxPairResult mirrors fusion.BoxPairTTC with nullable floats: JSON has
// no NaN/Inf, so a non-finite estimate marshals as null.
type boxPairResult struct {
	PrevBoxID        int      `json:"prev_box_id"`
	CurrBoxID        int      `json:"curr_box_id"`
	LidarTTCSeconds  *float64 `json:"lidar_ttc_seconds"`
	CameraTTCSeconds *float64 `json:"camera_ttc_seconds"`
	ClosingSpeedMps  *float64 `json:"closing_speed_mps"`
	LidarPointCount  int      `json:"lidar_point_count"`
	MatchCount       int      `json:"match_count"`
}

type ttcResponse struct {
	Correspondence map[int]int     `json:"correspondence"`
	Results        []boxPairResult `json:"results"`
}

func (s *Server) computeTTCHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req ttcRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.FrameRate < 0 {
		httputil.BadRequest(w, "frame_rate must be non-negative")
		return
	}

	params := s.cfg.Params()
	if req.FrameRate > 0 {
		params.FrameRate = req.FrameRate
	}

	pipe := fusion.NewPipeline(*s.calib, params)
	correspondence, rows := pipe.ProcessFramePair(&req.Previous, &req.Current, req.Matches)

	resp := ttcResponse{
		Correspondence: correspondence,
		Results:        make([]boxPairResult, 0, len(rows)),
	}
	for _, row := range rows {
		resp.Results = append(resp.Results, boxPairResult{
			PrevBoxID:        row.PrevBoxID,
			CurrBoxID:        row.CurrBoxID,
			LidarTTCSeconds:  finitePtr(row.LidarTTCSeconds),
			CameraTTCSeconds: finitePtr(row.CameraTTCSeconds),
			ClosingSpeedMps:  finitePtr(row.ClosingSpeedMps),
			LidarPointCount:  row.LidarPointCount,
			MatchCount:       row.MatchCount,
		})
	}

	httputil.WriteJSONOK(w, resp)
}

func (s *Server) listSessionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.db == nil {
		httputil.ServiceUnavailable(w, "no capture database configured")
		return
	}

	sessions, err := s.db.ListSessions()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list sessions: %v", err))
		return
	}

	type sessionInfo struct {
		ID         string  `json:"id"`
		Notes      string  `json:"notes"`
		FrameRate  float64 `json:"frame_rate"`
		FrameCount int     `json:"frame_count"`
	}
	out := make([]sessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionInfo{
			ID:         sess.ID,
			Notes:      sess.Notes,
			FrameRate:  sess.FrameRate,
			FrameCount: sess.FrameCount,
		})
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) paramsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	p := s.cfg.Params()
	httputil.WriteJSONOK(w, map[string]any{
		"frame_rate":                  p.FrameRate,
		"shrink_factor":               p.ShrinkFactor,
		"lane_width_meters":           p.LaneWidthMeters,
		"min_pairwise_distance_px":    p.MinPairwiseDistancePx,
		"match_distance_filter_ratio": p.MatchDistanceFilterRatio,
		"fallback_to_first_box":       p.FallbackToFirstBox,
	})
}


// finitePtr returns a pointer to v, or nil when v is NaN or infinite.
func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
