package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/collision.report/internal/fusion"
)

// DefaultConfigPath is the path to the canonical fusion defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/fusion.defaults.json"

// FusionConfig represents the root configuration for the fusion pipeline
// tunables. Fields are pointers so a partial JSON file only overrides the
// values it names; the Get* methods supply defaults for the rest.
type FusionConfig struct {
	// Capture params
	FrameRate *float64 `json:"frame_rate,omitempty"`

	// Lidar clustering params
	ShrinkFactor    *float64 `json:"shrink_factor,omitempty"`
	LaneWidthMeters *float64 `json:"lane_width_meters,omitempty"`

	// Keypoint params
	MinPairwiseDistancePx    *float64 `json:"min_pairwise_distance_px,omitempty"`
	MatchDistanceFilterRatio *float64 `json:"match_distance_filter_ratio,omitempty"`

	// Box correspondence params
	FallbackToFirstBox *bool `json:"fallback_to_first_box,omitempty"`
}

// EmptyFusionConfig returns a FusionConfig with all fields set to nil.
// Use LoadFusionConfig to load actual values from the defaults file.
func EmptyFusionConfig() *FusionConfig {
	return &FusionConfig{}
}

// LoadFusionConfig loads a FusionConfig from a JSON file. The file is
// validated to ensure it has a .json extension and is under the max file
// size. Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadFusionConfig(path string) (*FusionConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyFusionConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical fusion defaults from
// DefaultConfigPath. It searches for the file in the current directory and
// common parent directories. Panics if the file cannot be loaded, intended
// for test setup.
func MustLoadDefaultConfig() *FusionConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadFusionConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *FusionConfig) Validate() error {
	if c.FrameRate != nil && *c.FrameRate <= 0 {
		return fmt.Errorf("frame_rate must be positive, got %f", *c.FrameRate)
	}
	if c.ShrinkFactor != nil {
		if *c.ShrinkFactor < 0 || *c.ShrinkFactor >= 1 {
			return fmt.Errorf("shrink_factor must be in [0,1), got %f", *c.ShrinkFactor)
		}
	}
	if c.LaneWidthMeters != nil && *c.LaneWidthMeters <= 0 {
		return fmt.Errorf("lane_width_meters must be positive, got %f", *c.LaneWidthMeters)
	}
	if c.MinPairwiseDistancePx != nil && *c.MinPairwiseDistancePx < 0 {
		return fmt.Errorf("min_pairwise_distance_px must be non-negative, got %f", *c.MinPairwiseDistancePx)
	}
	if c.MatchDistanceFilterRatio != nil {
		if *c.MatchDistanceFilterRatio <= 0 || *c.MatchDistanceFilterRatio > 1 {
			return fmt.Errorf("match_distance_filter_ratio must be in (0,1], got %f", *c.MatchDistanceFilterRatio)
		}
	}
	return nil
}

// GetFrameRate returns the frame_rate value or the default.
func (c *FusionConfig) GetFrameRate() float64 {
	if c.FrameRate == nil {
		return fusion.DefaultFrameRate
	}
	return *c.FrameRate
}

// GetShrinkFactor returns the shrink_factor value or the default.
func (c *FusionConfig) GetShrinkFactor() float64 {
	if c.ShrinkFactor == nil {
		return fusion.DefaultShrinkFactor
	}
	return *c.ShrinkFactor
}

// GetLaneWidthMeters returns the lane_width_meters value or the default.
func (c *FusionConfig) GetLaneWidthMeters() float64 {
	if c.LaneWidthMeters == nil {
		return fusion.DefaultLaneWidthMeters
	}
	return *c.LaneWidthMeters
}

// GetMinPairwiseDistancePx returns the min_pairwise_distance_px value or the default.
func (c *FusionConfig) GetMinPairwiseDistancePx() float64 {
	if c.MinPairwiseDistancePx == nil {
		return fusion.DefaultMinPairwiseDistancePx
	}
	return *c.MinPairwiseDistancePx
}

// GetMatchDistanceFilterRatio returns the match_distance_filter_ratio value or the default.
func (c *FusionConfig) GetMatchDistanceFilterRatio() float64 {
	if c.MatchDistanceFilterRatio == nil {
		return fusion.DefaultMatchDistanceFilterRatio
	}
	return *c.MatchDistanceFilterRatio
}

// GetFallbackToFirstBox returns the fallback_to_first_box value or the
// default. The default preserves the original pipeline behaviour of
// mapping a zero-vote previous box to the first current box.
func (c *FusionConfig) GetFallbackToFirstBox() bool {
	if c.FallbackToFirstBox == nil {
		return true
	}
	return *c.FallbackToFirstBox
}

// Params builds the fusion pipeline parameters from the configuration,
// applying defaults for any unset fields.
func (c *FusionConfig) Params() fusion.Params {
	return fusion.Params{
		FrameRate:                c.GetFrameRate(),
		ShrinkFactor:             c.GetShrinkFactor(),
		LaneWidthMeters:          c.GetLaneWidthMeters(),
		MinPairwiseDistancePx:    c.GetMinPairwiseDistancePx(),
		MatchDistanceFilterRatio: c.GetMatchDistanceFilterRatio(),
		FallbackToFirstBox:       c.GetFallbackToFirstBox(),
	}
}
