package fusion

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// CalibrationSet holds the session-constant camera/lidar calibration: the
// rectified camera projection matrix (3x4), the rectifying rotation (3x3)
// and the lidar-to-camera rigid transform (4x4). All matrices are
// row-major.
type CalibrationSet struct {
	Projection    [12]float64 `json:"projection"`
	Rectification [9]float64  `json:"rectification"`
	Extrinsic     [16]float64 `json:"extrinsic"`
}

// Validate rejects calibration sets with obviously missing matrices.
func (c *CalibrationSet) Validate() error {
	if allZero(c.Projection[:]) {
		return fmt.Errorf("calibration projection matrix is all zeros")
	}
	if allZero(c.Rectification[:]) {
		return fmt.Errorf("calibration rectification matrix is all zeros")
	}
	if allZero(c.Extrinsic[:]) {
		return fmt.Errorf("calibration extrinsic matrix is all zeros")
	}
	return nil
}

func allZero(vals []float64) bool {
	for _, v := range vals {
		if v != 0 {
			return false
		}
	}
	return true
}

// LoadCalibration reads a CalibrationSet from a JSON file. The file must
// have a .json extension and stay under a small size cap.
func LoadCalibration(path string) (*CalibrationSet, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("calibration file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat calibration file: %w", err)
	}
	const maxFileSize = 64 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("calibration file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration file: %w", err)
	}

	var calib CalibrationSet
	if err := json.Unmarshal(data, &calib); err != nil {
		return nil, fmt.Errorf("failed to parse calibration JSON: %w", err)
	}
	if err := calib.Validate(); err != nil {
		return nil, fmt.Errorf("invalid calibration: %w", err)
	}

	return &calib, nil
}

// Projector maps lidar points into rectified image pixels using a cached
// composite of the calibration matrices:
//
//	composite = projection · rect4 · extrinsic
//
// where rect4 embeds the 3x3 rectification into a 4x4 identity so the
// chain composes. The composite is built once per capture session.
type Projector struct {
	m *mat.Dense // 3x4
}

// NewProjector precomputes the composite projection matrix for calib.
func NewProjector(calib CalibrationSet) *Projector {
	p := mat.NewDense(3, 4, calib.Projection[:])
	rt := mat.NewDense(4, 4, calib.Extrinsic[:])

	r4 := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r4.Set(i, j, calib.Rectification[i*3+j])
		}
	}
	r4.Set(3, 3, 1)

	var rrt, m mat.Dense
	rrt.Mul(r4, rt)
	m.Mul(p, &rrt)
	return &Projector{m: &m}
}

// Project maps a lidar point to pixel coordinates by homogeneous
// projection followed by perspective division. A point with zero
// homogeneous depth produces non-finite pixel coordinates; callers must
// treat such pixels as unprojectable rather than clamp them.
func (pr *Projector) Project(pt LidarPoint) (px, py float64) {
	x := mat.NewVecDense(4, []float64{pt.X, pt.Y, pt.Z, 1})
	var y mat.VecDense
	y.MulVec(pr.m, x)
	w := y.AtVec(2)
	return y.AtVec(0) / w, y.AtVec(1) / w
}

// finite reports whether v is neither NaN nor infinite.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
