package main

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/collision.report/internal/config"
	"github.com/banshee-data/collision.report/internal/fusion"
	"github.com/banshee-data/collision.report/internal/fusiondb"
)

func testServer(t *testing.T, db *fusiondb.CaptureDB) *Server {
	t.Helper()
	calib := fusion.CalibrationSet{
		Projection:    [12]float64{500, 0, 320, 0, 0, 500, 240, 0, 0, 0, 1, 0},
		Rectification: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
		Extrinsic:     [16]float64{0, -1, 0, 0, 0, 0, -1, 0, 1, 0, 0, 0, 0, 0, 0, 1},
	}
	return NewServer(config.EmptyFusionConfig(), &calib, db)
}

func TestHomeHandler(t *testing.T) {
	srv := testServer(t, nil)
	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "collision.report")
}

func TestComputeTTCHandler(t *testing.T) {
	srv := testServer(t, nil)

	body := `{
		"frame_rate": 10,
		"previous": {
			"boxes": [{"box_id": 7, "roi": {"x": 0, "y": 0, "width": 400, "height": 300}}],
			"keypoints": [{"x": 100, "y": 100}, {"x": 200, "y": 100}, {"x": 150, "y": 150}],
			"lidar_points": [{"x": 10, "y": 0, "z": 0}]
		},
		"current": {
			"boxes": [{"box_id": 3, "roi": {"x": 0, "y": 0, "width": 400, "height": 300}}],
			"keypoints": [{"x": 100, "y": 100}, {"x": 210, "y": 100}, {"x": 150, "y": 150}],
			"lidar_points": [{"x": 8, "y": 0, "z": 0}]
		},
		"matches": [
			{"prev_idx": 0, "curr_idx": 0, "distance": 1},
			{"prev_idx": 1, "curr_idx": 1, "distance": 1},
			{"prev_idx": 2, "curr_idx": 2, "distance": 10}
		]
	}`

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ttc", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ttcResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, map[int]int{7: 3}, resp.Correspondence)
	require.Len(t, resp.Results, 1)

	row := resp.Results[0]
	assert.Equal(t, 7, row.PrevBoxID)
	assert.Equal(t, 3, row.CurrBoxID)
	require.NotNil(t, row.LidarTTCSeconds)
	assert.InDelta(t, 0.4, *row.LidarTTCSeconds, 1e-9)
	require.NotNil(t, row.CameraTTCSeconds)
	assert.InDelta(t, 1.0, *row.CameraTTCSeconds, 1e-9)
}

// A frame pair with no usable data must answer with null estimates, not
// an error: NaN is the pipeline's sentinel, null is its JSON spelling.
func TestComputeTTCHandlerDegenerate(t *testing.T) {
	srv := testServer(t, nil)

	body := `{
		"previous": {"boxes": [{"box_id": 0, "roi": {"x": 0, "y": 0, "width": 100, "height": 100}}], "keypoints": [], "lidar_points": []},
		"current": {"boxes": [{"box_id": 0, "roi": {"x": 0, "y": 0, "width": 100, "height": 100}}], "keypoints": [], "lidar_points": []},
		"matches": []
	}`

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ttc", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ttcResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Nil(t, resp.Results[0].LidarTTCSeconds)
	assert.Nil(t, resp.Results[0].CameraTTCSeconds)
}

func TestComputeTTCHandlerRejects(t *testing.T) {
	srv := testServer(t, nil)

	t.Run("wrong method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ttc", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ttc", strings.NewReader("{")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("negative frame rate", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ttc",
			strings.NewReader(`{"frame_rate": -1, "previous": {}, "current": {}, "matches": []}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListSessionsHandler(t *testing.T) {
	t.Run("no database configured", func(t *testing.T) {
		srv := testServer(t, nil)
		rec := httptest.NewRecorder()
		srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("lists recorded sessions", func(t *testing.T) {
		db, err := fusiondb.Open(filepath.Join(t.TempDir(), "capture.db"))
		require.NoError(t, err)
		defer db.Close()

		_, err = db.BeginSession("morning run", 10)
		require.NoError(t, err)

		srv := testServer(t, db)
		rec := httptest.NewRecorder()
		srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "morning run")
	})
}

func TestParamsHandler(t *testing.T) {
	srv := testServer(t, nil)
	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/params", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var params map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &params))
	assert.Equal(t, 10.0, params["frame_rate"])
	assert.Equal(t, 0.10, params["shrink_factor"])
}

func TestFinitePtr(t *testing.T) {
	assert.Nil(t, finitePtr(math.NaN()))
	assert.Nil(t, finitePtr(math.Inf(1)))
	assert.Nil(t, finitePtr(math.Inf(-1)))
	require.NotNil(t, finitePtr(0.4))
	assert.Equal(t, 0.4, *finitePtr(0.4))
}
