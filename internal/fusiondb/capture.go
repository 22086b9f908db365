package fusiondb

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/banshee-data/collision.report/internal/fusion"
)

// RecordFrame stores one frame's detector and sensor outputs under a
// session. The whole frame is written in a single transaction.
func (cdb *CaptureDB) RecordFrame(sessionID string, frameIndex int, frame *fusion.Frame) error {
	tx, err := cdb.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO frames (session_id, frame_index) VALUES (?, ?)`,
		sessionID, frameIndex,
	)
	if err != nil {
		return fmt.Errorf("failed to insert frame: %w", err)
	}
	frameID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get frame ID: %w", err)
	}

	boxStmt, err := tx.Prepare(
		`INSERT INTO boxes (frame_id, box_id, x, y, width, height) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare box insert: %w", err)
	}
	defer boxStmt.Close()
	for _, b := range frame.Boxes {
		if _, err := boxStmt.Exec(frameID, b.BoxID, b.ROI.X, b.ROI.Y, b.ROI.Width, b.ROI.Height); err != nil {
			return fmt.Errorf("failed to insert box %d: %w", b.BoxID, err)
		}
	}

	kpStmt, err := tx.Prepare(
		`INSERT INTO keypoints (frame_id, kp_index, x, y) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare keypoint insert: %w", err)
	}
	defer kpStmt.Close()
	for i, kp := range frame.Keypoints {
		if _, err := kpStmt.Exec(frameID, i, kp.X, kp.Y); err != nil {
			return fmt.Errorf("failed to insert keypoint %d: %w", i, err)
		}
	}

	ptStmt, err := tx.Prepare(
		`INSERT INTO lidar_points (frame_id, x, y, z, reflectivity) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare lidar point insert: %w", err)
	}
	defer ptStmt.Close()
	for _, p := range frame.LidarPoints {
		if _, err := ptStmt.Exec(frameID, p.X, p.Y, p.Z, p.Reflectivity); err != nil {
			return fmt.Errorf("failed to insert lidar point: %w", err)
		}
	}

	return tx.Commit()
}

// RecordMatches stores the keypoint matches connecting a frame to its
// predecessor, keyed by the current (later) frame's index.
func (cdb *CaptureDB) RecordMatches(sessionID string, currFrameIndex int, matches []fusion.KeypointMatch) error {
	tx, err := cdb.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO matches (session_id, curr_frame_index, prev_idx, curr_idx, distance) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare match insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range matches {
		if _, err := stmt.Exec(sessionID, currFrameIndex, m.PrevIdx, m.CurrIdx, m.Distance); err != nil {
			return fmt.Errorf("failed to insert match: %w", err)
		}
	}

	return tx.Commit()
}

// LoadFrame reconstructs a recorded frame. Boxes come back with empty
// LidarPoints/KeypointMatches, exactly as the detector produced them.
func (cdb *CaptureDB) LoadFrame(sessionID string, frameIndex int) (*fusion.Frame, error) {
	var frameID int64
	err := cdb.QueryRow(
		`SELECT id FROM frames WHERE session_id = ? AND frame_index = ?`,
		sessionID, frameIndex,
	).Scan(&frameID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("frame %d not recorded for session %s", frameIndex, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up frame: %w", err)
	}

	frame := &fusion.Frame{}

	rows, err := cdb.Query(
		`SELECT box_id, x, y, width, height FROM boxes WHERE frame_id = ? ORDER BY id`, frameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load boxes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b fusion.BoundingBox
		if err := rows.Scan(&b.BoxID, &b.ROI.X, &b.ROI.Y, &b.ROI.Width, &b.ROI.Height); err != nil {
			return nil, fmt.Errorf("failed to scan box: %w", err)
		}
		frame.Boxes = append(frame.Boxes, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	kpRows, err := cdb.Query(
		`SELECT x, y FROM keypoints WHERE frame_id = ? ORDER BY kp_index`, frameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypoints: %w", err)
	}
	defer kpRows.Close()
	for kpRows.Next() {
		var kp fusion.Keypoint
		if err := kpRows.Scan(&kp.X, &kp.Y); err != nil {
			return nil, fmt.Errorf("failed to scan keypoint: %w", err)
		}
		frame.Keypoints = append(frame.Keypoints, kp)
	}
	if err := kpRows.Err(); err != nil {
		return nil, err
	}

	ptRows, err := cdb.Query(
		`SELECT x, y, z, reflectivity FROM lidar_points WHERE frame_id = ? ORDER BY id`, frameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lidar points: %w", err)
	}
	defer ptRows.Close()
	for ptRows.Next() {
		var p fusion.LidarPoint
		if err := ptRows.Scan(&p.X, &p.Y, &p.Z, &p.Reflectivity); err != nil {
			return nil, fmt.Errorf("failed to scan lidar point: %w", err)
		}
		frame.LidarPoints = append(frame.LidarPoints, p)
	}
	return frame, ptRows.Err()
}

// LoadMatches returns the keypoint matches recorded for the pair ending
// at currFrameIndex, in insertion order.
func (cdb *CaptureDB) LoadMatches(sessionID string, currFrameIndex int) ([]fusion.KeypointMatch, error) {
	rows, err := cdb.Query(
		`SELECT prev_idx, curr_idx, distance FROM matches
		 WHERE session_id = ? AND curr_frame_index = ? ORDER BY id`,
		sessionID, currFrameIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to load matches: %w", err)
	}
	defer rows.Close()

	var matches []fusion.KeypointMatch
	for rows.Next() {
		var m fusion.KeypointMatch
		if err := rows.Scan(&m.PrevIdx, &m.CurrIdx, &m.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
