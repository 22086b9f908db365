// Package fusiondb persists recorded fusion inputs (frames, boxes,
// keypoints, lidar points, keypoint matches) so capture sessions can be
// replayed through the TTC pipeline offline. Computed TTC results are
// never stored; a replay recomputes them from the recorded inputs.
package fusiondb

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// migrations holds the embedded capture schema migrations.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// CaptureDB wraps the SQLite capture database.
type CaptureDB struct {
	*sql.DB
}

// Session describes one recorded capture session.
type Session struct {
	ID          string
	CreatedUnix float64
	Notes       string
	FrameRate   float64
	FrameCount  int
}

// Open opens (creating if needed) the capture database at path and runs
// any pending schema migrations.
func Open(path string) (*CaptureDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture database: %w", err)
	}

	cdb := &CaptureDB{db}
	if err := cdb.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	log.Printf("capture database ready at %s", path)
	return cdb, nil
}

func (cdb *CaptureDB) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(cdb.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to init migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	// Note: We don't close m here because it would close the underlying
	// DB connection.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	return nil
}

// BeginSession creates a new capture session record and returns its ID.
func (cdb *CaptureDB) BeginSession(notes string, frameRate float64) (string, error) {
	id := uuid.NewString()

	_, err := cdb.Exec(
		`INSERT INTO sessions (id, notes, frame_rate) VALUES (?, ?, ?)`,
		id, notes, frameRate,
	)
	if err != nil {
		return "", fmt.Errorf("failed to begin session: %w", err)
	}

	return id, nil
}

// ListSessions returns all recorded sessions, newest first, with their
// frame counts.
func (cdb *CaptureDB) ListSessions() ([]Session, error) {
	rows, err := cdb.Query(`
		SELECT s.id, s.created_at, s.notes, s.frame_rate, COUNT(f.id)
		FROM sessions s
		LEFT JOIN frames f ON f.session_id = s.id
		GROUP BY s.id
		ORDER BY s.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.CreatedUnix, &s.Notes, &s.FrameRate, &s.FrameCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// LatestSession returns the most recently created session.
func (cdb *CaptureDB) LatestSession() (*Session, error) {
	sessions, err := cdb.ListSessions()
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no sessions recorded")
	}
	return &sessions[0], nil
}

// FrameCount returns the number of frames recorded for a session.
func (cdb *CaptureDB) FrameCount(sessionID string) (int, error) {
	var count int
	err := cdb.QueryRow(
		`SELECT COUNT(*) FROM frames WHERE session_id = ?`, sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count frames: %w", err)
	}
	return count, nil
}
