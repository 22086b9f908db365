// Command ttc replays a recorded capture session through the fusion
// pipeline and prints per-box-pair time-to-collision estimates.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/banshee-data/collision.report/internal/config"
	"github.com/banshee-data/collision.report/internal/fusion"
	"github.com/banshee-data/collision.report/internal/fusiondb"
	"github.com/banshee-data/collision.report/internal/units"
)

var (
	dbFile     = flag.String("db", "capture.db", "Path to the capture database")
	sessionID  = flag.String("session", "", "Session to replay (default: most recent)")
	calibFile  = flag.String("calib", "config/calibration.sample.json", "Path to the calibration JSON file")
	configFile = flag.String("config", "", "Optional fusion tuning config JSON")
	speedUnits = flag.String("units", units.MPS, "Units for closing speed (mps, mph, kmph, kph)")
	listOnly   = flag.Bool("list", false, "List recorded sessions and exit")
)

func main() {
	flag.Parse()

	if !units.IsValid(*speedUnits) {
		log.Fatalf("invalid units %q (valid: %s)", *speedUnits, units.ValidUnitsString())
	}

	db, err := fusiondb.Open(*dbFile)
	if err != nil {
		log.Fatalf("failed to open capture database: %v", err)
	}
	defer db.Close()

	if *listOnly {
		listSessions(db)
		return
	}

	cfg := config.EmptyFusionConfig()
	if *configFile != "" {
		cfg, err = config.LoadFusionConfig(*configFile)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	calib, err := fusion.LoadCalibration(*calibFile)
	if err != nil {
		log.Fatalf("failed to load calibration: %v", err)
	}

	session, err := resolveSession(db, *sessionID)
	if err != nil {
		log.Fatalf("failed to resolve session: %v", err)
	}

	params := cfg.Params()
	if session.FrameRate > 0 {
		params.FrameRate = session.FrameRate
	}
	pipe := fusion.NewPipeline(*calib, params)

	if err := replay(db, pipe, session); err != nil {
		log.Fatalf("replay failed: %v", err)
	}
}

func listSessions(db *fusiondb.CaptureDB) {
	sessions, err := db.ListSessions()
	if err != nil {
		log.Fatalf("failed to list sessions: %v", err)
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions recorded")
		return
	}
	for _, s := range sessions {
		fmt.Printf("%s  frames=%d  rate=%.1f  %s\n", s.ID, s.FrameCount, s.FrameRate, s.Notes)
	}
}

func resolveSession(db *fusiondb.CaptureDB, id string) (*fusiondb.Session, error) {
	if id == "" {
		return db.LatestSession()
	}
	sessions, err := db.ListSessions()
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].ID == id {
			return &sessions[i], nil
		}
	}
	return nil, fmt.Errorf("session %s not found", id)
}

// replay walks the session's consecutive frame pairs through the pipeline
// and prints one line per matched box pair.
func replay(db *fusiondb.CaptureDB, pipe *fusion.Pipeline, session *fusiondb.Session) error {
	count, err := db.FrameCount(session.ID)
	if err != nil {
		return err
	}
	if count < 2 {
		return fmt.Errorf("session %s has %d frames; need at least 2", session.ID, count)
	}

	log.Printf("replaying session %s (%d frames at %.1f fps)", session.ID, count, pipe.Params().FrameRate)

	for i := 1; i < count; i++ {
		prev, err := db.LoadFrame(session.ID, i-1)
		if err != nil {
			return err
		}
		curr, err := db.LoadFrame(session.ID, i)
		if err != nil {
			return err
		}
		matches, err := db.LoadMatches(session.ID, i)
		if err != nil {
			return err
		}

		_, results := pipe.ProcessFramePair(prev, curr, matches)
		for _, row := range results {
			fmt.Printf("pair %3d->%3d  box %d->%d  lidar TTC %-12s camera TTC %-12s closing %s\n",
				i-1, i, row.PrevBoxID, row.CurrBoxID,
				units.FormatTTC(row.LidarTTCSeconds),
				units.FormatTTC(row.CameraTTCSeconds),
				units.FormatSpeed(row.ClosingSpeedMps, *speedUnits))
		}
		if len(results) == 0 {
			fmt.Printf("pair %3d->%3d  no matched boxes\n", i-1, i)
		}
	}
	return nil
}
