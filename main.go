// collision.report fuses lidar point clouds and camera keypoint tracks to
// estimate time-to-collision per detected object across consecutive frame
// pairs. This binary serves the fusion pipeline over HTTP; cmd/ttc replays
// recorded capture sessions offline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/collision.report/internal/config"
	"github.com/banshee-data/collision.report/internal/fusion"
	"github.com/banshee-data/collision.report/internal/fusiondb"
	"github.com/banshee-data/collision.report/internal/version"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	dbFile     = flag.String("db", "", "Optional capture database path (enables /api/sessions)")
	calibFile  = flag.String("calib", "config/calibration.sample.json", "Path to the calibration JSON file")
	configFile = flag.String("config", "", "Optional fusion tuning config JSON")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println("collision.report", version.String())
		os.Exit(0)
	}

	cfg := config.EmptyFusionConfig()
	if *configFile != "" {
		var err error
		cfg, err = config.LoadFusionConfig(*configFile)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	calib, err := fusion.LoadCalibration(*calibFile)
	if err != nil {
		log.Fatalf("failed to load calibration: %v", err)
	}

	var db *fusiondb.CaptureDB
	if *dbFile != "" {
		db, err = fusiondb.Open(*dbFile)
		if err != nil {
			log.Fatalf("failed to open capture database: %v", err)
		}
		defer db.Close()
	}

	server := NewServer(cfg, calib, db)
	httpServer := &http.Server{
		Addr:    *listen,
		Handler: server.ServeMux(),
	}

	go func() {
		log.Printf("collision.report %s listening on %s", version.String(), *listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
