// Command cutplane runs the cutting-plane service: it reads hand-tracking
// samples, detects pinches, keeps the three most recent markers and their
// cutting plane, and serves them to the scene host over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/cutplane/internal/api"
	"github.com/banshee-data/cutplane/internal/config"
	"github.com/banshee-data/cutplane/internal/db"
	"github.com/banshee-data/cutplane/internal/gesture"
	"github.com/banshee-data/cutplane/internal/handstream"
	"github.com/banshee-data/cutplane/internal/markers"
	"github.com/banshee-data/cutplane/internal/monitoring"
	"github.com/banshee-data/cutplane/internal/session"
	"github.com/banshee-data/cutplane/internal/timeutil"
	"github.com/banshee-data/cutplane/internal/version"
)

var (
	configPath = flag.String("config", "", "Tuning config file (.json or .yaml); defaults are used when empty")
	listen     = flag.String("listen", ":8080", "Listen address")
	port       = flag.String("port", "", "Serial device of the hand-tracking bridge")
	baud       = flag.Int("baud", handstream.DefaultBaudRate, "Serial baud rate")
	replay     = flag.String("replay", "", "Replay a recorded JSON-lines hand stream instead of a device")
	dbPath     = flag.String("db", "", "SQLite file for diagnostic recordings (disabled when empty)")
	record     = flag.String("record", "", "Record samples and decisions under this label (requires -db)")
	logLevel   = flag.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	console    = flag.Bool("console", false, "Human-readable console logs instead of JSON")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("cutplane %s (%s)\n", version.Version, version.GitSHA)
		return
	}

	log := monitoring.Configure(os.Stderr, *logLevel, *console)

	if flag.NArg() > 0 {
		switch flag.Arg(0) {
		case "migrate":
			if err := db.RunMigrateCommand(flag.Args()[1:], *dbPath, os.Stdout); err != nil {
				log.Fatal().Err(err).Msg("migrate failed")
			}
			return
		default:
			log.Fatal().Str("command", flag.Arg(0)).Msg("unknown subcommand")
		}
	}

	if *listen == "" {
		log.Fatal().Msg("listen address is required")
	}
	if *port != "" && *replay != "" {
		log.Fatal().Msg("-port and -replay are mutually exclusive")
	}
	if *record != "" && *dbPath == "" {
		log.Fatal().Msg("-record requires -db")
	}

	tuning := config.DefaultTuningConfig()
	if *configPath != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(*configPath); err != nil {
			log.Fatal().Err(err).Msg("failed to load tuning config")
		}
	}

	source, err := openSource()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open hand stream")
	}
	defer source.Close()

	var opts []session.Option
	var database *db.DB
	if *dbPath != "" {
		database, err = db.Open(*dbPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open database")
		}
		defer database.Close()

		if *record != "" {
			rec, err := database.NewRecorder(*record)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to start recording")
			}
			monitoring.Logf("recording %q as %s", *record, rec.ID())
			opts = append(opts, session.WithRecorder(rec))
		}
	}

	clock := timeutil.RealClock{}
	detector := gesture.NewDetector(gesture.ConfigFromTuning(tuning), clock)
	store := markers.NewStore(markers.OptionsFromTuning(tuning))
	opts = append(opts, session.WithClock(clock))
	sess := session.New(store, detector, opts...)

	samples := make(chan gesture.Sample, 64)
	source.SetSink(samples)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sess.Run(ctx, samples); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("session stopped")
		}
	}()

	// Monitor returns at the end of a replay file; the service keeps serving
	// the resulting markers until it is stopped.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := source.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("hand stream monitor failed")
		}
		monitoring.Logf("monitor routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runFrameTicker(ctx, sess, clock, tuning.GetFrameInterval())
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		source.AttachAdminRoutes(mux)
		if database != nil {
			if err := database.AttachAdminRoutes(mux); err != nil {
				log.Error().Err(err).Msg("failed to attach database admin routes")
			}
		}
		apiServer := api.NewServer(sess, clock)
		mux.Handle("/api/", apiServer.ServeMux())

		server := &http.Server{
			Addr:              *listen,
			Handler:           api.LoggingMiddleware(mux, *console),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			monitoring.Logf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("HTTP server failed")
				stop()
			}
		}()

		<-ctx.Done()
		monitoring.Logf("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("HTTP server shutdown error")
		}
	}()

	wg.Wait()
	monitoring.Logf("graceful shutdown complete")
}

// openSource picks the sample source from the flags: a serial device, a
// replay file, or none.
func openSource() (handstream.Source, error) {
	switch {
	case *port != "":
		return handstream.NewRealMux(*port, handstream.PortOptions{BaudRate: *baud})
	case *replay != "":
		return handstream.OpenReplayFile(*replay)
	default:
		monitoring.Logf("no hand stream configured; markers arrive through the API only")
		return handstream.NewDisabledMux(), nil
	}
}

// runFrameTicker advances the marker animation once per frame.
func runFrameTicker(ctx context.Context, sess *session.Session, clock timeutil.Clock, interval time.Duration) {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	last := clock.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C():
			if err := sess.Tick(ctx, now.Sub(last)); err != nil {
				return
			}
			last = now
		}
	}
}
