// Command pinch-replay runs a recorded hand stream through the pinch
// detector and marker store offline, printing every decision and the final
// marker snapshot as JSON lines. It is used to tune thresholds against real
// recordings without a headset.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"github.com/banshee-data/cutplane/internal/api"
	"github.com/banshee-data/cutplane/internal/config"
	"github.com/banshee-data/cutplane/internal/db"
	"github.com/banshee-data/cutplane/internal/gesture"
	"github.com/banshee-data/cutplane/internal/handstream"
	"github.com/banshee-data/cutplane/internal/markers"
	"github.com/banshee-data/cutplane/internal/plotting"
	"github.com/banshee-data/cutplane/internal/security"
)

func main() {
	in := flag.String("in", "", "JSON-lines hand stream to replay")
	dbPath := flag.String("db", "", "SQLite database holding recordings")
	recordingID := flag.String("recording", "", "Recording ID to replay (requires -db)")
	configPath := flag.String("config", "", "Tuning config file (.json or .yaml)")
	plotPath := flag.String("plot", "", "Write a pinch timeline PNG to this path")
	flag.Parse()

	tuning := config.DefaultTuningConfig()
	if *configPath != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(*configPath); err != nil {
			log.Fatalf("load config: %v", err)
		}
	}

	samples, uiEvents, err := loadSamples(*in, *dbPath, *recordingID)
	if err != nil {
		log.Fatalf("load samples: %v", err)
	}
	log.Printf("replaying %d samples, %d UI interactions", len(samples), len(uiEvents))

	out := json.NewEncoder(os.Stdout)
	decisions, snap := replay(samples, uiEvents, tuning, func(d gesture.Decision) {
		if err := out.Encode(api.NewDecisionJSON(d)); err != nil {
			log.Fatalf("write decision: %v", err)
		}
	})
	if err := out.Encode(api.NewSnapshotJSON(snap)); err != nil {
		log.Fatalf("write snapshot: %v", err)
	}

	accepted := 0
	for _, d := range decisions {
		if d.Accepted {
			accepted++
		}
	}
	log.Printf("%d decisions, %d accepted, %d markers", len(decisions), accepted, len(snap.Markers))

	if *plotPath != "" {
		if err := security.ValidateOutputPath(*plotPath); err != nil {
			log.Fatalf("invalid -plot path: %v", err)
		}
		if err := plotting.PinchTimeline(samples, decisions, tuning.GetPinchThreshold(), *plotPath); err != nil {
			log.Fatalf("plot: %v", err)
		}
		log.Printf("✓ Created: %s", *plotPath)
	}
}

// replay feeds samples in order through a fresh detector and store. The
// detector runs on sample timestamps, so the result does not depend on how
// fast the replay runs. UI interactions, recorded in sample time, are
// applied before the first sample at or after them.
func replay(samples []gesture.Sample, uiEvents []time.Time, tuning *config.TuningConfig, onDecision func(gesture.Decision)) ([]gesture.Decision, markers.Snapshot) {
	ctx := context.Background()
	detector := gesture.NewDetector(gesture.ConfigFromTuning(tuning), nil)
	store := markers.NewStore(markers.OptionsFromTuning(tuning))

	ui := append([]time.Time(nil), uiEvents...)
	sort.Slice(ui, func(i, j int) bool { return ui[i].Before(ui[j]) })

	var decisions []gesture.Decision
	for _, s := range samples {
		for len(ui) > 0 && !ui[0].After(s.Timestamp) {
			detector.NoteUIInteraction(ui[0])
			ui = ui[1:]
		}
		d, ok := detector.Process(ctx, s)
		if !ok {
			continue
		}
		decisions = append(decisions, d)
		if onDecision != nil {
			onDecision(d)
		}
		if d.Accepted {
			store.Add(d.Request.Position)
		}
	}
	return decisions, store.Snapshot()
}

// loadSamples returns the samples to replay and, for a DB recording, its UI
// interactions. A JSON-lines file carries no UI interactions.
func loadSamples(in, dbPath, recordingID string) ([]gesture.Sample, []time.Time, error) {
	switch {
	case in != "" && recordingID != "":
		return nil, nil, errors.New("-in and -recording are mutually exclusive")
	case in != "":
		f, err := os.Open(in)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		samples, err := readSamples(f)
		return samples, nil, err
	case recordingID != "":
		if dbPath == "" {
			return nil, nil, errors.New("-recording requires -db")
		}
		database, err := db.Open(dbPath)
		if err != nil {
			return nil, nil, err
		}
		defer database.Close()
		return loadRecording(database, recordingID)
	default:
		return nil, nil, errors.New("one of -in or -recording is required")
	}
}

func loadRecording(database *db.DB, recordingID string) ([]gesture.Sample, []time.Time, error) {
	if _, err := database.Recording(recordingID); err != nil {
		return nil, nil, err
	}
	samples, err := database.Samples(recordingID)
	if err != nil {
		return nil, nil, err
	}
	ui, err := database.UIInteractions(recordingID)
	if err != nil {
		return nil, nil, err
	}
	return samples, ui, nil
}

// readSamples parses a JSON-lines stream, skipping malformed and oversized
// lines the same way the live mux does.
func readSamples(r io.Reader) ([]gesture.Sample, error) {
	var samples []gesture.Sample
	reader := handstream.NewLineReader(r, handstream.MaxLineBytes)
	for lineNo := 1; ; lineNo++ {
		line, err := reader.Next()
		switch {
		case errors.Is(err, io.EOF):
			return samples, nil
		case errors.Is(err, handstream.ErrLineTooLong):
			log.Printf("line %d: %v", lineNo, err)
			continue
		case err != nil:
			return nil, fmt.Errorf("read line %d: %w", lineNo, err)
		}
		if len(line) == 0 {
			continue
		}
		s, err := handstream.ParseSample(line)
		if err != nil {
			log.Printf("line %d: %v", lineNo, err)
			continue
		}
		samples = append(samples, s)
	}
}
