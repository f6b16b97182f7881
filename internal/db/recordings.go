package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/cutplane/internal/geom"
	"github.com/banshee-data/cutplane/internal/gesture"
	"github.com/banshee-data/cutplane/internal/handstream"
)

// Recording is one diagnostic capture session.
type Recording struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	StartedAt time.Time `json:"started_at"`
	Samples   int       `json:"samples"`
	Decisions int       `json:"decisions"`
	// UIInteractions counts UI touches, stored in sample time so a replay
	// can apply the same debounce.
	UIInteractions int `json:"ui_interactions"`
}

// StartRecording creates a new, empty recording.
func (db *DB) StartRecording(label string) (Recording, error) {
	rec := Recording{
		ID:        uuid.NewString(),
		Label:     label,
		StartedAt: time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO recordings (recording_id, label, started_unix_ns) VALUES (?, ?, ?)`,
		rec.ID, rec.Label, rec.StartedAt.UnixNano(),
	)
	if err != nil {
		return Recording{}, fmt.Errorf("start recording: %w", err)
	}
	return rec, nil
}

// RecordSample appends a raw hand sample, stored in its wire form.
func (db *DB) RecordSample(recordingID string, s gesture.Sample) error {
	payload, err := handstream.FormatSample(s)
	if err != nil {
		return fmt.Errorf("encode sample: %w", err)
	}
	_, err = db.Exec(
		`INSERT INTO hand_samples (recording_id, ts_unix_ns, hand, payload) VALUES (?, ?, ?, ?)`,
		recordingID, unixNanos(s.Timestamp), string(s.Hand), string(payload),
	)
	if err != nil {
		return fmt.Errorf("record sample: %w", err)
	}
	return nil
}

// RecordDecision appends a pinch release decision.
func (db *DB) RecordDecision(recordingID string, d gesture.Decision) error {
	var x, y, z sql.NullFloat64
	if d.Accepted {
		p := d.Request.Position
		x = sql.NullFloat64{Float64: p.X, Valid: true}
		y = sql.NullFloat64{Float64: p.Y, Valid: true}
		z = sql.NullFloat64{Float64: p.Z, Valid: true}
	}
	_, err := db.Exec(
		`INSERT INTO gesture_decisions
			(recording_id, at_unix_ns, accepted, reason, hold_ns, since_ui_ns, pos_x, pos_y, pos_z)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		recordingID, unixNanos(d.At), d.Accepted, string(d.Reason),
		int64(d.Hold), int64(d.SinceUI), x, y, z,
	)
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}

// RecordUIInteraction appends a UI interaction at t, in sample time.
func (db *DB) RecordUIInteraction(recordingID string, t time.Time) error {
	_, err := db.Exec(
		`INSERT INTO ui_interactions (recording_id, at_unix_ns) VALUES (?, ?)`,
		recordingID, unixNanos(t),
	)
	if err != nil {
		return fmt.Errorf("record UI interaction: %w", err)
	}
	return nil
}

// UIInteractions returns a recording's UI interactions in time order.
func (db *DB) UIInteractions(recordingID string) ([]time.Time, error) {
	rows, err := db.Query(
		`SELECT at_unix_ns FROM ui_interactions WHERE recording_id = ? ORDER BY at_unix_ns, interaction_id`,
		recordingID,
	)
	if err != nil {
		return nil, fmt.Errorf("query UI interactions: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var ns int64
		if err := rows.Scan(&ns); err != nil {
			return nil, err
		}
		out = append(out, fromUnixNanos(ns))
	}
	return out, rows.Err()
}

// Recording returns one recording with its row counts.
func (db *DB) Recording(id string) (Recording, error) {
	row := db.QueryRow(recordingSelect+` WHERE r.recording_id = ?`, id)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Recording{}, fmt.Errorf("recording %s: %w", id, ErrNotFound)
	}
	return rec, err
}

// Recordings lists all recordings, newest first.
func (db *DB) Recordings() ([]Recording, error) {
	rows, err := db.Query(recordingSelect + ` ORDER BY r.started_unix_ns DESC`)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var out []Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteRecording removes a recording and everything captured in it.
func (db *DB) DeleteRecording(id string) error {
	res, err := db.Exec(`DELETE FROM recordings WHERE recording_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recording: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("recording %s: %w", id, ErrNotFound)
	}
	return nil
}

const recordingSelect = `
	SELECT r.recording_id, r.label, r.started_unix_ns,
		(SELECT COUNT(*) FROM hand_samples s WHERE s.recording_id = r.recording_id),
		(SELECT COUNT(*) FROM gesture_decisions d WHERE d.recording_id = r.recording_id),
		(SELECT COUNT(*) FROM ui_interactions u WHERE u.recording_id = r.recording_id)
	FROM recordings r`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecording(row scanner) (Recording, error) {
	var (
		rec     Recording
		started int64
	)
	if err := row.Scan(&rec.ID, &rec.Label, &started, &rec.Samples, &rec.Decisions, &rec.UIInteractions); err != nil {
		return Recording{}, err
	}
	rec.StartedAt = time.Unix(0, started).UTC()
	return rec, nil
}

// Samples returns the samples of a recording in capture order.
func (db *DB) Samples(recordingID string) ([]gesture.Sample, error) {
	rows, err := db.Query(
		`SELECT payload FROM hand_samples WHERE recording_id = ? ORDER BY sample_id`,
		recordingID,
	)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []gesture.Sample
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		s, err := handstream.ParseSample([]byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Decisions returns the decisions of a recording in capture order.
func (db *DB) Decisions(recordingID string) ([]gesture.Decision, error) {
	rows, err := db.Query(
		`SELECT at_unix_ns, accepted, reason, hold_ns, since_ui_ns, pos_x, pos_y, pos_z
		 FROM gesture_decisions WHERE recording_id = ? ORDER BY decision_id`,
		recordingID,
	)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []gesture.Decision
	for rows.Next() {
		var (
			at, hold, sinceUI int64
			reason            string
			x, y, z           sql.NullFloat64
			d                 gesture.Decision
		)
		if err := rows.Scan(&at, &d.Accepted, &reason, &hold, &sinceUI, &x, &y, &z); err != nil {
			return nil, err
		}
		d.At = fromUnixNanos(at)
		d.Reason = gesture.RejectReason(reason)
		d.Hold = time.Duration(hold)
		d.SinceUI = time.Duration(sinceUI)
		if d.Accepted && x.Valid && y.Valid && z.Valid {
			d.Request = gesture.MarkerPlacementRequested{
				Position: geom.Point{X: x.Float64, Y: y.Float64, Z: z.Float64},
				At:       d.At,
				Hold:     d.Hold,
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func unixNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNanos(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

// Recorder writes one recording's samples, decisions and UI interactions. It satisfies the
// session's recorder hook.
type Recorder struct {
	db        *DB
	recording Recording
}

// NewRecorder starts a recording and returns a Recorder bound to it.
func (db *DB) NewRecorder(label string) (*Recorder, error) {
	rec, err := db.StartRecording(label)
	if err != nil {
		return nil, err
	}
	return &Recorder{db: db, recording: rec}, nil
}

// ID returns the recording id.
func (r *Recorder) ID() string { return r.recording.ID }

func (r *Recorder) RecordSample(s gesture.Sample) error {
	return r.db.RecordSample(r.recording.ID, s)
}

func (r *Recorder) RecordDecision(d gesture.Decision) error {
	return r.db.RecordDecision(r.recording.ID, d)
}

func (r *Recorder) RecordUIInteraction(t time.Time) error {
	return r.db.RecordUIInteraction(r.recording.ID, t)
}
