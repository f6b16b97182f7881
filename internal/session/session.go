// Package session runs the single-owner loop that serialises hand samples,
// marker commands and snapshot reads against one marker store and one pinch
// detector.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/banshee-data/cutplane/internal/geom"
	"github.com/banshee-data/cutplane/internal/gesture"
	"github.com/banshee-data/cutplane/internal/markers"
	"github.com/banshee-data/cutplane/internal/monitoring"
	"github.com/banshee-data/cutplane/internal/timeutil"
)

var (
	// ErrSessionClosed is returned by commands issued after Run has returned.
	ErrSessionClosed = errors.New("session closed")
	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("session already running")
)

// subscriberBuffer is the number of snapshots a slow subscriber may lag by
// before updates to it are dropped.
const subscriberBuffer = 8

// Recorder receives every processed sample, every release decision and
// every UI interaction in sample time. Errors are logged and never
// interrupt the loop. RecordUIInteraction may be called from any goroutine.
type Recorder interface {
	RecordSample(s gesture.Sample) error
	RecordDecision(d gesture.Decision) error
	RecordUIInteraction(t time.Time) error
}

// Option configures a Session.
type Option func(*Session)

// WithRecorder attaches a diagnostics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithClock sets the clock used to map UI interactions onto sample time.
// It should be the clock the caller stamps UI interactions with.
func WithClock(c timeutil.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// Session owns a marker store and a pinch detector. All access to the store
// happens on the goroutine running Run.
type Session struct {
	store    *markers.Store
	detector *gesture.Detector
	recorder Recorder
	clock    timeutil.Clock
	log      zerolog.Logger

	// Samples carry their own timestamps, which need not share a time base
	// with the clock. anchor pairs the last sample time with the clock
	// reading at which it was processed.
	anchorMu   sync.Mutex
	anchored   bool
	anchorAt   time.Time // sample time
	anchorWall time.Time // clock time
	pendingUI  time.Time // clock time of a UI interaction seen before any sample

	cmds    chan func()
	done    chan struct{}
	running atomic.Bool

	subMu       sync.Mutex
	subscribers map[string]chan markers.Snapshot
	closed      bool
}

// New creates a session. Call Run to start processing.
func New(store *markers.Store, detector *gesture.Detector, opts ...Option) *Session {
	s := &Session{
		store:       store,
		detector:    detector,
		clock:       timeutil.RealClock{},
		log:         monitoring.Component("session"),
		cmds:        make(chan func()),
		done:        make(chan struct{}),
		subscribers: make(map[string]chan markers.Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes samples and commands until ctx is done or samples is closed.
// A nil samples channel means commands only. Any pinch in progress when Run
// returns is discarded, and all subscriber channels are closed.
func (s *Session) Run(ctx context.Context, samples <-chan gesture.Sample) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.shutdown()

	s.log.Info().Msg("session started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Err(ctx.Err()).Msg("session stopped")
			return ctx.Err()
		case sample, ok := <-samples:
			if !ok {
				s.log.Info().Msg("sample stream ended")
				return nil
			}
			s.handleSample(ctx, sample)
		case cmd := <-s.cmds:
			cmd()
		}
	}
}

func (s *Session) shutdown() {
	s.detector.Reset()
	close(s.done)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.closed = true
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
}

func (s *Session) handleSample(ctx context.Context, sample gesture.Sample) {
	s.advanceAnchor(sample)

	if s.recorder != nil {
		if err := s.recorder.RecordSample(sample); err != nil {
			s.log.Warn().Err(err).Msg("failed to record sample")
		}
	}

	decision, ok := s.detector.Process(ctx, sample)
	if !ok {
		return
	}

	if s.recorder != nil {
		if err := s.recorder.RecordDecision(decision); err != nil {
			s.log.Warn().Err(err).Msg("failed to record decision")
		}
	}

	if decision.Accepted {
		s.store.Add(decision.Request.Position)
		s.publish()
	}
}

// do runs fn on the loop goroutine and waits for it to finish.
func (s *Session) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		fn()
		close(finished)
	}

	select {
	case s.cmds <- wrapped:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return fmt.Errorf("session command: %w", ctx.Err())
	}
	<-finished
	return nil
}

// AddMarker places a marker directly, bypassing gesture detection.
func (s *Session) AddMarker(ctx context.Context, p geom.Point) error {
	return s.do(ctx, func() {
		s.store.Add(p)
		s.publish()
	})
}

// Clear removes all markers and the plane.
func (s *Session) Clear(ctx context.Context) error {
	return s.do(ctx, func() {
		s.store.Clear()
		s.publish()
	})
}

// Snapshot returns a consistent copy of markers and plane.
func (s *Session) Snapshot(ctx context.Context) (markers.Snapshot, error) {
	var snap markers.Snapshot
	err := s.do(ctx, func() { snap = s.store.Snapshot() })
	return snap, err
}

// Tick advances the marker pulse animation by dt.
func (s *Session) Tick(ctx context.Context, dt time.Duration) error {
	return s.do(ctx, func() { s.store.Advance(dt) })
}

// NoteUIInteraction records that the user touched a UI element at clock
// time t. The time is shifted into the sample time base before it reaches
// the detector: the last sample time plus the clock time elapsed since that
// sample was processed. Before the first sample the interaction is held and
// applied against it. It does not wait for the loop.
func (s *Session) NoteUIInteraction(t time.Time) {
	s.anchorMu.Lock()
	defer s.anchorMu.Unlock()
	if !s.anchored {
		if t.After(s.pendingUI) {
			s.pendingUI = t
		}
		return
	}
	s.noteUILocked(s.anchorAt.Add(t.Sub(s.anchorWall)))
}

// advanceAnchor moves the time anchor to sample and releases any UI
// interaction that arrived before the first sample.
func (s *Session) advanceAnchor(sample gesture.Sample) {
	wall := s.clock.Now()
	at := sample.Timestamp
	if at.IsZero() {
		at = wall
	}

	s.anchorMu.Lock()
	defer s.anchorMu.Unlock()
	s.anchored, s.anchorAt, s.anchorWall = true, at, wall
	if !s.pendingUI.IsZero() {
		s.noteUILocked(at.Add(s.pendingUI.Sub(wall)))
		s.pendingUI = time.Time{}
	}
}

func (s *Session) noteUILocked(at time.Time) {
	s.detector.NoteUIInteraction(at)
	if s.recorder != nil {
		if err := s.recorder.RecordUIInteraction(at); err != nil {
			s.log.Warn().Err(err).Msg("failed to record UI interaction")
		}
	}
}

// LastDecision returns the most recent release decision.
func (s *Session) LastDecision(ctx context.Context) (gesture.Decision, bool, error) {
	var (
		d  gesture.Decision
		ok bool
	)
	err := s.do(ctx, func() { d, ok = s.detector.LastDecision() })
	return d, ok, err
}

// Subscribe returns a channel that receives a snapshot after every marker
// change. The channel is closed on Unsubscribe or when the session stops.
func (s *Session) Subscribe() (string, <-chan markers.Snapshot) {
	id := uuid.NewString()
	ch := make(chan markers.Snapshot, subscriberBuffer)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.closed {
		close(ch)
		return id, ch
	}
	s.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Session) Unsubscribe(id string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

func (s *Session) publish() {
	snap := s.store.Snapshot()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			s.log.Debug().Str("subscriber", id).Uint64("version", snap.Version).Msg("subscriber lagging, snapshot dropped")
		}
	}
}
