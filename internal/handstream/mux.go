// Package handstream reads hand-tracking samples from a line-oriented
// source and fans them out to the session and to diagnostic subscribers.
package handstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"tailscale.com/tsweb"

	"github.com/banshee-data/cutplane/internal/gesture"
	"github.com/banshee-data/cutplane/internal/httputil"
	"github.com/banshee-data/cutplane/internal/monitoring"
)

// Stats counts what Monitor has seen.
type Stats struct {
	Lines     uint64 `json:"lines"`
	Samples   uint64 `json:"samples"`
	Malformed uint64 `json:"malformed"`
	Dropped   uint64 `json:"dropped"`
}

// Mux multiplexes one sample source to a backpressured sink and any number
// of best-effort subscribers.
type Mux[T Porter] struct {
	port T
	log  zerolog.Logger
	sink chan<- gesture.Sample

	subscribers  map[string]chan gesture.Sample
	subscriberMu sync.Mutex
	closing      bool
	closingMu    sync.Mutex

	lines, samples, malformed, dropped atomic.Uint64
}

var _ Source = (*Mux[Porter])(nil)

// NewMux creates a Mux over port.
func NewMux[T Porter](port T) *Mux[T] {
	return &Mux[T]{
		port:        port,
		log:         monitoring.Component("handstream"),
		subscribers: make(map[string]chan gesture.Sample),
	}
}

// SetSink registers the channel that receives every parsed sample.
func (m *Mux[T]) SetSink(ch chan<- gesture.Sample) {
	m.sink = ch
}

// Subscribe creates a best-effort sample channel. After Close the channel
// is returned already closed.
func (m *Mux[T]) Subscribe() (string, chan gesture.Sample) {
	id := uuid.NewString()
	ch := make(chan gesture.Sample, 16)
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	if m.isClosing() {
		close(ch)
		return id, ch
	}
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber.
func (m *Mux[T]) Unsubscribe(id string) {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// Stats returns a copy of the line counters.
func (m *Mux[T]) Stats() Stats {
	return Stats{
		Lines:     m.lines.Load(),
		Samples:   m.samples.Load(),
		Malformed: m.malformed.Load(),
		Dropped:   m.dropped.Load(),
	}
}

func (m *Mux[T]) isClosing() bool {
	m.closingMu.Lock()
	defer m.closingMu.Unlock()
	return m.closing
}

// Monitor reads the port line by line. Malformed and oversized lines are
// logged, counted and skipped. It returns nil when the source reaches EOF or
// the Mux is closed.
func (m *Mux[T]) Monitor(ctx context.Context) error {
	reader := NewLineReader(m.port, MaxLineBytes)

	lineChan := make(chan []byte)
	scanErrChan := make(chan error, 1)

	// The blocking read runs on its own goroutine so the loop below can
	// still observe cancellation.
	go func() {
		defer close(lineChan)
		for {
			line, err := reader.Next()
			if errors.Is(err, ErrLineTooLong) {
				m.lines.Add(1)
				m.malformed.Add(1)
				m.log.Warn().Int("max_bytes", MaxLineBytes).Msg("skipping oversized hand sample line")
				continue
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				select {
				case scanErrChan <- err:
				case <-ctx.Done():
				}
				return
			}
			select {
			case lineChan <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			if m.isClosing() {
				return nil
			}
			return fmt.Errorf("read hand stream: %w", err)

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					if !m.isClosing() {
						return fmt.Errorf("read hand stream: %w", err)
					}
				default:
				}
				m.log.Info().Uint64("samples", m.samples.Load()).Msg("hand stream ended")
				return nil
			}
			if m.isClosing() {
				return nil
			}
			if err := m.handleLine(ctx, line); err != nil {
				return err
			}
		}
	}
}

func (m *Mux[T]) handleLine(ctx context.Context, line []byte) error {
	if len(line) == 0 {
		return nil
	}
	m.lines.Add(1)

	sample, err := ParseSample(line)
	if err != nil {
		m.malformed.Add(1)
		m.log.Warn().Err(err).Bytes("line", truncate(line, 256)).Msg("skipping hand sample")
		return nil
	}
	m.samples.Add(1)

	if m.sink != nil {
		select {
		case m.sink <- sample:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- sample:
		default:
			m.dropped.Add(1)
		}
	}
	return nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

// Close closes every subscriber and the port. Monitor returns once it next
// wakes.
func (m *Mux[T]) Close() error {
	m.closingMu.Lock()
	if m.closing {
		m.closingMu.Unlock()
		return nil
	}
	m.closing = true
	m.closingMu.Unlock()

	m.subscriberMu.Lock()
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
	m.subscriberMu.Unlock()

	if err := m.port.Close(); err != nil {
		return fmt.Errorf("close hand stream: %w", err)
	}
	return nil
}

// AttachAdminRoutes mounts /debug/handstream-tail (SSE of parsed samples) and
// /debug/handstream-stats.
func (m *Mux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("handstream-stats", "hand sample stream counters", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSONOK(w, m.Stats())
	})

	debug.HandleSilentFunc("handstream-tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id, c := m.Subscribe()
		defer m.Unsubscribe(id)

		stream, err := httputil.StartEventStream(w)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}

		for {
			select {
			case sample, ok := <-c:
				if !ok {
					return
				}
				payload, err := FormatSample(sample)
				if err != nil {
					continue
				}
				if err := stream.Send(payload); err != nil {
					return
				}
			case <-r.Context().Done():
				return
			}
		}
	})
}
