// Package api serves the scene-host HTTP surface: marker and plane
// snapshots, marker commands, UI-interaction notes, a snapshot event stream
// and debug charts.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/banshee-data/cutplane/internal/geom"
	"github.com/banshee-data/cutplane/internal/gesture"
	"github.com/banshee-data/cutplane/internal/httputil"
	"github.com/banshee-data/cutplane/internal/markers"
	"github.com/banshee-data/cutplane/internal/monitoring"
	"github.com/banshee-data/cutplane/internal/session"
	"github.com/banshee-data/cutplane/internal/timeutil"
)

// ANSI escape codes for request logging in console mode.
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// Session is the subset of *session.Session the API drives.
type Session interface {
	AddMarker(ctx context.Context, p geom.Point) error
	Clear(ctx context.Context) error
	Snapshot(ctx context.Context) (markers.Snapshot, error)
	LastDecision(ctx context.Context) (gesture.Decision, bool, error)
	NoteUIInteraction(t time.Time)
	Subscribe() (string, <-chan markers.Snapshot)
	Unsubscribe(id string)
}

var _ Session = (*session.Session)(nil)

type Server struct {
	session Session
	clock   timeutil.Clock
	log     zerolog.Logger
}

// NewServer returns a Server over sess. A nil clock uses the wall clock.
func NewServer(sess Session, clock timeutil.Clock) *Server {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Server{
		session: sess,
		clock:   clock,
		log:     monitoring.Component("api"),
	}
}

// ServeMux returns the routes of the scene-host API.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/markers", s.handleAddMarker)
	mux.HandleFunc("/api/markers/clear", s.handleClear)
	mux.HandleFunc("/api/ui-interaction", s.handleUIInteraction)
	mux.HandleFunc("/api/decisions/last", s.handleLastDecision)
	mux.HandleFunc("/api/stream", s.handleStream)
	mux.HandleFunc("/api/charts/markers", s.handleMarkersChart)
	return mux
}

// writeSessionError maps session errors onto HTTP statuses.
func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		httputil.ServiceUnavailable(w, err.Error())
	default:
		s.log.Error().Err(err).Msg("session command failed")
		httputil.InternalServerError(w, err.Error())
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status and duration. With color set
// the status and path are highlighted for console output.
func LoggingMiddleware(next http.Handler, color bool) http.Handler {
	log := monitoring.Component("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)

		status, uri := strconv.Itoa(lrw.statusCode), r.RequestURI
		if color {
			status, uri = statusCodeColor(lrw.statusCode), colorCyan+r.RequestURI+colorReset
		}
		log.Info().
			Str("status", status).
			Str("method", r.Method).
			Str("uri", uri).
			Float64("ms", float64(time.Since(start).Nanoseconds())/1e6).
			Msg("request")
	})
}
