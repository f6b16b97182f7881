package api

import (
	"net/http"

	"github.com/banshee-data/cutplane/internal/geom"
	"github.com/banshee-data/cutplane/internal/httputil"
)

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	snap, err := s.session.Snapshot(r.Context())
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	httputil.WriteJSONOK(w, NewSnapshotJSON(snap))
}

// handleAddMarker places a marker directly, as a tap on a surface would.
func (s *Server) handleAddMarker(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req AddMarkerRequest
	if err := httputil.DecodeJSONBody(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	p, ok := geom.NewPoint(req.Position)
	if !ok || !geom.IsFinite(p) {
		httputil.BadRequest(w, "position must be three finite numbers")
		return
	}

	if err := s.session.AddMarker(r.Context(), p); err != nil {
		s.writeSessionError(w, err)
		return
	}
	snap, err := s.session.Snapshot(r.Context())
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, NewSnapshotJSON(snap))
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if err := s.session.Clear(r.Context()); err != nil {
		s.writeSessionError(w, err)
		return
	}
	snap, err := s.session.Snapshot(r.Context())
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	httputil.WriteJSONOK(w, NewSnapshotJSON(snap))
}

// handleUIInteraction records that the user touched a UI element, so the
// pinch that selected it does not also place a marker.
func (s *Server) handleUIInteraction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	now := s.clock.Now()
	s.session.NoteUIInteraction(now)
	httputil.WriteJSONOK(w, map[string]interface{}{"noted_at": now})
}

func (s *Server) handleLastDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	d, ok, err := s.session.LastDecision(r.Context())
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	if !ok {
		httputil.NotFound(w, "no pinch released yet")
		return
	}
	httputil.WriteJSONOK(w, NewDecisionJSON(d))
}

// handleStream sends the current snapshot, then one event per change.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	id, updates := s.session.Subscribe()
	defer s.session.Unsubscribe(id)

	snap, err := s.session.Snapshot(r.Context())
	if err != nil {
		s.writeSessionError(w, err)
		return
	}

	stream, err := httputil.StartEventStream(w)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if err := stream.SendJSON(NewSnapshotJSON(snap)); err != nil {
		return
	}
	sent := snap.Version

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if snap.Version <= sent {
				continue
			}
			if err := stream.SendJSON(NewSnapshotJSON(snap)); err != nil {
				return
			}
			sent = snap.Version
		case <-r.Context().Done():
			return
		}
	}
}
