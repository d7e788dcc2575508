package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// powerRequest is the request body for POST /devices/{id}/power.
type powerRequest struct {
	On bool `json:"on"`
}

// streamRequest is the request body for POST /devices/{id}/stream.
type streamRequest struct {
	On bool `json:"on"`
}

// modeRequest is the request body for PUT /devices/{id}/mode. The
// device snaps the request to its nearest catalog mode; the response
// reports what was actually selected.
type modeRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// controlRequest is the request body for PUT /devices/{id}/controls/{name}.
type controlRequest struct {
	Value int `json:"value"`
}

// handleListDevices returns snapshots of all registered devices.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": s.manager.List(),
	})
}

// handleGetDevice returns a snapshot of one device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap, err := s.manager.Snapshot(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handlePower powers a device on or off.
func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req powerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var err error
	if req.On {
		err = s.manager.PowerOn(r.Context(), id)
	} else {
		err = s.manager.PowerOff(r.Context(), id)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.writeSnapshot(w, id)
}

// handleStream starts or stops a device's pixel stream.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var err error
	if req.On {
		err = s.manager.StreamStart(r.Context(), id)
	} else {
		err = s.manager.StreamStop(r.Context(), id)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.writeSnapshot(w, id)
}

// handleSetMode selects the device mode nearest the requested geometry.
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		writeBadRequest(w, "width and height must be positive")
		return
	}

	mode, err := s.manager.SetMode(r.Context(), id, req.Width, req.Height)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":   mode.Name,
		"width":  mode.Width,
		"height": mode.Height,
	})
}

// handleProbe asks the device to verify its chip identity.
func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.manager.Probe(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

// handleSuspend quiesces a device.
func (s *Server) handleSuspend(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.manager.Suspend(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeSnapshot(w, id)
}

// handleResume restores a suspended device.
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.manager.Resume(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeSnapshot(w, id)
}

// handleListControls returns all control values for a device.
func (s *Server) handleListControls(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	controls, err := s.manager.Controls(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"controls": controls,
	})
}

// handleGetControl returns one control value.
func (s *Server) handleGetControl(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")

	value, err := s.manager.GetControl(r.Context(), id, name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":  name,
		"value": value,
	})
}

// handleSetControl updates one control value.
func (s *Server) handleSetControl(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.manager.SetControl(r.Context(), id, name, req.Value); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":  name,
		"value": req.Value,
	})
}

// handleHistory returns recent state transitions for a device, newest
// first. The limit query parameter is optional.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	history, err := s.manager.History(r.Context(), id, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"history": history,
	})
}

// writeSnapshot responds with the device's current snapshot.
func (s *Server) writeSnapshot(w http.ResponseWriter, id string) {
	snap, err := s.manager.Snapshot(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
