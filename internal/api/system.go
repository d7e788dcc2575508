package api

import (
	"net/http"
	"time"
)

// handleSystemStatus reports daemon-level status.
func (s *Server) handleSystemStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		"devices":        len(s.manager.IDs()),
		"ws_clients":     s.hub.ClientCount(),
	})
}

// handleSystemSuspend quiesces every registered device, as ahead of a
// platform sleep. Per-device failures are logged and do not stop the
// sweep.
func (s *Server) handleSystemSuspend(w http.ResponseWriter, r *http.Request) {
	s.manager.SuspendAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "suspended",
		"devices": s.manager.List(),
	})
}

// handleSystemResume restores every registered device after a platform
// sleep. Devices whose resume failed are reported through their
// snapshot state.
func (s *Server) handleSystemResume(w http.ResponseWriter, r *http.Request) {
	s.manager.ResumeAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "resumed",
		"devices": s.manager.List(),
	})
}
