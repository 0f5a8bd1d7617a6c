package api

import (
	"net/http"
	"strconv"
)

// handleDiagnostics returns retained echo lines, or only those after
// ?since=<seq> when given.
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	lines := s.echo.Lines()
	if raw := r.URL.Query().Get("since"); raw != "" {
		seq, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeBadRequest(w, "since must be a sequence number")
			return
		}
		lines = s.echo.Since(seq)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"lines": lines,
		"count": len(lines),
	})
}
