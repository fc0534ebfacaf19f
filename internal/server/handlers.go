package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/herald/internal/models"
	"github.com/woozymasta/herald/internal/vars"
)

// maxEventValue bounds hostnames and map names accepted from the API.
const maxEventValue = 256

// handleEvent forwards a host event posted by a game side plugin to the reporter.
// Body: {"type":"hostname"|"map","value":"..."}
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	var req models.EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debug().Err(err).Str("ip", GetRealIP(r, s.trustProxy)).Msg("Invalid JSON")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	value := strings.TrimSpace(req.Value)
	if value == "" || len(value) > maxEventValue {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid value"})
		return
	}

	switch req.Type {
	case models.EventHostName:
		s.reporter.OnHostNameChanged(value)
	case models.EventMap:
		s.reporter.OnMapStart(value)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown event type"})
		return
	}

	log.Info().
		Str("type", req.Type).
		Str("value", value).
		Msg("Host event received")

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleStatus returns the reporter state and the last observed server status.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.reporter.Status())
}

// handleVersion returns build information.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, vars.Info())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
