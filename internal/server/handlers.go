package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/ledgersync/internal/version"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := map[string]interface{}{
		"status":  "healthy",
		"version": version.Version,
		"service": "ledgersync",
		"online":  s.cfg.Monitor.Online(),
	}

	if err := s.cfg.DB.HealthCheck(ctx); err != nil {
		s.log.Error().Err(err).Msg("Health check failed")
		response["status"] = "unhealthy"
		response["error"] = err.Error()
		s.writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := writeJSONBody(w, data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func metadata() map[string]interface{} {
	return map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
	}
}

func writeJSONBody(w http.ResponseWriter, data interface{}) error {
	return json.NewEncoder(w).Encode(data)
}
