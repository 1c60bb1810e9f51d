// Package handlers provides HTTP handlers for sync and connectivity control.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/ledgersync/internal/modules/syncer"
)

// Connectivity is the monitor state the handlers read and push
type Connectivity interface {
	Online() bool
	Set(online bool)
}

// Handler handles sync HTTP requests
type Handler struct {
	engine  *syncer.Engine
	network Connectivity
	log     zerolog.Logger
}

// NewHandler creates a new sync handler
func NewHandler(engine *syncer.Engine, network Connectivity, log zerolog.Logger) *Handler {
	return &Handler{
		engine:  engine,
		network: network,
		log:     log.With().Str("handler", "sync").Logger(),
	}
}

// HandleSyncAll handles POST /api/sync.
// Runs a bulk cycle and returns its report; 409 when a cycle is already running.
func (h *Handler) HandleSyncAll(w http.ResponseWriter, r *http.Request) {
	report := h.engine.SyncAll(r.Context())

	status := http.StatusOK
	switch report.Skipped {
	case syncer.SkipBusy:
		status = http.StatusConflict
	case syncer.SkipOffline:
		status = http.StatusServiceUnavailable
	}

	h.log.Debug().Int("status", status).Str("skipped", string(report.Skipped)).Msg("Manual sync requested")

	h.writeJSON(w, status, map[string]interface{}{
		"data":     report,
		"metadata": metadata(),
	})
}

// HandleGetStatus handles GET /api/sync/status
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	policy := h.engine.RetryPolicy()

	delays := make([]int64, 0, policy.MaxAttempts)
	for _, d := range policy.Delays() {
		delays = append(delays, d.Milliseconds())
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"status": h.engine.Status(),
			"busy":   h.engine.Busy(),
			"online": h.network.Online(),
			"retry": map[string]interface{}{
				"max_attempts":  policy.MaxAttempts,
				"base_delay_ms": policy.BaseDelay.Milliseconds(),
				"delays_ms":     delays,
			},
		},
		"metadata": metadata(),
	})
}

// HandleGetConnectivity handles GET /api/connectivity
func (h *Handler) HandleGetConnectivity(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     map[string]interface{}{"online": h.network.Online()},
		"metadata": metadata(),
	})
}

// HandleSetConnectivity handles PUT /api/connectivity with body {"online": bool}.
// Going online starts a bulk sync through the connectivity subscription.
func (h *Handler) HandleSetConnectivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Online *bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Online == nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.network.Set(*req.Online)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     map[string]interface{}{"online": h.network.Online()},
		"metadata": metadata(),
	})
}

func metadata() map[string]interface{} {
	return map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
