package health

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ReadinessFunc reports whether the service can accept traffic.
type ReadinessFunc func() bool

// Handler serves the liveness and readiness probes.
type Handler struct {
	ready ReadinessFunc
}

// NewHandler creates a new Handler. ready is usually config.Config.Ready.
func NewHandler(ready ReadinessFunc) *Handler {
	return &Handler{
		ready: ready,
	}
}

// RegisterRoutes attaches the probe endpoints to the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health/live", h.handleLive)
	r.Get("/health/ready", h.handleReady)
}

// handleLive always succeeds while the process can serve HTTP.
func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleReady returns 503 until storage and the webhook secret are configured.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.ready == nil || !h.ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// writeJSON is a helper function for sending json responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}
