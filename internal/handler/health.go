// Package handler provides the HTTP and WebSocket handlers for the tracker.
package handler

import (
	"net/http"
	"time"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
)

// TrackerStatus is the part of the tracker the health endpoints report on.
type TrackerStatus interface {
	Stats() model.AggregateStats
	ObserverCount() int
}

// Dependency is an optional backend that must be up for /ready to pass.
type Dependency struct {
	Name    string
	Healthy func() bool
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	tracker TrackerStatus
	deps    []Dependency
	now     func() time.Time
}

// NewHealthHandler creates a health handler. tracker may be nil.
func NewHealthHandler(tracker TrackerStatus, deps ...Dependency) *HealthHandler {
	return &HealthHandler{tracker: tracker, deps: deps, now: time.Now}
}

type healthBody struct {
	Status              string `json:"status"`
	Timestamp           string `json:"timestamp"`
	Observers           *int   `json:"observers,omitempty"`
	ActiveConversations *int   `json:"activeConversations,omitempty"`
}

// Health handles GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := healthBody{
		Status:    "ok",
		Timestamp: h.now().UTC().Format(time.RFC3339),
	}
	if h.tracker != nil {
		body.Observers = model.Ptr(h.tracker.ObserverCount())
		body.ActiveConversations = model.Ptr(h.tracker.Stats().ActiveConversationCount)
	}
	writeJSON(w, http.StatusOK, body)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	var down []string
	for _, d := range h.deps {
		if !d.Healthy() {
			down = append(down, d.Name)
		}
	}
	if len(down) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"down":   down,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
