package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Billy-Davies-2/championship-draft/internal/dal"
	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

// Liveness handles Kubernetes liveness checks
// Returns 200 if the application is running (doesn't check dependencies)
func (h *API) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().Unix(),
	})
}

// Readiness handles Kubernetes readiness checks. The document store is
// the only dependency the draft cannot work without.
func (h *API) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "not_ready",
			"reason":    "database_unavailable",
			"timestamp": time.Now().Unix(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().Unix(),
	})
}

type storageStatus struct {
	Backend string `json:"backend"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// StatusReport summarizes every match and tournament
type StatusReport struct {
	Phases        map[models.Phase]int            `json:"phases"`
	Tournaments   map[models.TournamentStatus]int `json:"tournaments"`
	PendingTimers int                             `json:"pendingTimers"`
	Storage       storageStatus                   `json:"storage"`
	Timestamp     int64                           `json:"timestamp"`
}

// Status reports match phases, tournament states and storage health
func (h *API) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report := StatusReport{
		Tournaments: map[models.TournamentStatus]int{
			models.StatusScheduled: 0,
			models.StatusLive:      0,
			models.StatusCompleted: 0,
		},
		PendingTimers: h.coord.PendingTimers(),
		Storage:       storageStatus{Backend: dal.BackendName(h.store), Status: "healthy"},
		Timestamp:     time.Now().Unix(),
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.store.Ping(pingCtx); err != nil {
		report.Storage.Status = "unhealthy"
		report.Storage.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, report)
		return
	}

	phases, err := h.reader.PhaseCounts(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	report.Phases = phases

	views, err := h.reader.Tournaments(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, v := range views {
		report.Tournaments[v.Status]++
	}

	writeJSON(w, http.StatusOK, report)
}

// BanStats reports how often each loadout has been banned
func (h *API) BanStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "unavailable", Message: "analytics are not configured"})
		return
	}

	counts, err := h.stats.BanCounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if counts == nil {
		counts = []models.BanCount{}
	}
	writeJSON(w, http.StatusOK, counts)
}
