// Package api exposes the read-only HTTP query surface described in
// spec.md §1 as an external collaborator: a dashboard backend would sit in
// front of this, but the engine itself only needs to answer "what did run X
// produce" over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/qlp-hq/production-scheduler/internal/metrics/promexport"
	"github.com/qlp-hq/production-scheduler/internal/store/postgres"
)

// Handler serves schedule and metrics lookups for previously persisted
// runs.
type Handler struct {
	store    *postgres.Store
	exporter *promexport.Exporter
}

// NewHandler builds a Handler backed by store. exporter may be nil, in which
// case GetMetrics serves stored metrics without feeding the Prometheus
// gauges.
func NewHandler(store *postgres.Store, exporter *promexport.Exporter) *Handler {
	return &Handler{store: store, exporter: exporter}
}

// RegisterRoutes attaches this handler's routes to router.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/schedule/{runID}", h.GetSchedule).Methods("GET")
	router.HandleFunc("/schedule/{runID}/team/{team}", h.GetScheduleByTeam).Methods("GET")
	router.HandleFunc("/schedule/{runID}/day/{date}", h.GetScheduleByDay).Methods("GET")
	router.HandleFunc("/metrics/{runID}", h.GetMetrics).Methods("GET")
}

// GetSchedule returns the persisted placements and failures for a run.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runID"]

	sch, err := h.store.LoadSchedule(runID)
	if err != nil {
		http.Error(w, "schedule not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sch)
}

// GetScheduleByTeam implements the filter_by_team query entry point
// (spec.md §1) over a persisted run.
func (h *Handler) GetScheduleByTeam(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sch, err := h.store.LoadSchedule(vars["runID"])
	if err != nil {
		http.Error(w, "schedule not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sch.ByTeam(vars["team"]))
}

// GetScheduleByDay implements the get_daily_schedule query entry point
// (spec.md §1) over a persisted run. date is a YYYY-MM-DD day;
// team, if given as a query parameter, further restricts the result.
func (h *Handler) GetScheduleByDay(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	day, err := time.Parse("2006-01-02", vars["date"])
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	sch, err := h.store.LoadSchedule(vars["runID"])
	if err != nil {
		http.Error(w, "schedule not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sch.OnDay(day, r.URL.Query().Get("team")))
}

// GetMetrics returns the persisted top-line metrics for a run. Metrics are
// stored in their own table rather than recomputed, since scenario
// capacities are transient and not preserved across runs. If an exporter is
// attached, the lookup also feeds the Prometheus gauges it serves on
// /metrics, so a scrape always reflects the last queried run.
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runID"]

	m, err := h.store.LoadMetrics(runID)
	if err != nil {
		http.Error(w, "metrics not found", http.StatusNotFound)
		return
	}

	if h.exporter != nil {
		scenario := runID
		if i := strings.LastIndex(runID, "-"); i >= 0 {
			scenario = runID[:i]
		}
		h.exporter.RecordRun(scenario, m.MakespanDays, m.MaxLateness, m.TotalLateness, 0, 0)
		for team, ratio := range m.UtilizationByTeam {
			h.exporter.RecordTeamUtilization(team, ratio)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m)
}
