// Package promexport exposes the Metrics component (spec.md §4.6) as
// Prometheus gauges and counters, served over the same gorilla/mux router
// the read-only query API uses.
package promexport

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter exports per-run scheduling metrics for scraping.
type Exporter struct {
	registry *prometheus.Registry

	makespanDays    prometheus.Gauge
	maxLateness     prometheus.Gauge
	totalLateness   prometheus.Gauge
	tasksPlaced     *prometheus.CounterVec
	tasksFailed     *prometheus.CounterVec
	teamUtilization *prometheus.GaugeVec
	runsCompleted   *prometheus.CounterVec
}

// New builds an Exporter with its own registry.
func New() *Exporter {
	registry := prometheus.NewRegistry()

	e := &Exporter{
		registry: registry,
		makespanDays: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scheduler",
			Name:      "makespan_days",
			Help:      "Makespan of the most recent run, in working days.",
		}),
		maxLateness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scheduler",
			Name:      "max_lateness_days",
			Help:      "Maximum product lateness of the most recent run, in days.",
		}),
		totalLateness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scheduler",
			Name:      "total_lateness_days",
			Help:      "Summed product lateness of the most recent run, in days.",
		}),
		tasksPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Name:      "tasks_placed_total",
			Help:      "Total tasks successfully placed, by scenario.",
		}, []string{"scenario"}),
		tasksFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Name:      "tasks_failed_total",
			Help:      "Total tasks that exhausted their retry budget, by scenario.",
		}, []string{"scenario"}),
		teamUtilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "scheduler",
			Name:      "team_utilization_ratio",
			Help:      "Worker-minute utilization of a team over the run's makespan.",
		}, []string{"team"}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Name:      "runs_completed_total",
			Help:      "Total scheduling runs completed, by scenario.",
		}, []string{"scenario"}),
	}

	registry.MustRegister(
		e.makespanDays,
		e.maxLateness,
		e.totalLateness,
		e.tasksPlaced,
		e.tasksFailed,
		e.teamUtilization,
		e.runsCompleted,
	)
	return e
}

// RecordRun records the top-line outcome of one scenario run.
func (e *Exporter) RecordRun(scenario string, makespanDays int, maxLateness, totalLateness float64, placed, failed int) {
	e.makespanDays.Set(float64(makespanDays))
	e.maxLateness.Set(maxLateness)
	e.totalLateness.Set(totalLateness)
	e.tasksPlaced.WithLabelValues(scenario).Add(float64(placed))
	e.tasksFailed.WithLabelValues(scenario).Add(float64(failed))
	e.runsCompleted.WithLabelValues(scenario).Inc()
}

// RecordTeamUtilization records one team's utilization ratio for the run.
func (e *Exporter) RecordTeamUtilization(team string, ratio float64) {
	e.teamUtilization.WithLabelValues(team).Set(ratio)
}

// Handler returns the HTTP handler serving this exporter's registry in the
// Prometheus text exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
