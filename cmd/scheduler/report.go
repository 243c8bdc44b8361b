package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
	"github.com/qlp-hq/production-scheduler/internal/engine"
	"github.com/qlp-hq/production-scheduler/internal/metrics"
	"github.com/qlp-hq/production-scheduler/internal/priority"
)

// ProductSummary is one product's entry in the per-product metrics
// described in spec.md §6 Output.
type ProductSummary struct {
	Product             string                  `json:"product"`
	Delivery            string                  `json:"delivery"`
	ProjectedCompletion string                  `json:"projected_completion,omitempty"`
	LatenessDays        float64                 `json:"lateness_days"`
	OnTime              bool                    `json:"on_time"`
	Scheduled           bool                    `json:"scheduled"`
	TaskCountsByKind    map[bundle.TaskKind]int `json:"task_counts_by_kind"`
}

// ScenarioSummary is the per-scenario summary described in spec.md §6
// Output: makespan, total workforce, utilization by team, max and total
// lateness.
type ScenarioSummary struct {
	Scenario          string             `json:"scenario"`
	MakespanDays      int                `json:"makespan_days"`
	TotalWorkforce    int                `json:"total_workforce"`
	UtilizationByTeam map[string]float64 `json:"utilization_by_team"`
	MaxLatenessDays   float64            `json:"max_lateness_days"`
	TotalLatenessDays float64            `json:"total_lateness_days"`
	TasksPlaced       int                `json:"tasks_placed"`
	TasksFailed       int                `json:"tasks_failed"`
}

// Report bundles the three spec.md §6 output artifacts for one scenario
// run: the globally prioritized annotated task list, per-product metrics,
// and the per-scenario summary.
type Report struct {
	Tasks    []engine.Row     `json:"tasks"`
	Products []ProductSummary `json:"products"`
	Summary  ScenarioSummary  `json:"summary"`
}

// buildReport assembles a Report from a finished schedule, wiring
// engine.ToRows and the metrics package's per-product and per-team
// functions instead of dumping the raw placements map (spec.md §6 Output).
func buildReport(scenario string, sch *engine.Schedule, lr *loadedRun) Report {
	calc := priority.NewCalculator(lr.dag, lr.bnd, lr.cfg.Start)

	priorityOf := func(id int) float64 { return calc.Priority(id) }
	slackOf := func(id int) (float64, bool) {
		p, ok := sch.Placements[id]
		if !ok {
			return 0, false
		}
		return calc.Slack(id, p.Start)
	}
	productOf := func(id int) (string, bool) { return calc.ResolveProduct(id) }

	rows := engine.ToRows(sch, lr.bnd, lr.dag, priorityOf, slackOf, productOf)

	makespanDays := metrics.Makespan(sch, lr.bnd, lr.cal)

	products := make([]ProductSummary, 0, len(lr.bnd.Products))
	for _, name := range lr.bnd.SortedProductNames() {
		p := lr.bnd.Products[name]
		l, scheduled := engine.Lateness(name, sch, lr.bnd)
		summary := ProductSummary{
			Product:          name,
			Delivery:         p.Delivery.Format("2006-01-02"),
			Scheduled:        scheduled,
			TaskCountsByKind: metrics.TaskCountsByKind(name, sch, lr.bnd),
		}
		if scheduled {
			summary.LatenessDays = l
			summary.OnTime = metrics.OnTime(name, sch, lr.bnd)
			summary.ProjectedCompletion = p.Delivery.AddDate(0, 0, int(l)).Format("2006-01-02")
		} else {
			summary.LatenessDays = metrics.UnscheduledLatenessSentinel
		}
		products = append(products, summary)
	}

	utilByTeam := make(map[string]float64, len(lr.bnd.Teams))
	totalWorkforce := 0
	for _, name := range lr.bnd.SortedTeamNames() {
		teamCap := sch.Capacities[name]
		totalWorkforce += teamCap
		utilByTeam[name] = metrics.Utilization(name, lr.bnd, sch.Timeline, makespanDays, teamCap)
	}

	maxLateness, totalLateness := engine.MaxAndTotalLateness(sch, lr.bnd)

	return Report{
		Tasks:    rows,
		Products: products,
		Summary: ScenarioSummary{
			Scenario:          scenario,
			MakespanDays:      makespanDays,
			TotalWorkforce:    totalWorkforce,
			UtilizationByTeam: utilByTeam,
			MaxLatenessDays:   maxLateness,
			TotalLatenessDays: totalLateness,
			TasksPlaced:       len(sch.Placements),
			TasksFailed:       len(sch.Failed),
		},
	}
}

// writeReport renders a Report as indented JSON to path, or stdout when
// path is empty.
func writeReport(report Report, path string) error {
	enc := json.NewEncoder(os.Stdout)
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		enc = json.NewEncoder(f)
	}
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
