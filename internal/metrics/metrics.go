// Package metrics computes makespan, per-product lateness, task-kind
// breakdowns, and per-team utilization over a finished schedule (spec.md
// §4.6).
package metrics

import (
	"sort"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
	"github.com/qlp-hq/production-scheduler/internal/calendar"
	"github.com/qlp-hq/production-scheduler/internal/capacity"
	"github.com/qlp-hq/production-scheduler/internal/engine"
)

// UnscheduledMakespanSentinel is returned by Makespan when not every task
// placed.
const UnscheduledMakespanSentinel = engine.UnscheduledMakespanSentinel

// UnscheduledLatenessSentinel is returned by Lateness for a product with no
// placed tasks.
const UnscheduledLatenessSentinel = engine.UnscheduledLatenessSentinel

// minutesPerShift is the nominal shift length (8.5 hours) used as the
// utilization denominator's per-shift-per-day capacity.
const minutesPerShift = 510

// Makespan re-exports the scheduler's own makespan computation (spec.md
// §4.6); it lives next to the scheduler since scenarios 2 and 3 search
// against it directly, and is surfaced here so report assembly only needs
// to import one metrics package.
func Makespan(sch *engine.Schedule, b *bundle.DataBundle, cal *calendar.Calendar) int {
	return engine.Makespan(sch, b, cal)
}

// Lateness implements lateness(product): the projected completion (the
// latest end among the product's placed tasks) minus its delivery date, in
// days. A product with no placed tasks returns UnscheduledLatenessSentinel.
// Delegates to engine.Lateness, the single source of truth scenario 3
// searches against directly every iteration.
func Lateness(product string, sch *engine.Schedule, b *bundle.DataBundle) float64 {
	l, ok := engine.Lateness(product, sch, b)
	if !ok {
		return UnscheduledLatenessSentinel
	}
	return l
}

// OnTime reports lateness(product) <= 0.
func OnTime(product string, sch *engine.Schedule, b *bundle.DataBundle) bool {
	l := Lateness(product, sch, b)
	return l != UnscheduledLatenessSentinel && l <= 0
}

// TaskCountsByKind tallies, for the given product, how many of its tasks
// fall into each TaskKind.
func TaskCountsByKind(product string, sch *engine.Schedule, b *bundle.DataBundle) map[bundle.TaskKind]int {
	counts := make(map[bundle.TaskKind]int)
	for _, id := range sortedPlacementIDs(sch) {
		placement := sch.Placements[id]
		if placement.Product != product {
			continue
		}
		task := b.Tasks[id]
		if task == nil {
			continue
		}
		counts[task.Kind]++
	}
	return counts
}

// Utilization implements utilization(team): scheduled worker-minutes divided
// by (capacity * shifts worked * 510 * makespan days), clamped to [0,1].
// teamCapacity is passed explicitly rather than read off b.Teams[team]
// because a scenario run restores bnd.Teams' capacities on exit (spec.md §9
// scoped-acquisition discipline) — callers should pass the schedule's own
// Capacities snapshot, not whatever bnd.Teams holds after the fact.
func Utilization(team string, b *bundle.DataBundle, tl *capacity.Timeline, makespanDays, teamCapacity int) float64 {
	t := b.Teams[team]
	if t == nil || makespanDays <= 0 {
		return 0
	}
	shiftsWorked := 0
	for _, worked := range t.Shifts {
		if worked {
			shiftsWorked++
		}
	}
	denom := float64(teamCapacity) * float64(shiftsWorked) * minutesPerShift * float64(makespanDays)
	if denom <= 0 {
		return 0
	}
	u := tl.CumulativeWorkerMinutes(team) / denom
	if u < 0 {
		return 0
	}
	if u > 1 {
		return 1
	}
	return u
}

func sortedPlacementIDs(sch *engine.Schedule) []int {
	ids := make([]int, 0, len(sch.Placements))
	for id := range sch.Placements {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
