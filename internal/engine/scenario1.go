package engine

import (
	"github.com/qlp-hq/production-scheduler/internal/bundle"
	"github.com/qlp-hq/production-scheduler/internal/calendar"
	"github.com/qlp-hq/production-scheduler/internal/capacity"
	"github.com/qlp-hq/production-scheduler/internal/graph"
)

// RunScenario1 runs the scheduler once with baseline or caller-supplied
// per-team capacities (spec.md §4.7). A nil or partial capacities map
// leaves the corresponding teams at their currently loaded capacity.
func RunScenario1(dag *graph.EffectiveDAG, bnd *bundle.DataBundle, cal *calendar.Calendar, cfg Config, capacities map[string]int) *Schedule {
	restore := applyCapacities(bnd, capacities)
	defer restore()

	tl := capacity.New(bnd.Teams)
	return New(dag, bnd, cal, tl, cfg).Run()
}

// RunScenario1Uniform runs scenario 1 with every mechanic team set to the
// given mechanic head count and every quality team set to the given quality
// head count, restoring originals on exit.
func RunScenario1Uniform(dag *graph.EffectiveDAG, bnd *bundle.DataBundle, cal *calendar.Calendar, cfg Config, mechanics, quality int) *Schedule {
	uniform := make(map[string]int, len(bnd.Teams))
	for name, t := range bnd.Teams {
		if t.Role == bundle.RoleQuality {
			uniform[name] = quality
		} else {
			uniform[name] = mechanics
		}
	}
	return RunScenario1(dag, bnd, cal, cfg, uniform)
}

// applyCapacities snapshots every team's current capacity, overwrites the
// entries named in capacities, and returns a restore function. Callers must
// defer the restore immediately, satisfying the scoped-acquisition
// discipline spec.md §9 requires around the mutable capacity map: restore
// runs on every exit path, including a panic unwinding through the defer.
func applyCapacities(bnd *bundle.DataBundle, capacities map[string]int) func() {
	original := make(map[string]int, len(bnd.Teams))
	for name, t := range bnd.Teams {
		original[name] = t.Capacity
	}
	for name, v := range capacities {
		if t, ok := bnd.Teams[name]; ok {
			t.Capacity = v
		}
	}
	return func() {
		for name, v := range original {
			bnd.Teams[name].Capacity = v
		}
	}
}
