package engine

import (
	"github.com/qlp-hq/production-scheduler/internal/bundle"
	"github.com/qlp-hq/production-scheduler/internal/calendar"
	"github.com/qlp-hq/production-scheduler/internal/graph"
	"github.com/qlp-hq/production-scheduler/internal/logger"
	"github.com/qlp-hq/production-scheduler/internal/schederr"
)

// Scenario2Bounds are the search bounds for scenario 2's nested binary
// search (spec.md §6 Configuration surface: min/max mechanics, min/max
// quality).
type Scenario2Bounds struct {
	MinMechanics int
	MaxMechanics int
	MinQuality   int
	MaxQuality   int
}

// Scenario2Result is the chosen uniform headcount pair and the schedule it
// produces.
type Scenario2Result struct {
	Mechanics int
	Quality   int
	Makespan  int
	Schedule  *Schedule
}

// RunScenario2 minimizes makespan via two nested binary searches over
// uniform per-team headcount (spec.md §4.8): Phase A searches mechanics with
// quality fixed at its maximum; Phase B searches quality with mechanics
// fixed at Phase A's result; Phase C reruns with the chosen pair.
func RunScenario2(dag *graph.EffectiveDAG, bnd *bundle.DataBundle, cal *calendar.Calendar, cfg Config, bounds Scenario2Bounds) Scenario2Result {
	mech, _ := binarySearchUniform(dag, bnd, cal, cfg, bounds.MinMechanics, bounds.MaxMechanics, func(candidate int) int {
		sch := RunScenario1Uniform(dag, bnd, cal, cfg, candidate, bounds.MaxQuality)
		return Makespan(sch, bnd, cal)
	}, strictlyBetter)

	quality, finalMakespan := binarySearchUniform(dag, bnd, cal, cfg, bounds.MinQuality, bounds.MaxQuality, func(candidate int) int {
		sch := RunScenario1Uniform(dag, bnd, cal, cfg, mech, candidate)
		return Makespan(sch, bnd, cal)
	}, atLeastAsGood)

	if finalMakespan >= UnscheduledMakespanSentinel {
		err := schederr.InfeasibleScenario("no headcount pair within bounds produced a complete schedule")
		logger.LogError("scenario2_search", err, map[string]interface{}{
			"min_mechanics": bounds.MinMechanics, "max_mechanics": bounds.MaxMechanics,
			"min_quality": bounds.MinQuality, "max_quality": bounds.MaxQuality,
		})
	}

	finalSchedule := RunScenario1Uniform(dag, bnd, cal, cfg, mech, quality)
	return Scenario2Result{Mechanics: mech, Quality: quality, Makespan: finalMakespan, Schedule: finalSchedule}
}

// acceptFunc decides whether a candidate's makespan is good enough to
// become the new best-so-far, given the best makespan recorded prior to
// this candidate.
type acceptFunc func(candidateMakespan, bestSoFar int) bool

func strictlyBetter(candidate, best int) bool { return candidate < best }

// atLeastAsGood accepts equal makespans too — Phase B prefers the smallest
// quality headcount that does not regress makespan (spec.md §4.8 "quality
// reductions at equal makespan are preferred").
func atLeastAsGood(candidate, best int) bool { return candidate <= best }

// binarySearchUniform implements the search structure shared by scenario
// 2's two phases: for each midpoint, run the scheduler and read back its
// makespan; an unscheduled run (UnscheduledMakespanSentinel) is infeasible
// and pushes the search upward; a feasible run accepted by accept narrows
// the search toward smaller headcounts.
func binarySearchUniform(dag *graph.EffectiveDAG, bnd *bundle.DataBundle, cal *calendar.Calendar, cfg Config, lo, hi int, evaluate func(int) int, accept acceptFunc) (int, int) {
	best := UnscheduledMakespanSentinel
	bestCandidate := hi

	for lo <= hi {
		mid := lo + (hi-lo)/2
		ms := evaluate(mid)
		if ms >= UnscheduledMakespanSentinel {
			lo = mid + 1
			continue
		}
		if accept(ms, best) {
			best = ms
			bestCandidate = mid
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	return bestCandidate, best
}
