package engine

import (
	"math"
	"sort"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
	"github.com/qlp-hq/production-scheduler/internal/calendar"
	"github.com/qlp-hq/production-scheduler/internal/capacity"
	"github.com/qlp-hq/production-scheduler/internal/graph"
	"github.com/qlp-hq/production-scheduler/internal/logger"
	"go.uber.org/zap"
)

// minutesPerShift is the nominal shift length (8.5 hours) used by the
// scenario 3 shrink phase's utilization estimate; kept local to avoid a
// dependency on the metrics package, which itself depends on engine.
const minutesPerShift = 510

// bottleneckThreshold is the peak-concurrent-demand fraction of capacity
// that makes a team a "bottleneck team" (spec.md glossary).
const bottleneckThreshold = 0.9

// lowUtilizationThreshold is the ceiling below which a team is a shrink
// candidate in scenario 3 Phase 2.
const lowUtilizationThreshold = 0.7

// Scenario3Config holds the per-team-role search bounds and iteration caps
// for scenario 3 (spec.md §4.9, §6 Configuration surface).
type Scenario3Config struct {
	MinMechanics  int
	MaxMechanics  int
	MinQuality    int
	MaxQuality    int
	MaxIterations int // default 200-300
}

// Scenario3Result is the final per-team capacity configuration scenario 3
// settled on, plus the authoritative schedule and lateness it produced.
type Scenario3Result struct {
	Capacities    map[string]int
	MaxLateness   float64
	TotalLateness float64
	Schedule      *Schedule
}

// RunScenario3 implements the two-phase per-team capacity optimizer (spec.md
// §4.9): Phase 1 grows every team from its minimum toward minimum lateness;
// Phase 2 shrinks under a lateness ceiling derived from Phase 1's result.
func RunScenario3(dag *graph.EffectiveDAG, bnd *bundle.DataBundle, cal *calendar.Calendar, cfg Config, sc3 Scenario3Config) Scenario3Result {
	log := logger.WithScenario("scenario3", "")

	best, bestMaxLateness, bestTotalLateness := scenario3Phase1(dag, bnd, cal, cfg, sc3)
	log.Info("phase 1 complete", zap.Float64("max_lateness_days", bestMaxLateness), zap.Float64("total_lateness_days", bestTotalLateness))

	final := scenario3Phase2(dag, bnd, cal, cfg, sc3, best, bestMaxLateness, bestTotalLateness)

	restore := applyCapacities(bnd, final)
	defer restore()
	tl := capacity.New(bnd.Teams)
	sch := New(dag, bnd, cal, tl, cfg).Run()
	maxLateness, totalLateness := MaxAndTotalLateness(sch, bnd)
	log.Info("phase 2 complete", zap.Float64("max_lateness_days", maxLateness), zap.Float64("total_lateness_days", totalLateness))

	return Scenario3Result{Capacities: final, MaxLateness: maxLateness, TotalLateness: totalLateness, Schedule: sch}
}

func scenario3Phase1(dag *graph.EffectiveDAG, bnd *bundle.DataBundle, cal *calendar.Calendar, cfg Config, sc3 Scenario3Config) (map[string]int, float64, float64) {
	capacities := make(map[string]int, len(bnd.Teams))
	for name, t := range bnd.Teams {
		if t.Role == bundle.RoleQuality {
			capacities[name] = sc3.MinQuality
		} else {
			capacities[name] = sc3.MinMechanics
		}
	}

	best := copyCapacities(capacities)
	bestMaxLateness := math.Inf(1)
	bestTotalLateness := math.Inf(1)
	noImprovement := 0

	maxIterations := sc3.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 200
	}

	for iter := 0; iter < maxIterations; iter++ {
		restore := applyCapacities(bnd, capacities)
		tl := capacity.New(bnd.Teams)
		sch := New(dag, bnd, cal, tl, cfg).Run()

		if len(sch.Failed) > 0 {
			grew := growBlockingTeams(bnd, sch, capacities, sc3)
			restore()
			if !grew {
				break
			}
			continue
		}

		maxLateness, totalLateness := MaxAndTotalLateness(sch, bnd)
		improved := maxLateness < bestMaxLateness || (maxLateness == bestMaxLateness && totalLateness < bestTotalLateness)
		if improved {
			bestMaxLateness, bestTotalLateness = maxLateness, totalLateness
			best = copyCapacities(capacities)
			noImprovement = 0
		} else {
			noImprovement++
			grew := growBottleneckOrLowest(bnd, tl, capacities, sc3)
			if !grew {
				restore()
				break
			}
		}
		restore()

		if bestMaxLateness == 0 || noImprovement >= 20 {
			break
		}
	}

	return best, bestMaxLateness, bestTotalLateness
}

// growBlockingTeams increments every team blocking an unscheduled task:
// the specific mechanic team it requires, or every quality team if the
// unscheduled task is a quality inspection. Returns whether any team grew.
func growBlockingTeams(bnd *bundle.DataBundle, sch *Schedule, capacities map[string]int, sc3 Scenario3Config) bool {
	blockingMech := make(map[string]bool)
	blockingQuality := false
	for id := range sch.Failed {
		task := bnd.Tasks[id]
		if task == nil {
			continue
		}
		if task.Kind == bundle.KindQualityInspection {
			blockingQuality = true
			continue
		}
		if task.TeamName != "" {
			blockingMech[task.TeamName] = true
		}
	}

	grew := false
	for _, name := range sortedKeys(blockingMech) {
		if capacities[name] < sc3.MaxMechanics {
			capacities[name]++
			grew = true
		}
	}
	if blockingQuality {
		for _, name := range bnd.SortedTeamNames() {
			if bnd.Teams[name].Role == bundle.RoleQuality && capacities[name] < sc3.MaxQuality {
				capacities[name]++
				grew = true
			}
		}
	}
	return grew
}

// growBottleneckOrLowest applies step 4 of scenario 3 Phase 1: grow a
// bottleneck mechanic team by 2 (preferred), else a bottleneck quality team
// by 1, else the lowest-capacity team by 1.
func growBottleneckOrLowest(bnd *bundle.DataBundle, tl *capacity.Timeline, capacities map[string]int, sc3 Scenario3Config) bool {
	if name, ok := bottleneckTeam(bnd, tl, capacities, bundle.RoleMechanic); ok && capacities[name] < sc3.MaxMechanics {
		capacities[name] += 2
		if capacities[name] > sc3.MaxMechanics {
			capacities[name] = sc3.MaxMechanics
		}
		logger.WithTeam(name).Debug("grew bottleneck mechanic team", zap.Int("capacity", capacities[name]))
		return true
	}
	if name, ok := bottleneckTeam(bnd, tl, capacities, bundle.RoleQuality); ok && capacities[name] < sc3.MaxQuality {
		capacities[name]++
		logger.WithTeam(name).Debug("grew bottleneck quality team", zap.Int("capacity", capacities[name]))
		return true
	}
	if name, ok := lowestCapacityTeam(bnd, capacities, sc3); ok {
		capacities[name]++
		logger.WithTeam(name).Debug("grew lowest-capacity team", zap.Int("capacity", capacities[name]))
		return true
	}
	return false
}

func bottleneckTeam(bnd *bundle.DataBundle, tl *capacity.Timeline, capacities map[string]int, role bundle.TeamRole) (string, bool) {
	for _, name := range bnd.SortedTeamNames() {
		t := bnd.Teams[name]
		if t.Role != role {
			continue
		}
		cap := capacities[name]
		if cap <= 0 {
			continue
		}
		if float64(tl.PeakConcurrent(name)) >= bottleneckThreshold*float64(cap) {
			return name, true
		}
	}
	return "", false
}

func lowestCapacityTeam(bnd *bundle.DataBundle, capacities map[string]int, sc3 Scenario3Config) (string, bool) {
	best := ""
	bestCap := math.MaxInt
	for _, name := range bnd.SortedTeamNames() {
		t := bnd.Teams[name]
		ceiling := sc3.MaxMechanics
		if t.Role == bundle.RoleQuality {
			ceiling = sc3.MaxQuality
		}
		if capacities[name] >= ceiling {
			continue
		}
		if capacities[name] < bestCap {
			bestCap = capacities[name]
			best = name
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

func scenario3Phase2(dag *graph.EffectiveDAG, bnd *bundle.DataBundle, cal *calendar.Calendar, cfg Config, sc3 Scenario3Config, best map[string]int, bestMaxLateness, bestTotalLateness float64) map[string]int {
	targetMax := bestMaxLateness
	targetTotal := bestTotalLateness * 1.1
	current := copyCapacities(best)

	for iter := 0; iter < 50; iter++ {
		restore := applyCapacities(bnd, current)
		tl := capacity.New(bnd.Teams)
		sch := New(dag, bnd, cal, tl, cfg).Run()
		ms := Makespan(sch, bnd, cal)

		// tryShrink's utilization heuristic reads team capacity off bnd.Teams
		// directly (teamUtilization), so current's capacities must still be
		// the ones installed on bnd.Teams while it runs; restore only after
		// both shrink attempts, not before.
		reduced := tryShrink(dag, bnd, cal, cfg, current, tl, ms, bundle.RoleMechanic, sc3.MinMechanics, targetMax, targetTotal, -1)
		if !reduced {
			peak := 0
			for _, name := range bnd.SortedTeamNames() {
				if bnd.Teams[name].Role == bundle.RoleQuality {
					if p := tl.PeakConcurrent(name); p > peak {
						peak = p
					}
				}
			}
			reduced = tryShrink(dag, bnd, cal, cfg, current, tl, ms, bundle.RoleQuality, sc3.MinQuality, targetMax, targetTotal, peak)
		}
		restore()
		if !reduced {
			break
		}
	}

	return current
}

// tryShrink finds the lowest-utilization team of the given role eligible to
// shrink by one (utilization < 70%, capacity above its floor, and above
// minPeakConcurrent if set), trial-decrements it, and keeps the decrement
// only if the resulting schedule still meets the lateness ceiling.
func tryShrink(dag *graph.EffectiveDAG, bnd *bundle.DataBundle, cal *calendar.Calendar, cfg Config, current map[string]int, tl *capacity.Timeline, makespanDays int, role bundle.TeamRole, floor int, targetMax, targetTotal float64, minPeakConcurrent int) bool {
	candidate := ""
	bestUtil := math.Inf(1)
	for _, name := range bnd.SortedTeamNames() {
		t := bnd.Teams[name]
		if t.Role != role || current[name] <= floor {
			continue
		}
		if minPeakConcurrent >= 0 && current[name] <= minPeakConcurrent {
			continue
		}
		u := teamUtilization(name, bnd, tl, makespanDays)
		if u >= lowUtilizationThreshold {
			continue
		}
		if u < bestUtil {
			bestUtil = u
			candidate = name
		}
	}
	if candidate == "" {
		return false
	}

	trial := copyCapacities(current)
	trial[candidate]--
	restore := applyCapacities(bnd, trial)
	defer restore()

	trialTL := capacity.New(bnd.Teams)
	trialSchedule := New(dag, bnd, cal, trialTL, cfg).Run()
	maxLateness, totalLateness := MaxAndTotalLateness(trialSchedule, bnd)
	if len(trialSchedule.Failed) == 0 && maxLateness <= targetMax && totalLateness <= targetTotal {
		current[candidate] = trial[candidate]
		return true
	}
	return false
}

func teamUtilization(team string, bnd *bundle.DataBundle, tl *capacity.Timeline, makespanDays int) float64 {
	t := bnd.Teams[team]
	if t == nil || makespanDays <= 0 {
		return 0
	}
	shiftsWorked := 0
	for _, worked := range t.Shifts {
		if worked {
			shiftsWorked++
		}
	}
	denom := float64(t.Capacity) * float64(shiftsWorked) * minutesPerShift * float64(makespanDays)
	if denom <= 0 {
		return 0
	}
	return tl.CumulativeWorkerMinutes(team) / denom
}

func copyCapacities(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
