package engine

import (
	"context"
	"time"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
	"github.com/qlp-hq/production-scheduler/internal/calendar"
	"github.com/qlp-hq/production-scheduler/internal/graph"
	"github.com/qlp-hq/production-scheduler/internal/logger"
	"golang.org/x/sync/errgroup"
)

// AllScenariosResult collects the outcome of running scenarios 1-3 against
// one bundle.
type AllScenariosResult struct {
	Baseline  *Schedule
	Scenario2 Scenario2Result
	Scenario3 Scenario3Result
}

// RunAll runs scenario 1 (baseline capacities), scenario 2, and scenario 3
// concurrently against the same DAG and bundle. Each scenario snapshots and
// restores bnd.Teams' capacities around its own run (applyCapacities), so
// running them concurrently on one bundle would race on that shared map;
// RunAll instead gives each of the three runs its own copy of the teams
// (cloneForConcurrentRun) and runs all three in parallel on an errgroup.
// This mirrors the teacher's worker group pattern while respecting spec.md
// §5's single-threaded-per-scheduling-pass rule: no two scheduler passes
// ever share one bundle's mutable capacity map at the same time.
func RunAll(ctx context.Context, dag *graph.EffectiveDAG, bnd *bundle.DataBundle, cal *calendar.Calendar, cfg Config, s2 Scenario2Bounds, s3 Scenario3Config) (*AllScenariosResult, error) {
	started := time.Now()
	g, ctx := errgroup.WithContext(ctx)

	var baseline *Schedule
	var scenario2 Scenario2Result
	var scenario3 Scenario3Result

	baselineBundle, baselineDag := cloneForConcurrentRun(bnd, dag)
	s2Bundle, s2Dag := cloneForConcurrentRun(bnd, dag)
	s3Bundle, s3Dag := cloneForConcurrentRun(bnd, dag)

	g.Go(func() error {
		baseline = RunScenario1(baselineDag, baselineBundle, cal, cfg, nil)
		return ctx.Err()
	})
	g.Go(func() error {
		scenario2 = RunScenario2(s2Dag, s2Bundle, cal, cfg, s2)
		return ctx.Err()
	})
	g.Go(func() error {
		scenario3 = RunScenario3(s3Dag, s3Bundle, cal, cfg, s3)
		return ctx.Err()
	})

	if err := g.Wait(); err != nil {
		logger.LogPerformance("run_all_scenarios", time.Since(started).Milliseconds(), false)
		return nil, err
	}
	logger.LogPerformance("run_all_scenarios", time.Since(started).Milliseconds(), true)
	return &AllScenariosResult{Baseline: baseline, Scenario2: scenario2, Scenario3: scenario3}, nil
}

// cloneForConcurrentRun produces an independent *bundle.DataBundle (sharing
// immutable task/edge data but with its own Team structs) and a matching
// EffectiveDAG referencing that bundle's Tasks map, so concurrent scenario
// runs can each mutate their own copy of team capacities without racing.
func cloneForConcurrentRun(bnd *bundle.DataBundle, dag *graph.EffectiveDAG) (*bundle.DataBundle, *graph.EffectiveDAG) {
	clonedTeams := make(map[string]*bundle.Team, len(bnd.Teams))
	for name, t := range bnd.Teams {
		shifts := make(map[bundle.Shift]bool, len(t.Shifts))
		for s, v := range t.Shifts {
			shifts[s] = v
		}
		clonedTeams[name] = &bundle.Team{Name: t.Name, Capacity: t.Capacity, Shifts: shifts, Role: t.Role}
	}

	clonedBundle := *bnd
	clonedBundle.Teams = clonedTeams

	clonedDAG := &graph.EffectiveDAG{
		Edges:      dag.Edges,
		Forward:    dag.Forward,
		Reverse:    dag.Reverse,
		Tasks:      clonedBundle.Tasks,
		SyntheticQ: dag.SyntheticQ,
	}
	return &clonedBundle, clonedDAG
}
