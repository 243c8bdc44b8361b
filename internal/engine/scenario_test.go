package engine

import (
	"context"
	"testing"
	"time"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
	"github.com/qlp-hq/production-scheduler/internal/cache"
	"github.com/qlp-hq/production-scheduler/internal/calendar"
	"github.com/qlp-hq/production-scheduler/internal/graph"
)

// setup loads a testdata bundle and builds its effective DAG, calendar, and
// base Config, mirroring what cmd/scheduler's loadRun does for a CLI run.
func setup(t *testing.T, path string) (*bundle.DataBundle, *graph.EffectiveDAG, *calendar.Calendar, Config) {
	t.Helper()
	bnd, warnings, err := bundle.LoadBundleJSON(path)
	if err != nil {
		t.Fatalf("LoadBundleJSON(%s): %v", path, err)
	}
	for _, w := range warnings {
		t.Logf("bundle warning: %v", w)
	}
	dag, err := graph.NewBuilder(cache.NewInMemory()).Build(bnd)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	cal := calendar.New(bnd)
	cfg := Config{Start: bnd.StartInstant, LateDelayDays: bnd.LatePartDelayDays}
	return bnd, dag, cal, cfg
}

// TestE1SingleTaskNoDeps grounds on spec.md's concrete example E1.
func TestE1SingleTaskNoDeps(t *testing.T) {
	bnd, dag, cal, cfg := setup(t, "../../testdata/bundles/e1_single_task.json")
	sch := RunScenario1(dag, bnd, cal, cfg, nil)

	p, ok := sch.Placements[1]
	if !ok {
		t.Fatalf("task 1 failed to place: %v", sch.Failed)
	}
	wantStart := time.Date(2025, time.August, 22, 6, 0, 0, 0, time.Local)
	wantEnd := wantStart.Add(time.Hour)
	if !p.Start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", p.Start, wantStart)
	}
	if !p.End.Equal(wantEnd) {
		t.Errorf("end = %v, want %v", p.End, wantEnd)
	}
	if got := Makespan(sch, bnd, cal); got != 1 {
		t.Errorf("makespan = %d, want 1", got)
	}
}

// TestE2ForcedLatePartDelay grounds on spec.md's concrete example E2: a
// LatePart task can never start before its on-dock date plus the
// configured delay, even though the calendar would otherwise allow it
// earlier.
func TestE2ForcedLatePartDelay(t *testing.T) {
	bnd, dag, cal, cfg := setup(t, "../../testdata/bundles/e2_late_part_delay.json")
	sch := RunScenario1(dag, bnd, cal, cfg, nil)

	latePart, ok := sch.Placements[301]
	if !ok {
		t.Fatalf("late part task 301 failed to place: %v", sch.Failed)
	}
	wantStart := time.Date(2025, time.August, 26, 6, 0, 0, 0, time.Local)
	if !latePart.Start.Equal(wantStart) {
		t.Errorf("late part start = %v, want %v", latePart.Start, wantStart)
	}

	dependent, ok := sch.Placements[2]
	if !ok {
		t.Fatalf("dependent task 2 failed to place: %v", sch.Failed)
	}
	floor := time.Date(2025, time.August, 26, 8, 0, 0, 0, time.Local)
	if dependent.Start.Before(floor) {
		t.Errorf("dependent start = %v, should not be before %v", dependent.Start, floor)
	}
}

// TestE3QualityInterposition grounds on spec.md's concrete example E3.
func TestE3QualityInterposition(t *testing.T) {
	bnd, dag, cal, cfg := setup(t, "../../testdata/bundles/e3_quality_interposition.json")
	sch := RunScenario1(dag, bnd, cal, cfg, nil)

	quality, ok := sch.Placements[101]
	if !ok {
		t.Fatalf("synthesized quality task 101 failed to place: %v", sch.Failed)
	}
	task2, ok := sch.Placements[2]
	if !ok {
		t.Fatalf("task 2 failed to place: %v", sch.Failed)
	}
	if task2.Start.Before(quality.End) {
		t.Errorf("task 2 start %v should be >= quality inspection end %v", task2.Start, quality.End)
	}
}

// TestE4CapacityLimit grounds on spec.md's concrete example E4.
func TestE4CapacityLimit(t *testing.T) {
	bnd, dag, cal, cfg := setup(t, "../../testdata/bundles/e4_capacity_limit.json")
	sch := RunScenario1(dag, bnd, cal, cfg, nil)

	var firstSlot, secondSlot int
	for id := 1; id <= 3; id++ {
		p, ok := sch.Placements[id]
		if !ok {
			t.Fatalf("task %d failed to place: %v", id, sch.Failed)
		}
		if p.Start.Hour() == 6 {
			firstSlot++
		} else if p.Start.Hour() >= 7 {
			secondSlot++
		}
	}
	if firstSlot != 2 {
		t.Errorf("expected exactly 2 tasks placed in the 06:00 slot, got %d", firstSlot)
	}
	if secondSlot != 1 {
		t.Errorf("expected exactly 1 task bumped to a later slot, got %d", secondSlot)
	}

	if errs := sch.CheckInvariants(bnd, cal); len(errs) != 0 {
		t.Errorf("CheckInvariants found violations: %v", errs)
	}
}

// TestE5WeekendSkip grounds on spec.md's concrete example E5: a task whose
// earliest start is Friday 14:00, too late for its 60 minutes to fit before
// shift1 ends at 14:30, must skip the weekend entirely rather than landing
// on Saturday.
func TestE5WeekendSkip(t *testing.T) {
	bnd, dag, cal, cfg := setup(t, "../../testdata/bundles/e5_weekend_skip.json")
	sch := RunScenario1(dag, bnd, cal, cfg, nil)

	p, ok := sch.Placements[2]
	if !ok {
		t.Fatalf("task 2 failed to place: %v", sch.Failed)
	}
	want := time.Date(2025, time.August, 25, 6, 0, 0, 0, time.Local)
	if !p.Start.Equal(want) {
		t.Errorf("start = %v, want %v (the following Monday)", p.Start, want)
	}
	if p.Start.Weekday() == time.Saturday || p.Start.Weekday() == time.Sunday {
		t.Errorf("task must not be placed on a weekend, got %v", p.Start.Weekday())
	}
}

func TestScheduleRoundTripIsDeterministic(t *testing.T) {
	bnd, dag, cal, cfg := setup(t, "../../testdata/bundles/e4_capacity_limit.json")
	first := RunScenario1(dag, bnd, cal, cfg, nil)
	second := RunScenario1(dag, bnd, cal, cfg, nil)

	if len(first.Placements) != len(second.Placements) {
		t.Fatalf("placement counts diverged across runs: %d vs %d", len(first.Placements), len(second.Placements))
	}
	for id, p1 := range first.Placements {
		p2, ok := second.Placements[id]
		if !ok {
			t.Fatalf("task %d placed in first run but not second", id)
		}
		if !p1.Start.Equal(p2.Start) || !p1.End.Equal(p2.End) || p1.Team != p2.Team {
			t.Errorf("task %d placement diverged: %+v vs %+v", id, p1, p2)
		}
	}
}

func TestScenario2MonotonicMakespanAsMechanicsGrow(t *testing.T) {
	bnd, dag, cal, cfg := setup(t, "../../testdata/bundles/e4_capacity_limit.json")

	lowCapacity := RunScenario1Uniform(dag, bnd, cal, cfg, 1, 10)
	highCapacity := RunScenario1Uniform(dag, bnd, cal, cfg, 10, 10)

	if got, want := Makespan(highCapacity, bnd, cal), Makespan(lowCapacity, bnd, cal); got > want {
		t.Errorf("makespan should not increase as mechanic capacity grows: low-capacity=%d high-capacity=%d", want, got)
	}
}

// TestScenario2BinarySearchPicksSmallestOptimum grounds on spec.md's
// concrete example E6: when multiple candidate headcounts reach the same
// best observed makespan, scenario 2 must settle on the smallest one.
func TestScenario2BinarySearchPicksSmallestOptimum(t *testing.T) {
	makespanAt := map[int]int{5: 40, 6: 35, 7: 30, 8: 30, 9: 30, 10: 30}
	best, bestVal := binarySearchUniform(nil, nil, nil, Config{}, 5, 10, func(candidate int) int {
		return makespanAt[candidate]
	}, atLeastAsGood)

	if best != 7 {
		t.Errorf("binarySearchUniform chose M=%d, want 7 (the smallest M reaching the best observed makespan of %d)", best, 30)
	}
	if bestVal != 30 {
		t.Errorf("binarySearchUniform best value = %d, want 30", bestVal)
	}
}

func TestScenario3Phase2NeverRegressesPastPhase1Bounds(t *testing.T) {
	bnd, dag, cal, cfg := setup(t, "../../testdata/bundles/e4_capacity_limit.json")
	sc3 := Scenario3Config{
		MinMechanics: 1, MaxMechanics: 5, MinQuality: 1, MaxQuality: 5, MaxIterations: 50,
	}
	result := RunScenario3(dag, bnd, cal, cfg, sc3)

	if len(result.Capacities) == 0 {
		t.Fatal("expected scenario 3 to return a capacity configuration")
	}
	if result.MaxLateness < 0 {
		t.Errorf("max lateness should never be negative, got %v", result.MaxLateness)
	}

	phase1Caps, phase1Max, phase1Total := scenario3Phase1(dag, bnd, cal, cfg, sc3)
	if result.MaxLateness > phase1Max {
		t.Errorf("final max lateness %v exceeds phase 1 max lateness %v", result.MaxLateness, phase1Max)
	}
	if result.TotalLateness > phase1Total*1.1 {
		t.Errorf("final total lateness %v exceeds 1.1 x phase 1 total lateness %v", result.TotalLateness, phase1Total)
	}
	phase1Workforce, finalWorkforce := 0, 0
	for _, v := range phase1Caps {
		phase1Workforce += v
	}
	for _, v := range result.Capacities {
		finalWorkforce += v
	}
	if finalWorkforce > phase1Workforce {
		t.Errorf("final workforce %d exceeds phase 1 workforce %d", finalWorkforce, phase1Workforce)
	}
}

func TestRunAllProducesThreeIndependentSchedules(t *testing.T) {
	bnd, dag, cal, cfg := setup(t, "../../testdata/bundles/e4_capacity_limit.json")
	bounds := Scenario2Bounds{MinMechanics: 1, MaxMechanics: 5, MinQuality: 1, MaxQuality: 5}
	sc3 := Scenario3Config{MinMechanics: 1, MaxMechanics: 5, MinQuality: 1, MaxQuality: 5, MaxIterations: 50}

	result, err := RunAll(context.Background(), dag, bnd, cal, cfg, bounds, sc3)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if result.Baseline == nil || result.Scenario2.Schedule == nil || result.Scenario3.Schedule == nil {
		t.Fatal("RunAll should populate all three scenario results")
	}
}
