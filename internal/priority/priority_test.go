package priority

import (
	"testing"
	"time"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
	"github.com/qlp-hq/production-scheduler/internal/cache"
	"github.com/qlp-hq/production-scheduler/internal/graph"
)

func chainBundle() (*bundle.DataBundle, *graph.EffectiveDAG) {
	b := &bundle.DataBundle{
		Tasks: map[int]*bundle.Task{
			1: {ID: 1, DurationMin: 60, TeamName: "M1", WorkersRequired: 1, Kind: bundle.KindProduction},
			2: {ID: 2, DurationMin: 120, TeamName: "M1", WorkersRequired: 1, Kind: bundle.KindProduction},
			3: {ID: 3, DurationMin: 30, WorkersRequired: 1, Kind: bundle.KindLatePart},
		},
		Precedence: []bundle.PrecedenceEdge{
			{First: 1, Second: 2, Relation: bundle.RelationFinishBeforeStart},
		},
		Products: map[string]*bundle.Product{
			"P": {Name: "P", TaskIDs: map[int]bool{1: true, 2: true}, Delivery: time.Date(2025, time.August, 25, 6, 0, 0, 0, time.Local)},
		},
	}
	builder := graph.NewBuilder(cache.NewInMemory())
	dag, err := builder.Build(b)
	if err != nil {
		panic(err)
	}
	return b, dag
}

func TestCriticalPathLengthSumsDownstreamDurations(t *testing.T) {
	b, dag := chainBundle()
	calc := NewCalculator(dag, b, b.Products["P"].Delivery.AddDate(0, 0, -3))

	if got := calc.CriticalPathLength(2); got != 120 {
		t.Errorf("CriticalPathLength(2) = %d, want 120 (leaf task)", got)
	}
	if got := calc.CriticalPathLength(1); got != 180 {
		t.Errorf("CriticalPathLength(1) = %d, want 180 (60 + 120)", got)
	}
}

func TestCriticalPathLengthIsMemoizedAndDeterministic(t *testing.T) {
	b, dag := chainBundle()
	calc := NewCalculator(dag, b, time.Now())

	first := calc.CriticalPathLength(1)
	second := calc.CriticalPathLength(1)
	if first != second {
		t.Errorf("repeated CriticalPathLength(1) calls diverged: %d vs %d", first, second)
	}
}

func TestPriorityOrdersLatePartAheadOfProduction(t *testing.T) {
	b, dag := chainBundle()
	calc := NewCalculator(dag, b, time.Date(2025, time.August, 22, 6, 0, 0, 0, time.Local))

	latePartScore := calc.Priority(3)
	productionScore := calc.Priority(1)
	if latePartScore >= productionScore {
		t.Errorf("late part priority score %v should be lower (higher priority) than production score %v", latePartScore, productionScore)
	}
}

func TestResolveProductFallsBackToRange(t *testing.T) {
	b := &bundle.DataBundle{
		Tasks: map[int]*bundle.Task{
			1: {ID: 1, DurationMin: 60, Kind: bundle.KindProduction},
		},
		Products: map[string]*bundle.Product{
			"P": {Name: "P", TaskIDs: map[int]bool{}, IDRangeStart: 1, IDRangeEnd: 10},
		},
	}
	name, ok := resolveProduct(b, &graph.EffectiveDAG{}, 1)
	if !ok || name != "P" {
		t.Errorf("resolveProduct = (%q, %v), want (\"P\", true)", name, ok)
	}
}

func TestSlackShrinksAsScheduledStartMovesLater(t *testing.T) {
	b, dag := chainBundle()
	calc := NewCalculator(dag, b, time.Date(2025, time.August, 22, 6, 0, 0, 0, time.Local))

	early := time.Date(2025, time.August, 22, 7, 0, 0, 0, time.Local)
	late := time.Date(2025, time.August, 23, 7, 0, 0, 0, time.Local)

	slackEarly, ok := calc.Slack(1, early)
	if !ok {
		t.Fatal("expected slack for task 1")
	}
	slackLate, ok := calc.Slack(1, late)
	if !ok {
		t.Fatal("expected slack for task 1")
	}
	if slackLate >= slackEarly {
		t.Errorf("slack should shrink as the scheduled start moves later: early=%v late=%v", slackEarly, slackLate)
	}
}
