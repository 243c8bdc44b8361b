package graph

import (
	"testing"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
	"github.com/qlp-hq/production-scheduler/internal/cache"
)

func bundleWithQualityInterposition() *bundle.DataBundle {
	b := &bundle.DataBundle{
		Tasks: map[int]*bundle.Task{
			1: {ID: 1, DurationMin: 60, TeamName: "M1", WorkersRequired: 1, Kind: bundle.KindProduction},
			2: {ID: 2, DurationMin: 60, TeamName: "M1", WorkersRequired: 1, Kind: bundle.KindProduction},
		},
		QualityLinks: map[int]*bundle.QualityLink{
			1: {PrimaryID: 1, QualityID: 101, QualityDuration: 30, QualityWorkers: 1},
		},
		Precedence: []bundle.PrecedenceEdge{
			{First: 1, Second: 2, Relation: bundle.RelationFinishBeforeStart},
		},
	}
	b.Tasks[101] = &bundle.Task{ID: 101, DurationMin: 30, WorkersRequired: 1, Kind: bundle.KindQualityInspection, InspectsTaskID: 1}
	return b
}

func TestBuildEmitsQualityInterpositionEdges(t *testing.T) {
	builder := NewBuilder(cache.NewInMemory())
	dag, err := builder.Build(bundleWithQualityInterposition())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	succ := dag.Successors(1)
	if len(succ) != 1 || succ[0] != 101 {
		t.Fatalf("task 1 successors = %v, want [101]", succ)
	}
	succ = dag.Successors(101)
	if len(succ) != 1 || succ[0] != 2 {
		t.Fatalf("task 101 successors = %v, want [2]", succ)
	}

	var sawFinishEquals, sawFinishBefore bool
	for _, e := range dag.Edges {
		if e.First == 1 && e.Second == 101 {
			sawFinishEquals = e.Relation == bundle.RelationFinishEqualsStart
		}
		if e.First == 101 && e.Second == 2 {
			sawFinishBefore = e.Relation == bundle.RelationFinishBeforeStart
		}
	}
	if !sawFinishEquals {
		t.Error("expected 1->101 edge with FinishEqualsStart")
	}
	if !sawFinishBefore {
		t.Error("expected 101->2 edge carrying the base precedence's relation (FinishBeforeStart)")
	}
}

func TestBuildDetectsCycle(t *testing.T) {
	b := &bundle.DataBundle{
		Tasks: map[int]*bundle.Task{
			1: {ID: 1, DurationMin: 60, TeamName: "M1", WorkersRequired: 1, Kind: bundle.KindProduction},
			2: {ID: 2, DurationMin: 60, TeamName: "M1", WorkersRequired: 1, Kind: bundle.KindProduction},
		},
		Precedence: []bundle.PrecedenceEdge{
			{First: 1, Second: 2, Relation: bundle.RelationFinishBeforeStart},
			{First: 2, Second: 1, Relation: bundle.RelationFinishBeforeStart},
		},
	}
	builder := NewBuilder(cache.NewInMemory())
	if _, err := builder.Build(b); err == nil {
		t.Fatal("expected a cycle-detection error")
	}
}

func TestBuildDetectsDanglingReference(t *testing.T) {
	b := &bundle.DataBundle{
		Tasks: map[int]*bundle.Task{
			1: {ID: 1, DurationMin: 60, TeamName: "M1", WorkersRequired: 1, Kind: bundle.KindProduction},
		},
		Precedence: []bundle.PrecedenceEdge{
			{First: 1, Second: 999, Relation: bundle.RelationFinishBeforeStart},
		},
	}
	builder := NewBuilder(cache.NewInMemory())
	if _, err := builder.Build(b); err == nil {
		t.Fatal("expected a dangling-reference error")
	}
}

func TestBuildIsIdempotentAcrossCacheHits(t *testing.T) {
	c := cache.NewInMemory()
	builder := NewBuilder(c)
	b := bundleWithQualityInterposition()

	first, err := builder.Build(b)
	if err != nil {
		t.Fatalf("Build (cold): %v", err)
	}
	second, err := builder.Build(b)
	if err != nil {
		t.Fatalf("Build (cache hit): %v", err)
	}
	if len(first.Edges) != len(second.Edges) {
		t.Fatalf("edge count changed across cache hit: %d vs %d", len(first.Edges), len(second.Edges))
	}
}
