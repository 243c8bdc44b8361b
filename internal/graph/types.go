package graph

import (
	"sort"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
)

// EdgeSource tags which raw table an effective-DAG edge was synthesized
// from, for diagnostics. The scheduler does not read it; the LatePart
// on-dock rule keys off the bundle's late-part edges instead.
type EdgeSource string

const (
	SourceBase             EdgeSource = "base"
	SourceLatePart         EdgeSource = "late_part"
	SourceRework           EdgeSource = "rework"
	SourceQualityInterpose EdgeSource = "quality_interpose"
	SourceResidualQuality  EdgeSource = "residual_quality"
)

// Edge is one dependency in the effective DAG, after quality interposition,
// late-part, and rework synthesis.
type Edge struct {
	First       int
	Second      int
	Relation    bundle.Relation
	Source      EdgeSource
	ProductLine string // set for LatePart/Rework edges with an explicit product
}

// EffectiveDAG is the transformed dependency graph spec.md §4.2 describes:
// an edge list plus forward and reverse adjacency, immutable once built.
type EffectiveDAG struct {
	Edges       []Edge
	Forward     map[int][]Edge // keyed by First
	Reverse     map[int][]Edge // keyed by Second
	Tasks       map[int]*bundle.Task
	SyntheticQ  map[int]int // reworkTaskID -> synthesized quality task id
}

// Successors returns the task ids directly depending on t (t -> successor).
func (d *EffectiveDAG) Successors(t int) []int {
	edges := d.Forward[t]
	out := make([]int, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.Second)
	}
	return out
}

// Predecessors returns the task ids t directly depends on.
func (d *EffectiveDAG) Predecessors(t int) []int {
	edges := d.Reverse[t]
	out := make([]int, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.First)
	}
	return out
}

// InDegree returns the number of direct predecessors of t.
func (d *EffectiveDAG) InDegree(t int) int { return len(d.Reverse[t]) }

// OutDegree returns the number of direct successors of t.
func (d *EffectiveDAG) OutDegree(t int) int { return len(d.Forward[t]) }

// Roots returns every task id with no incoming edge, in ascending order.
func (d *EffectiveDAG) Roots() []int {
	var roots []int
	for id := range d.Tasks {
		if d.InDegree(id) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Ints(roots)
	return roots
}
