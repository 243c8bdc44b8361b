package graph

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
	"github.com/qlp-hq/production-scheduler/internal/cache"
	"github.com/qlp-hq/production-scheduler/internal/logger"
	"github.com/qlp-hq/production-scheduler/internal/schederr"
	"go.uber.org/zap"
)

// dagCacheTTL bounds how long a cached effective DAG survives; the builder
// still recomputes immediately whenever the bundle's content hash changes,
// so this is only a backstop against unbounded growth.
const dagCacheTTL = 24 * time.Hour

// serializedDAG is the cacheable subset of an EffectiveDAG: the edge list
// and the synthetic-quality-id map. Forward/Reverse adjacency and the Tasks
// lookup are cheap to rebuild from the current bundle on a cache hit.
type serializedDAG struct {
	Edges      []Edge
	SyntheticQ map[int]int
}

// Builder transforms raw precedence + quality + late-part + rework tables
// into the effective DAG (spec.md §4.2). Its output is cached and
// invalidated only when the source bundle changes, mirroring the reference
// scheduler's `_dynamic_constraints_cache`.
type Builder struct {
	cache cache.Cache
}

// NewBuilder constructs a Builder backed by the given cache (a Redis-backed
// cache in production, an in-memory fallback in tests — see internal/cache).
func NewBuilder(c cache.Cache) *Builder {
	return &Builder{cache: c}
}

// Build runs the four-step synthesis in spec.md §4.2 and returns the
// effective DAG, or a fatal *schederr.Error (CycleDetected /
// DanglingReference) if validation fails.
func (b *Builder) Build(bnd *bundle.DataBundle) (*EffectiveDAG, error) {
	key := cache.KeyForBundle(bnd)
	ctx := context.Background()
	if b.cache != nil {
		if raw, ok := b.cache.Get(ctx, key); ok {
			var sd serializedDAG
			if err := json.Unmarshal(raw, &sd); err == nil {
				dag := rehydrate(bnd, sd)
				logger.WithComponent("graph-builder").Debug("effective DAG cache hit", zap.String("key", key))
				return dag, nil
			}
			logger.WithComponent("graph-builder").Warn("discarding corrupt cached DAG entry", zap.String("key", key))
		}
	}

	dag := b.buildUncached(bnd)

	if err := Validate(dag); err != nil {
		return nil, err
	}

	if b.cache != nil {
		if raw, err := json.Marshal(serializedDAG{Edges: dag.Edges, SyntheticQ: dag.SyntheticQ}); err == nil {
			b.cache.Set(ctx, key, raw, dagCacheTTL)
		}
	}
	return dag, nil
}

// rehydrate rebuilds forward/reverse adjacency and re-attaches the current
// bundle's task lookup around a cached edge list.
func rehydrate(bnd *bundle.DataBundle, sd serializedDAG) *EffectiveDAG {
	dag := &EffectiveDAG{
		Edges:      sd.Edges,
		Forward:    make(map[int][]Edge),
		Reverse:    make(map[int][]Edge),
		Tasks:      bnd.Tasks,
		SyntheticQ: sd.SyntheticQ,
	}
	for _, e := range sd.Edges {
		dag.Forward[e.First] = append(dag.Forward[e.First], e)
		dag.Reverse[e.Second] = append(dag.Reverse[e.Second], e)
	}
	return dag
}

func (b *Builder) buildUncached(bnd *bundle.DataBundle) *EffectiveDAG {
	dag := &EffectiveDAG{
		Forward:    make(map[int][]Edge),
		Reverse:    make(map[int][]Edge),
		Tasks:      bnd.Tasks,
		SyntheticQ: bnd.ReworkQuality,
	}

	emitted := make(map[[2]int]bool) // (first, second) pairs already emitted, for idempotence within this build

	emit := func(e Edge) {
		key := [2]int{e.First, e.Second}
		if emitted[key] {
			return
		}
		emitted[key] = true
		dag.Edges = append(dag.Edges, e)
		dag.Forward[e.First] = append(dag.Forward[e.First], e)
		dag.Reverse[e.Second] = append(dag.Reverse[e.Second], e)
	}

	// Step 1: quality interposition on base edges.
	for _, pe := range bnd.Precedence {
		if link, ok := bnd.QualityLinks[pe.First]; ok {
			emit(Edge{First: pe.First, Second: link.QualityID, Relation: bundle.RelationFinishEqualsStart, Source: SourceQualityInterpose})
			emit(Edge{First: link.QualityID, Second: pe.Second, Relation: pe.Relation, Source: SourceBase})
		} else {
			emit(Edge{First: pe.First, Second: pe.Second, Relation: pe.Relation, Source: SourceBase})
		}
	}

	// Step 2: late-part edges, verbatim, FinishBeforeStart.
	for _, lp := range bnd.LatePartEdges {
		emit(Edge{First: lp.LatePartID, Second: lp.DependentID, Relation: bundle.RelationFinishBeforeStart, Source: SourceLatePart, ProductLine: lp.ProductLine})
	}

	// Step 3: rework edges with quality. Quality is synthesized for every
	// rework task at load time (bundle.ReworkQuality — spec.md §9 Open
	// Question: do not replicate the reference's collision-prone
	// `primary+10000` offset).
	for _, rw := range bnd.ReworkEdges {
		qID := bnd.ReworkQuality[rw.ReworkID]
		emit(Edge{First: rw.ReworkID, Second: qID, Relation: bundle.RelationFinishEqualsStart, Source: SourceRework, ProductLine: rw.ProductLine})
		emit(Edge{First: qID, Second: rw.DependentID, Relation: rw.Relation, Source: SourceRework, ProductLine: rw.ProductLine})
	}

	// Step 4: residual quality edges — any primary->quality link not
	// already emitted by step 1 (i.e. the primary never appeared as a base
	// precedence First).
	for primaryID, link := range bnd.QualityLinks {
		key := [2]int{primaryID, link.QualityID}
		if !emitted[key] {
			emit(Edge{First: primaryID, Second: link.QualityID, Relation: bundle.RelationFinishEqualsStart, Source: SourceResidualQuality})
		}
	}

	return dag
}

// Validate performs validate_dag (spec.md §4.2): DFS-based cycle detection
// with path reporting, a dangling-reference check, and reachability
// warnings. Only cycles and missing-task references are fatal.
func Validate(dag *EffectiveDAG) error {
	for _, e := range dag.Edges {
		if _, ok := dag.Tasks[e.First]; !ok {
			return schederr.DanglingReference(e.First)
		}
		if _, ok := dag.Tasks[e.Second]; !ok {
			return schederr.DanglingReference(e.Second)
		}
	}

	if path, ok := detectCycle(dag); ok {
		err := schederr.CycleDetected(path)
		logger.LogCriticalError("validate_dag", err, map[string]interface{}{"path": path})
		return err
	}

	// Reachability warning: tasks unreachable from any root.
	reachable := make(map[int]bool)
	var queue []int
	for _, r := range dag.Roots() {
		reachable[r] = true
		queue = append(queue, r)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, succ := range dag.Successors(cur) {
			if !reachable[succ] {
				reachable[succ] = true
				queue = append(queue, succ)
			}
		}
	}
	for id := range dag.Tasks {
		if !reachable[id] {
			logger.WithComponent("graph-builder").Warn("task unreachable from any root", zap.Int("task_id", id))
		}
	}

	return nil
}

// detectCycle runs a path-tracking DFS over the effective DAG and reports
// the cycle, if any, as an ordered list of task ids.
func detectCycle(dag *EffectiveDAG) ([]int, bool) {
	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[int]int, len(dag.Tasks))
	var path []int

	var dfs func(int) ([]int, bool)
	dfs = func(id int) ([]int, bool) {
		state[id] = visiting
		path = append(path, id)

		for _, succ := range dag.Successors(id) {
			switch state[succ] {
			case visiting:
				start := 0
				for i, v := range path {
					if v == succ {
						start = i
						break
					}
				}
				cyclePath := append(append([]int{}, path[start:]...), succ)
				return cyclePath, true
			case unvisited:
				if cyc, found := dfs(succ); found {
					return cyc, true
				}
			}
		}

		path = path[:len(path)-1]
		state[id] = visited
		return nil, false
	}

	// Iterate task ids in ascending order for deterministic reporting.
	for _, id := range sortedTaskIDs(dag.Tasks) {
		if state[id] == unvisited {
			if cyc, found := dfs(id); found {
				return cyc, true
			}
		}
	}
	return nil, false
}

func sortedTaskIDs(tasks map[int]*bundle.Task) []int {
	ids := make([]int, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
