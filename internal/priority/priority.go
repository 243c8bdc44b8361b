// Package priority implements the Critical Path & Priority component
// (spec.md §4.3): memoized critical-path length, per-task priority score,
// and slack computation used by the list scheduler to order ready tasks.
package priority

import (
	"math"
	"time"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
	"github.com/qlp-hq/production-scheduler/internal/graph"
)

// Special-cased priority overrides for non-production task kinds (lower is
// higher priority).
const (
	priorityLatePart          = -2000
	priorityQualityInspection = -1000
	priorityRework            = -500
	priorityNoProduct         = 999_999
)

const safetyMarginDays = 2
const hoursPerWorkingDay = 8

// Calculator computes critical path lengths, priorities, and slack over a
// fixed effective DAG and bundle. It memoizes critical path lengths for the
// lifetime of the calculator, mirroring the reference's
// `_critical_path_cache`.
type Calculator struct {
	dag    *graph.EffectiveDAG
	bundle *bundle.DataBundle
	now    time.Time

	cplCache map[int]int
}

// NewCalculator builds a Calculator. now is the instant priority scores are
// computed relative to (the scheduler's starting instant).
func NewCalculator(dag *graph.EffectiveDAG, b *bundle.DataBundle, now time.Time) *Calculator {
	return &Calculator{dag: dag, bundle: b, now: now, cplCache: make(map[int]int)}
}

// CriticalPathLength returns the memoized longest duration-sum along any
// directed path starting at t, counting t's own duration.
func (c *Calculator) CriticalPathLength(t int) int {
	if v, ok := c.cplCache[t]; ok {
		return v
	}
	task := c.bundle.Tasks[t]
	if task == nil {
		return 0
	}
	best := 0
	for _, succ := range c.dag.Successors(t) {
		if l := c.CriticalPathLength(succ); l > best {
			best = l
		}
	}
	v := task.DurationMin + best
	c.cplCache[t] = v
	return v
}

// ResolveProduct implements TaskToProduct (spec.md §3): explicit/inferred
// product membership wins; for quality tasks, the product of the primary
// (or of the rework task, for rework-synthesized quality); otherwise the
// first product (by name) whose id-set or id-range contains the task.
func (c *Calculator) ResolveProduct(t int) (string, bool) {
	return resolveProduct(c.bundle, c.dag, t)
}

func resolveProduct(b *bundle.DataBundle, dag *graph.EffectiveDAG, t int) (string, bool) {
	for _, name := range b.SortedProductNames() {
		p := b.Products[name]
		if p.HasTask(t) {
			return name, true
		}
	}
	task := b.Tasks[t]
	if task != nil && task.Kind == bundle.KindQualityInspection && task.InspectsTaskID != 0 {
		if name, ok := resolveProduct(b, dag, task.InspectsTaskID); ok {
			return name, true
		}
	}
	for _, name := range b.SortedProductNames() {
		p := b.Products[name]
		if p.ContainsByRange(t) {
			return name, true
		}
	}
	return "", false
}

// Priority computes the task priority score (lower = higher priority)
// described in spec.md §4.3.
func (c *Calculator) Priority(t int) float64 {
	task := c.bundle.Tasks[t]
	if task == nil {
		return priorityNoProduct
	}

	switch task.Kind {
	case bundle.KindLatePart:
		return priorityLatePart
	case bundle.KindQualityInspection:
		return priorityQualityInspection
	case bundle.KindRework:
		return priorityRework
	}

	productName, ok := c.ResolveProduct(t)
	if !ok {
		return priorityNoProduct
	}
	product := c.bundle.Products[productName]
	if product == nil || product.Delivery.IsZero() {
		return priorityNoProduct
	}

	// spec.md §4.3 and the reference's calculate_task_priority use whole
	// calendar days (`(delivery - now).days`), not a fractional day count;
	// Go's timedelta-equivalent here is a floor, matching Python's
	// floor-toward-negative-infinity timedelta.days for deliveries already
	// in the past.
	dTD := math.Floor(product.Delivery.Sub(c.now).Hours() / 24.0)
	cpl := c.CriticalPathLength(t)
	outDeg := c.dag.OutDegree(t)

	score := (100 - dTD) * 10
	score += float64(10_000-cpl) * 5
	score += float64(100-outDeg) * 3
	score += (100 - float64(task.DurationMin)/10) * 2
	return score
}

// Slack computes the slack hours for a task once scheduled: the surplus
// between its scheduled start and the latest start that still meets its
// product's delivery date, given the summed duration of all its transitive
// successors, an 8-hour working day, and a 2-day safety margin.
func (c *Calculator) Slack(t int, scheduledStart time.Time) (float64, bool) {
	productName, ok := c.ResolveProduct(t)
	if !ok {
		return 0, false
	}
	product := c.bundle.Products[productName]
	if product == nil || product.Delivery.IsZero() {
		return 0, false
	}

	successors := c.transitiveSuccessors(t)
	totalDurationMin := 0
	for succ := range successors {
		if task := c.bundle.Tasks[succ]; task != nil {
			totalDurationMin += task.DurationMin
		}
	}

	bufferDays := float64(totalDurationMin) / 60.0 / hoursPerWorkingDay
	latestStart := product.Delivery.Add(-time.Duration(bufferDays*24) * time.Hour).Add(-safetyMarginDays * 24 * time.Hour)

	slackHours := latestStart.Sub(scheduledStart).Hours()
	return slackHours, true
}

func (c *Calculator) transitiveSuccessors(t int) map[int]bool {
	visited := make(map[int]bool)
	var walk func(int)
	walk = func(id int) {
		for _, succ := range c.dag.Successors(id) {
			if !visited[succ] {
				visited[succ] = true
				walk(succ)
			}
		}
	}
	walk(t)
	return visited
}
