package engine

import (
	"time"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
)

// UnscheduledLatenessSentinel is the lateness reported for a product with no
// placed tasks (spec.md §4.6). Lateness itself signals that case with a
// false second result; metrics.Lateness and report assembly substitute this
// value.
const UnscheduledLatenessSentinel = 999_999

// Lateness implements lateness(product) (spec.md §4.6): the projected
// completion — the latest end among the product's placed tasks — minus its
// delivery date, in days. The bool is false when the product has no placed
// tasks, mirroring Makespan's sentinel-vs-bool split so callers can tell
// "zero lateness" from "never scheduled" without relying on a magic number.
// It lives here, not in the metrics package, for the same reason Makespan
// does: scenario 3 searches against it directly every iteration.
func Lateness(product string, sch *Schedule, b *bundle.DataBundle) (float64, bool) {
	p := b.Products[product]
	if p == nil {
		return 0, false
	}
	var maxEnd time.Time
	found := false
	for _, id := range sortedPlacementIDs(sch) {
		pl := sch.Placements[id]
		if pl.Product != product {
			continue
		}
		found = true
		if pl.End.After(maxEnd) {
			maxEnd = pl.End
		}
	}
	if !found {
		return 0, false
	}
	return maxEnd.Sub(p.Delivery).Hours() / 24.0, true
}

// MaxAndTotalLateness aggregates Lateness across every product: the largest
// per-product lateness, floored at zero (so it is 0 when every product is
// early or on time), and the sum of positive per-product lateness. This is
// scenario 3's search objective (spec.md §4.9 Phase 1 step 3) and the
// authoritative source for the per-scenario summary's max/total lateness
// (spec.md §6 Output); both scenario 3 and report assembly call this instead
// of recomputing the loop themselves.
func MaxAndTotalLateness(sch *Schedule, b *bundle.DataBundle) (maxLateness, totalLateness float64) {
	for _, name := range b.SortedProductNames() {
		l, ok := Lateness(name, sch, b)
		if !ok {
			continue
		}
		if l > maxLateness {
			maxLateness = l
		}
		if l > 0 {
			totalLateness += l
		}
	}
	return maxLateness, totalLateness
}
