package engine

import (
	"time"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
	"github.com/qlp-hq/production-scheduler/internal/calendar"
)

// UnscheduledMakespanSentinel is returned by Makespan when not every task
// placed (spec.md §4.6). Scenarios 2 and 3 search against this value
// directly, so it lives alongside the scheduler rather than in the metrics
// package, which only re-exports it for callers assembling a report.
const UnscheduledMakespanSentinel = 1_000_000

// Makespan implements makespan() (spec.md §4.6): the count of distinct
// calendar days in [min start, max end] on which at least one product has a
// working day — the union-of-working-days definition, taken literally per
// spec.md §9's open question.
func Makespan(sch *Schedule, b *bundle.DataBundle, cal *calendar.Calendar) int {
	if len(sch.Failed) > 0 || len(sch.Placements) < len(b.Tasks) {
		return UnscheduledMakespanSentinel
	}
	if len(sch.Placements) == 0 {
		return 0
	}
	minStart, maxEnd := span(sch)
	days := 0
	for d := truncateDay(minStart); !d.After(truncateDay(maxEnd)); d = d.AddDate(0, 0, 1) {
		for _, name := range b.SortedProductNames() {
			if cal.IsWorkingDay(d, name) {
				days++
				break
			}
		}
	}
	return days
}

func span(sch *Schedule) (time.Time, time.Time) {
	var minStart, maxEnd time.Time
	first := true
	for _, id := range sortedPlacementIDs(sch) {
		p := sch.Placements[id]
		if first {
			minStart, maxEnd = p.Start, p.End
			first = false
			continue
		}
		if p.Start.Before(minStart) {
			minStart = p.Start
		}
		if p.End.After(maxEnd) {
			maxEnd = p.End
		}
	}
	return minStart, maxEnd
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
