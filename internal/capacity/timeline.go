// Package capacity implements the Capacity Timeline (spec.md §4.4):
// per-team, time-indexed mechanic-count usage, answering "can team T host N
// workers from t1 to t2?" via an event sweep rather than the reference's
// per-minute scan (spec.md §9 design note), which is semantically
// equivalent but O(n log n) instead of O(duration).
package capacity

import (
	"sort"
	"time"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
)

// Reservation is one placed, capacity-consuming interval on a team's
// timeline.
type Reservation struct {
	TaskID  int
	Start   time.Time
	End     time.Time
	Workers int
}

// Timeline tracks every team's placed intervals and answers availability
// and load-balancing queries against them.
type Timeline struct {
	teams  map[string]*bundle.Team
	byTeam map[string][]Reservation
}

// New builds an empty Timeline over the given team roster.
func New(teams map[string]*bundle.Team) *Timeline {
	return &Timeline{
		teams:  teams,
		byTeam: make(map[string][]Reservation),
	}
}

// Reset clears every reservation, as happens between scheduling passes
// (spec.md §3 Lifecycle: "the schedule is rebuilt from scratch per scenario
// attempt").
func (tl *Timeline) Reset() {
	tl.byTeam = make(map[string][]Reservation)
}

// Available reports whether team can additionally host workersNeeded workers
// across the whole half-open interval [start, end) without exceeding its
// capacity at any instant in that span.
func (tl *Timeline) Available(team string, start, end time.Time, workersNeeded int) bool {
	t, ok := tl.teams[team]
	if !ok {
		return false
	}
	peak := tl.peakConcurrent(team, start, end)
	return peak+workersNeeded <= t.Capacity
}

// peakConcurrent returns the maximum sum of worker counts, among
// reservations already on team's timeline, at any single instant within
// [start, end).
func (tl *Timeline) peakConcurrent(team string, start, end time.Time) int {
	type event struct {
		at    time.Time
		delta int
	}
	var events []event
	for _, r := range tl.byTeam[team] {
		if !r.Start.Before(end) || !r.End.After(start) {
			continue
		}
		clipStart := r.Start
		if clipStart.Before(start) {
			clipStart = start
		}
		clipEnd := r.End
		if clipEnd.After(end) {
			clipEnd = end
		}
		if !clipEnd.After(clipStart) {
			continue
		}
		events = append(events, event{at: clipStart, delta: r.Workers})
		events = append(events, event{at: clipEnd, delta: -r.Workers})
	}
	if len(events) == 0 {
		return 0
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].at.Equal(events[j].at) {
			// Process end-events before start-events at the same instant so
			// an interval that ends exactly when another begins does not
			// count as overlapping (half-open intervals).
			return events[i].delta < events[j].delta
		}
		return events[i].at.Before(events[j].at)
	})
	running, peak := 0, 0
	for _, e := range events {
		running += e.delta
		if running > peak {
			peak = running
		}
	}
	return peak
}

// Reserve commits a placement to team's timeline.
func (tl *Timeline) Reserve(team string, taskID int, start, end time.Time, workers int) {
	tl.byTeam[team] = append(tl.byTeam[team], Reservation{TaskID: taskID, Start: start, End: end, Workers: workers})
}

// CumulativeWorkerMinutes returns the total worker-minutes reserved on
// team's timeline so far, used by the load-balanced quality-team selector.
func (tl *Timeline) CumulativeWorkerMinutes(team string) float64 {
	total := 0.0
	for _, r := range tl.byTeam[team] {
		total += r.End.Sub(r.Start).Minutes() * float64(r.Workers)
	}
	return total
}

// Reservations returns every reservation placed on team's timeline, for
// metrics/utilization computation.
func (tl *Timeline) Reservations(team string) []Reservation {
	return tl.byTeam[team]
}

// PeakConcurrent exposes peakConcurrent over a team's entire timeline span,
// used by scenario 3's bottleneck-team detection (capacity demand >= 90%).
func (tl *Timeline) PeakConcurrent(team string) int {
	reservations := tl.byTeam[team]
	if len(reservations) == 0 {
		return 0
	}
	minStart, maxEnd := reservations[0].Start, reservations[0].End
	for _, r := range reservations[1:] {
		if r.Start.Before(minStart) {
			minStart = r.Start
		}
		if r.End.After(maxEnd) {
			maxEnd = r.End
		}
	}
	return tl.peakConcurrent(team, minStart, maxEnd)
}
