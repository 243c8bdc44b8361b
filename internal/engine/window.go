package engine

import (
	"sort"
	"time"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
	"github.com/qlp-hq/production-scheduler/internal/capacity"
)

// maxWindowScanDays bounds how far into the future next_window will search
// before giving up, protecting against an unschedulable task (e.g. a team
// that works no shift at all, caught earlier) looping forever.
const maxWindowScanDays = 3650

var shiftOrder = [3]bundle.Shift{bundle.Shift1, bundle.Shift2, bundle.Shift3}

// nextWindow implements next_window (spec.md §4.5.e): scans forward from
// earliest, shift by shift and day by day, for the first instant whose
// subsequent duration lies entirely inside one working shift, on a working
// day, with sufficient spare team capacity throughout — found via an
// event-sweep over the team's existing reservations rather than a
// minute-by-minute scan (spec.md §9 design note).
func (s *Scheduler) nextWindow(team string, earliest time.Time, workers, durationMin int, product string) (start, end time.Time, shift bundle.Shift, ok bool) {
	t := s.bundle.Teams[team]
	if t == nil {
		return time.Time{}, time.Time{}, "", false
	}
	duration := time.Duration(durationMin) * time.Minute
	day := initialDayFor(earliest)

	for i := 0; i < maxWindowScanDays; i++ {
		for _, sh := range shiftOrder {
			if !t.WorksShift(sh) {
				continue
			}
			shiftStart, shiftEnd := s.calendar.ShiftBounds(sh, day)
			if shiftEnd.Before(earliest) || shiftEnd.Equal(earliest) {
				continue
			}
			if !s.calendar.IsWorkingDay(day, product) {
				continue
			}
			candidateFloor := shiftStart
			if earliest.After(candidateFloor) {
				candidateFloor = earliest
			}
			if found, ok := nextWindowInShift(s.timeline, team, shiftStart, shiftEnd, candidateFloor, duration, workers); ok {
				return found, found.Add(duration), sh, true
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return time.Time{}, time.Time{}, "", false
}

// nextWindowInShift finds the earliest instant in [floor, shiftEnd) at which
// a duration-long reservation of workers workers fits without exceeding
// team capacity, trying the floor itself plus every existing reservation end
// boundary inside the shift as candidate start points (the event-sweep
// equivalent of a minute scan).
func nextWindowInShift(tl *capacity.Timeline, team string, shiftStart, shiftEnd, floor time.Time, duration time.Duration, workers int) (time.Time, bool) {
	candidates := []time.Time{floor}
	for _, r := range tl.Reservations(team) {
		if r.End.After(floor) && r.End.Before(shiftEnd) {
			candidates = append(candidates, r.End)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Before(candidates[j]) })

	for _, c := range candidates {
		if c.Before(shiftStart) {
			c = shiftStart
		}
		if c.Add(duration).After(shiftEnd) {
			continue
		}
		if tl.Available(team, c, c.Add(duration), workers) {
			return c, true
		}
	}
	return time.Time{}, false
}

// initialDayFor returns the calendar day to start the shift scan from: an
// instant before 06:00 may still fall inside the previous day's Shift3
// (23:00-06:00), so the scan must start one day earlier to consider it.
func initialDayFor(instant time.Time) time.Time {
	d := instant
	if instant.Hour() < 6 {
		d = instant.AddDate(0, 0, -1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}
