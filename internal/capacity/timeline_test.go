package capacity

import (
	"testing"
	"time"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
)

func teams(capacity int) map[string]*bundle.Team {
	return map[string]*bundle.Team{
		"M1": {Name: "M1", Capacity: capacity, Shifts: map[bundle.Shift]bool{bundle.Shift1: true}, Role: bundle.RoleMechanic},
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2025, time.August, 22, hour, minute, 0, 0, time.Local)
}

func TestAvailableRespectsCapacity(t *testing.T) {
	tl := New(teams(2))
	tl.Reserve("M1", 1, at(6, 0), at(7, 0), 1)

	if !tl.Available("M1", at(6, 0), at(7, 0), 1) {
		t.Error("should have room for a second worker at full overlap")
	}
	if tl.Available("M1", at(6, 0), at(7, 0), 2) {
		t.Error("should not have room for two more workers on top of one already placed")
	}
}

func TestAvailableTreatsIntervalsAsHalfOpen(t *testing.T) {
	tl := New(teams(1))
	tl.Reserve("M1", 1, at(6, 0), at(7, 0), 1)

	if !tl.Available("M1", at(7, 0), at(8, 0), 1) {
		t.Error("a task starting exactly when another ends should not count as overlapping")
	}
}

func TestAvailableUnknownTeam(t *testing.T) {
	tl := New(teams(2))
	if tl.Available("nope", at(6, 0), at(7, 0), 1) {
		t.Error("an unregistered team should never be available")
	}
}

func TestPeakConcurrentAcrossOverlappingReservations(t *testing.T) {
	tl := New(teams(3))
	tl.Reserve("M1", 1, at(6, 0), at(8, 0), 1)
	tl.Reserve("M1", 2, at(7, 0), at(9, 0), 1)
	tl.Reserve("M1", 3, at(7, 30), at(7, 45), 1)

	if got := tl.PeakConcurrent("M1"); got != 3 {
		t.Errorf("PeakConcurrent = %d, want 3 (all three overlap 07:30-07:45)", got)
	}
}

func TestCumulativeWorkerMinutes(t *testing.T) {
	tl := New(teams(2))
	tl.Reserve("M1", 1, at(6, 0), at(7, 0), 2)
	if got := tl.CumulativeWorkerMinutes("M1"); got != 120 {
		t.Errorf("CumulativeWorkerMinutes = %v, want 120", got)
	}
}

func TestResetClearsReservations(t *testing.T) {
	tl := New(teams(1))
	tl.Reserve("M1", 1, at(6, 0), at(7, 0), 1)
	tl.Reset()
	if !tl.Available("M1", at(6, 0), at(7, 0), 1) {
		t.Error("Reset should clear prior reservations")
	}
	if got := tl.PeakConcurrent("M1"); got != 0 {
		t.Errorf("PeakConcurrent after Reset = %d, want 0", got)
	}
}
