package calendar

import (
	"testing"
	"time"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
)

func testBundle() *bundle.DataBundle {
	return &bundle.DataBundle{
		Teams: map[string]*bundle.Team{
			"M1": {Name: "M1", Capacity: 2, Shifts: map[bundle.Shift]bool{bundle.Shift1: true}, Role: bundle.RoleMechanic},
		},
		Products: map[string]*bundle.Product{
			"P": {Name: "P", Holidays: map[string]bool{"2025-09-01": true}},
		},
		ShiftHours: bundle.DefaultShiftHours(),
	}
}

func TestIsWorkingDaySkipsWeekendsAndHolidays(t *testing.T) {
	cal := New(testBundle())

	friday := time.Date(2025, time.August, 22, 0, 0, 0, 0, time.Local)
	if !cal.IsWorkingDay(friday, "P") {
		t.Error("Friday should be a working day")
	}
	saturday := friday.AddDate(0, 0, 1)
	if cal.IsWorkingDay(saturday, "P") {
		t.Error("Saturday should not be a working day")
	}
	sunday := friday.AddDate(0, 0, 2)
	if cal.IsWorkingDay(sunday, "P") {
		t.Error("Sunday should not be a working day")
	}
	holiday := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.Local)
	if cal.IsWorkingDay(holiday, "P") {
		t.Error("declared product holiday should not be a working day")
	}
}

func TestShiftContainingHandlesMidnightWrap(t *testing.T) {
	cal := New(testBundle())

	cases := []struct {
		hour, minute int
		want         bundle.Shift
	}{
		{6, 0, bundle.Shift1},
		{14, 0, bundle.Shift1},
		{14, 30, bundle.Shift2},
		{22, 59, bundle.Shift2},
		{23, 0, bundle.Shift3},
		{2, 0, bundle.Shift3},
		{5, 59, bundle.Shift3},
	}
	for _, c := range cases {
		instant := time.Date(2025, time.August, 22, c.hour, c.minute, 0, 0, time.Local)
		got, ok := cal.ShiftContaining(instant)
		if !ok {
			t.Errorf("%02d:%02d: expected a containing shift", c.hour, c.minute)
			continue
		}
		if got != c.want {
			t.Errorf("%02d:%02d: got %v, want %v", c.hour, c.minute, got, c.want)
		}
	}
}

func TestShiftBoundsWrapsToNextDay(t *testing.T) {
	cal := New(testBundle())
	day := time.Date(2025, time.August, 22, 0, 0, 0, 0, time.Local)

	start, end := cal.ShiftBounds(bundle.Shift3, day)
	if start.Hour() != 23 || start.Day() != 22 {
		t.Errorf("shift3 start = %v, want 23:00 on the 22nd", start)
	}
	if end.Hour() != 6 || end.Day() != 23 {
		t.Errorf("shift3 end = %v, want 06:00 on the 23rd", end)
	}
}

func TestTeamWorksShift(t *testing.T) {
	cal := New(testBundle())
	if !cal.TeamWorksShift("M1", bundle.Shift1) {
		t.Error("M1 should work shift1")
	}
	if cal.TeamWorksShift("M1", bundle.Shift2) {
		t.Error("M1 should not work shift2")
	}
	if cal.TeamWorksShift("unknown-team", bundle.Shift1) {
		t.Error("an unknown team should not work any shift")
	}
}
