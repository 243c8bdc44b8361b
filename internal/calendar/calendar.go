// Package calendar implements the Calendar & Shift Model (spec.md §4.1): a
// pure function of loaded calendars, with no mutation, deciding whether a
// given instant falls inside a working shift for a team on a product's
// calendar.
package calendar

import (
	"time"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
)

// Calendar answers working-day, shift-containment, and team/shift
// membership questions against loaded product holidays and team shift
// rosters.
type Calendar struct {
	bundle *bundle.DataBundle
}

// New builds a Calendar view over a loaded data bundle.
func New(b *bundle.DataBundle) *Calendar {
	return &Calendar{bundle: b}
}

// IsWorkingDay reports whether date is a working day for product: false on
// Saturdays, Sundays, and the product's holidays; true otherwise.
func (c *Calendar) IsWorkingDay(date time.Time, product string) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	if p, ok := c.bundle.Products[product]; ok {
		if p.Holidays[date.Format("2006-01-02")] {
			return false
		}
	}
	return true
}

// ShiftContaining returns the shift whose time-of-day window contains
// instant, by time-of-day boundaries alone: a 23:00-06:00 instant maps to
// Shift3 regardless of calendar day.
func (c *Calendar) ShiftContaining(instant time.Time) (bundle.Shift, bool) {
	tod := timeOfDay(instant)
	for _, s := range []bundle.Shift{bundle.Shift1, bundle.Shift2, bundle.Shift3} {
		win, ok := c.bundle.ShiftHours[s]
		if !ok {
			continue
		}
		if windowContains(win, tod) {
			return s, true
		}
	}
	return "", false
}

// TeamWorksShift reports whether team works the given shift.
func (c *Calendar) TeamWorksShift(team string, s bundle.Shift) bool {
	t, ok := c.bundle.Teams[team]
	if !ok {
		return false
	}
	return t.WorksShift(s)
}

// ShiftWindow returns the configured window for a shift.
func (c *Calendar) ShiftWindow(s bundle.Shift) (bundle.ShiftWindow, bool) {
	w, ok := c.bundle.ShiftHours[s]
	return w, ok
}

// ShiftBounds returns the absolute start/end instants of the occurrence of
// shift s that begins on day's calendar date, handling the midnight wrap of
// Shift3 (whose end falls on the following day).
func (c *Calendar) ShiftBounds(s bundle.Shift, day time.Time) (time.Time, time.Time) {
	win := c.bundle.ShiftHours[s]
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	start := dayStart.Add(win.Start)
	var end time.Time
	if win.End <= win.Start {
		// Wraps midnight: the end falls on the next calendar day.
		end = dayStart.AddDate(0, 0, 1).Add(win.End)
	} else {
		end = dayStart.Add(win.End)
	}
	return start, end
}

func timeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
}

func windowContains(w bundle.ShiftWindow, tod time.Duration) bool {
	if w.End <= w.Start {
		// Wraps midnight: [Start, 24h) U [0, End)
		return tod >= w.Start || tod < w.End
	}
	return tod >= w.Start && tod < w.End
}
