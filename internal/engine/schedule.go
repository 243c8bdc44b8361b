package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
	"github.com/qlp-hq/production-scheduler/internal/capacity"
)

// Placement is a task's immutable, resolved slot once placed (spec.md §3
// "Scheduled placement").
type Placement struct {
	TaskID  int          `json:"task_id"`
	Team    string       `json:"team"`
	Shift   bundle.Shift `json:"shift"`
	Product string       `json:"product"`
	Start   time.Time    `json:"start"`
	End     time.Time    `json:"end"`
}

// Schedule is the outcome of one scheduler pass: every placement that
// succeeded, plus the reason each failed task was abandoned.
type Schedule struct {
	Placements map[int]*Placement
	Failed     map[int]string

	// Timeline and Capacities are filled in by Scheduler.Run: the capacity
	// timeline the run reserved against, and a snapshot of every team's
	// capacity as it stood during the run. Scenario runs restore bnd.Teams'
	// capacities on exit (spec.md §9 scoped-acquisition discipline), so
	// these are the only record, after the fact, of what was actually in
	// effect when this schedule was produced — report assembly needs both
	// to compute per-team utilization (spec.md §4.6).
	Timeline   *capacity.Timeline
	Capacities map[string]int
}

func newSchedule() *Schedule {
	return &Schedule{
		Placements: make(map[int]*Placement),
		Failed:     make(map[int]string),
	}
}

// Row is one line of the globally prioritized, annotated task list (spec.md
// §6 Output).
type Row struct {
	PriorityRank int             `json:"priority_rank"`
	TaskID       int             `json:"task_id"`
	Kind         bundle.TaskKind `json:"kind"`
	DisplayName  string          `json:"display_name"`
	Product      string          `json:"product,omitempty"`
	Team         string          `json:"team,omitempty"`
	Shift        bundle.Shift    `json:"shift,omitempty"`
	Start        time.Time       `json:"start,omitempty"`
	End          time.Time       `json:"end,omitempty"`
	DurationMin  int             `json:"duration_min"`
	Workers      int             `json:"workers"`
	SlackHours   float64         `json:"slack_hours,omitempty"`
	HasSlack     bool            `json:"has_slack"`
	Dependencies []int           `json:"dependencies,omitempty"`
	OnDock       *time.Time      `json:"on_dock,omitempty"`
}

// ToRows renders the schedule as the annotated, priority-ranked task list
// described in spec.md §6. priorityOf supplies each task's priority score
// (ties broken by ascending task id, matching the scheduler's own ordering);
// slackOf supplies each placed task's slack, if applicable; productOf
// resolves a task's product even when it was never placed, so LatePart and
// Rework rows still get their product annotation (spec.md §6 "display name
// (with product annotation for LatePart/Rework)").
func ToRows(sch *Schedule, b *bundle.DataBundle, dag dependencyReader, priorityOf func(int) float64, slackOf func(int) (float64, bool), productOf func(int) (string, bool)) []Row {
	ids := b.SortedTaskIDs()
	sort.SliceStable(ids, func(i, j int) bool {
		pi, pj := priorityOf(ids[i]), priorityOf(ids[j])
		if pi != pj {
			return pi < pj
		}
		return ids[i] < ids[j]
	})

	onDock := make(map[int]time.Time, len(b.LatePartEdges))
	for _, lp := range b.LatePartEdges {
		onDock[lp.LatePartID] = lp.OnDockDate
	}

	var rows []Row
	for rank, id := range ids {
		task := b.Tasks[id]
		if task == nil {
			continue
		}
		product, hasProduct := productOf(id)
		row := Row{
			PriorityRank: rank + 1,
			TaskID:       id,
			Kind:         task.Kind,
			DisplayName:  displayName(task, product, hasProduct),
			Product:      product,
			DurationMin:  task.DurationMin,
			Workers:      task.WorkersRequired,
			Dependencies: dag.Predecessors(id),
		}
		if d, ok := onDock[id]; ok {
			row.OnDock = &d
		}
		if p, ok := sch.Placements[id]; ok {
			row.Product = p.Product
			row.Team = p.Team
			row.Shift = p.Shift
			row.Start = p.Start
			row.End = p.End
			if slack, ok := slackOf(id); ok {
				row.SlackHours, row.HasSlack = slack, true
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// dependencyReader is the subset of *graph.EffectiveDAG ToRows needs.
type dependencyReader interface {
	Predecessors(id int) []int
}

// displayName mirrors the reference scheduler's display-name construction
// (scheduler.py's priority-list builder): LatePart/Rework rows get the task
// id plus a parenthesized product annotation when a product resolved,
// quality inspections name the task they inspect, and everything else falls
// back to a bare task label.
func displayName(t *bundle.Task, product string, hasProduct bool) string {
	productSuffix := ""
	if hasProduct {
		productSuffix = fmt.Sprintf(" (%s)", product)
	}
	switch t.Kind {
	case bundle.KindLatePart:
		return fmt.Sprintf("Late Part %d%s", t.ID, productSuffix)
	case bundle.KindRework:
		return fmt.Sprintf("Rework %d%s", t.ID, productSuffix)
	case bundle.KindQualityInspection:
		return fmt.Sprintf("QI for Task %d", t.InspectsTaskID)
	default:
		return fmt.Sprintf("Task %d", t.ID)
	}
}

// ByTeam filters placements down to those assigned to the given team.
func (s *Schedule) ByTeam(team string) []*Placement {
	var out []*Placement
	for _, id := range sortedPlacementIDs(s) {
		p := s.Placements[id]
		if p.Team == team {
			out = append(out, p)
		}
	}
	return out
}

// OnDay filters placements to those whose interval intersects the given
// calendar day, further restricted to team when team is non-empty.
func (s *Schedule) OnDay(day time.Time, team string) []*Placement {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	var out []*Placement
	for _, id := range sortedPlacementIDs(s) {
		p := s.Placements[id]
		if team != "" && p.Team != team {
			continue
		}
		if p.Start.Before(dayEnd) && p.End.After(dayStart) {
			out = append(out, p)
		}
	}
	return out
}

func sortedPlacementIDs(s *Schedule) []int {
	ids := make([]int, 0, len(s.Placements))
	for id := range s.Placements {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// CheckInvariants re-verifies invariants 1 and 3 from spec.md §8 against a
// finished schedule: shift/calendar containment and per-team capacity at
// every reservation boundary. It does not re-check dependency relations
// (the scheduler enforces those by construction via next_window's earliest
// bound), the late-part on-dock floor, or acyclicity (checked once at DAG
// build time).
func (s *Schedule) CheckInvariants(b *bundle.DataBundle, cal calendarReader) []error {
	var errs []error
	for _, id := range sortedPlacementIDs(s) {
		p := s.Placements[id]
		shift, ok := cal.ShiftContaining(p.Start)
		if !ok || shift != p.Shift {
			errs = append(errs, &invariantError{taskID: id, msg: "placement start falls outside its recorded shift"})
			continue
		}
		start, end := cal.ShiftBounds(p.Shift, dayOf(p.Start, p.Shift))
		if p.Start.Before(start) || p.End.After(end) {
			errs = append(errs, &invariantError{taskID: id, msg: "placement spans outside its shift window"})
		}
		if !cal.IsWorkingDay(dayOf(p.Start, p.Shift), p.Product) {
			errs = append(errs, &invariantError{taskID: id, msg: "placement falls on a non-working day"})
		}
	}

	tl := capacity.New(b.Teams)
	for _, id := range sortedPlacementIDs(s) {
		p := s.Placements[id]
		task := b.Tasks[id]
		if task == nil {
			continue
		}
		tl.Reserve(p.Team, id, p.Start, p.End, task.WorkersRequired)
	}
	for _, name := range b.SortedTeamNames() {
		team := b.Teams[name]
		if tl.PeakConcurrent(name) > team.Capacity {
			errs = append(errs, &invariantError{taskID: 0, msg: "team " + name + " exceeds capacity at some instant"})
		}
	}
	return errs
}

type calendarReader interface {
	ShiftContaining(instant time.Time) (bundle.Shift, bool)
	ShiftBounds(s bundle.Shift, day time.Time) (time.Time, time.Time)
	IsWorkingDay(date time.Time, product string) bool
}

func dayOf(instant time.Time, s bundle.Shift) time.Time {
	if s == bundle.Shift3 && instant.Hour() < 6 {
		instant = instant.AddDate(0, 0, -1)
	}
	return time.Date(instant.Year(), instant.Month(), instant.Day(), 0, 0, 0, 0, instant.Location())
}

type invariantError struct {
	taskID int
	msg    string
}

func (e *invariantError) Error() string {
	return e.msg
}
