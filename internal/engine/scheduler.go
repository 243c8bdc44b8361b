// Package engine implements the resource-constrained list scheduler
// (spec.md §4.5) and the three capacity-optimization scenarios built on top
// of it (spec.md §4.7-4.9).
package engine

import (
	"container/heap"
	"math"
	"time"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
	"github.com/qlp-hq/production-scheduler/internal/calendar"
	"github.com/qlp-hq/production-scheduler/internal/capacity"
	"github.com/qlp-hq/production-scheduler/internal/graph"
	"github.com/qlp-hq/production-scheduler/internal/logger"
	"github.com/qlp-hq/production-scheduler/internal/priority"
	"github.com/qlp-hq/production-scheduler/internal/schederr"
	"go.uber.org/zap"
)

// maxRetries is the per-task placement retry budget (spec.md §4.5.b, §7).
const maxRetries = 3

// retryPriorityPenalty is added to a task's priority, per failed attempt,
// when it is re-pushed onto the ready queue (spec.md §4.5.f).
const retryPriorityPenalty = 0.1

// Config holds the knobs spec.md §6 lists under "Configuration surface"
// that affect a single scheduler run.
type Config struct {
	Start             time.Time
	LateDelayDays     float64 // default 1.0
	AllowLateDelivery bool    // affects reporting only; carried for callers
}

// Scheduler runs one resource-constrained list-scheduling pass over a fixed
// effective DAG, bundle, and calendar, against a mutable capacity timeline.
type Scheduler struct {
	bundle   *bundle.DataBundle
	dag      *graph.EffectiveDAG
	calendar *calendar.Calendar
	timeline *capacity.Timeline
	cfg      Config

	lateOnDock map[int]time.Time
}

// New builds a Scheduler. timeline should be fresh (or Reset) before Run, as
// Run mutates it with every accepted placement.
func New(dag *graph.EffectiveDAG, bnd *bundle.DataBundle, cal *calendar.Calendar, timeline *capacity.Timeline, cfg Config) *Scheduler {
	if cfg.LateDelayDays == 0 {
		cfg.LateDelayDays = 1.0
	}
	lateOnDock := make(map[int]time.Time, len(bnd.LatePartEdges))
	for _, lp := range bnd.LatePartEdges {
		lateOnDock[lp.LatePartID] = lp.OnDockDate
	}
	return &Scheduler{
		bundle:     bnd,
		dag:        dag,
		calendar:   cal,
		timeline:   timeline,
		cfg:        cfg,
		lateOnDock: lateOnDock,
	}
}

// Run executes the algorithm in spec.md §4.5 to completion and returns the
// resulting (possibly partial) schedule.
func (s *Scheduler) Run() *Schedule {
	sch := newSchedule()
	sch.Timeline = s.timeline
	sch.Capacities = make(map[string]int, len(s.bundle.Teams))
	for name, t := range s.bundle.Teams {
		sch.Capacities[name] = t.Capacity
	}
	calc := priority.NewCalculator(s.dag, s.bundle, s.cfg.Start)

	inDegree := make(map[int]int, len(s.bundle.Tasks))
	resolved := make(map[int]bool, len(s.bundle.Tasks))
	retries := make(map[int]int)

	for _, id := range s.bundle.SortedTaskIDs() {
		inDegree[id] = len(s.dag.Reverse[id])
	}

	q := &readyQueue{}
	heap.Init(q)
	for _, id := range s.bundle.SortedTaskIDs() {
		if inDegree[id] == 0 {
			heap.Push(q, readyItem{taskID: id, priority: calc.Priority(id)})
		}
	}

	resolve := func(t int) {
		resolved[t] = true
		for _, succ := range s.dag.Successors(t) {
			inDegree[succ]--
			if inDegree[succ] == 0 && !resolved[succ] {
				heap.Push(q, readyItem{taskID: succ, priority: calc.Priority(succ)})
			}
		}
	}

	for q.Len() > 0 {
		item := heap.Pop(q).(readyItem)
		t := item.taskID
		if resolved[t] {
			continue
		}
		task := s.bundle.Tasks[t]
		if task == nil {
			resolve(t)
			continue
		}

		placement, failReason := s.attemptPlace(sch, calc, t, task)
		if failReason == "" {
			sch.Placements[t] = &placement
			s.timeline.Reserve(placement.Team, t, placement.Start, placement.End, task.WorkersRequired)
			resolve(t)
			continue
		}

		retries[t]++
		if retries[t] >= maxRetries {
			sch.Failed[t] = failReason
			logger.WithTask(t).Warn("task permanently failed", zap.String("reason", failReason), zap.Int("retries", retries[t]))
			resolve(t)
			continue
		}
		heap.Push(q, readyItem{taskID: t, priority: item.priority + retryPriorityPenalty})
	}

	// Step 3: rescan for tasks whose predecessors are all resolved but which
	// never reached zero in-degree through the normal edge-walk (defensive;
	// validated DAGs should not need this).
	for progress := true; progress; {
		progress = false
		for _, id := range s.bundle.SortedTaskIDs() {
			if resolved[id] {
				continue
			}
			allResolved := true
			for _, e := range s.dag.Reverse[id] {
				if !resolved[e.First] {
					allResolved = false
					break
				}
			}
			if !allResolved {
				continue
			}
			task := s.bundle.Tasks[id]
			placement, failReason := s.attemptPlace(sch, calc, id, task)
			if failReason == "" {
				sch.Placements[id] = &placement
				s.timeline.Reserve(placement.Team, id, placement.Start, placement.End, task.WorkersRequired)
			} else {
				sch.Failed[id] = failReason
			}
			resolved[id] = true
			progress = true
		}
	}

	return sch
}

func (s *Scheduler) attemptPlace(sch *Schedule, calc *priority.Calculator, t int, task *bundle.Task) (Placement, string) {
	product, _ := calc.ResolveProduct(t)
	earliest := s.earliestFor(sch, t, task)

	if task.Kind == bundle.KindQualityInspection {
		return s.placeQuality(t, task, earliest, product)
	}

	team := s.bundle.Teams[task.TeamName]
	if team == nil {
		return Placement{}, schederr.UnschedulableTask(t, "assigned team does not exist").Error()
	}
	start, end, shift, ok := s.nextWindow(task.TeamName, earliest, task.WorkersRequired, task.DurationMin, product)
	if !ok {
		return Placement{}, schederr.UnschedulableTask(t, "no feasible window found").Error()
	}
	return Placement{TaskID: t, Team: task.TeamName, Shift: shift, Product: product, Start: start, End: end}, ""
}

func (s *Scheduler) earliestFor(sch *Schedule, t int, task *bundle.Task) time.Time {
	earliest := s.cfg.Start

	if task.Kind == bundle.KindLatePart {
		if onDock, ok := s.lateOnDock[t]; ok {
			raw := onDock.Add(time.Duration(s.cfg.LateDelayDays*24) * time.Hour)
			floored := floorTo6AM(raw)
			if floored.After(earliest) {
				earliest = floored
			}
		}
	}

	for _, e := range s.dag.Reverse[t] {
		pred, ok := sch.Placements[e.First]
		if !ok {
			continue
		}
		switch e.Relation {
		case bundle.RelationStartBeforeStart:
			if pred.Start.After(earliest) {
				earliest = pred.Start
			}
		default: // FinishBeforeStart, FinishEqualsStart
			if pred.End.After(earliest) {
				earliest = pred.End
			}
		}
	}
	return earliest
}

func (s *Scheduler) placeQuality(t int, task *bundle.Task, earliest time.Time, product string) (Placement, string) {
	var best Placement
	found := false
	for _, sh := range shiftOrder {
		team, ok := s.selectQualityTeam(sh, task.WorkersRequired)
		if !ok {
			continue
		}
		start, end, actualShift, ok := s.nextWindow(team, earliest, task.WorkersRequired, task.DurationMin, product)
		if !ok {
			continue
		}
		if !found || start.Before(best.Start) {
			found = true
			best = Placement{TaskID: t, Team: team, Shift: actualShift, Product: product, Start: start, End: end}
		}
	}
	if !found {
		return Placement{}, schederr.NoQualityTeam(t).Error()
	}
	return best, ""
}

func (s *Scheduler) selectQualityTeam(sh bundle.Shift, workersNeeded int) (string, bool) {
	best := ""
	bestLoad := math.Inf(1)
	for _, name := range s.bundle.SortedTeamNames() {
		team := s.bundle.Teams[name]
		if team.Role != bundle.RoleQuality || !team.WorksShift(sh) || team.Capacity < workersNeeded {
			continue
		}
		load := s.timeline.CumulativeWorkerMinutes(name)
		if load < bestLoad {
			bestLoad = load
			best = name
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

// floorTo6AM returns the earliest 06:00 local instant at or after t.
func floorTo6AM(t time.Time) time.Time {
	day6am := time.Date(t.Year(), t.Month(), t.Day(), 6, 0, 0, 0, t.Location())
	if t.After(day6am) {
		return day6am.AddDate(0, 0, 1)
	}
	return day6am
}
