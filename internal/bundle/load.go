package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/qlp-hq/production-scheduler/internal/logger"
	"github.com/qlp-hq/production-scheduler/internal/schederr"
	"go.uber.org/zap"
)

// dateLayout is the day-granularity layout used for on-dock dates and
// holidays in the JSON bundle format.
const dateLayout = "2006-01-02"

// jsonBundle mirrors the wire shape produced by the (out-of-scope)
// sectioned-table loader once it has parsed every section into rows. It
// exists purely so tests and the CLI can supply a DataBundle without
// standing up the real CSV loader.
type jsonBundle struct {
	Tasks []struct {
		ID              int    `json:"id"`
		DurationMin     int    `json:"duration_min"`
		Team            string `json:"team"`
		WorkersRequired int    `json:"workers_required"`
		Kind            string `json:"kind"`
	} `json:"tasks"`
	QualityRequirements []struct {
		PrimaryID       int `json:"primary_id"`
		QualityID       int `json:"quality_id"`
		QualityDuration int `json:"quality_duration_min"`
		QualityWorkers  int `json:"quality_workers"`
	} `json:"quality_requirements"`
	Precedence []struct {
		First    int    `json:"first"`
		Second   int    `json:"second"`
		Relation string `json:"relation"`
	} `json:"precedence"`
	LatePartEdges []struct {
		LatePartID  int    `json:"late_part_id"`
		DependentID int    `json:"dependent_id"`
		OnDockDate  string `json:"on_dock_date"`
		ProductLine string `json:"product_line"`
	} `json:"late_part_edges"`
	ReworkEdges []struct {
		ReworkID    int    `json:"rework_id"`
		DependentID int    `json:"dependent_id"`
		Relation    string `json:"relation"`
		ProductLine string `json:"product_line"`
	} `json:"rework_edges"`
	Teams []struct {
		Name     string   `json:"name"`
		Capacity int      `json:"capacity"`
		Shifts   []string `json:"shifts"`
		Role     string   `json:"role"`
	} `json:"teams"`
	Deliveries []struct {
		Product  string `json:"product"`
		Delivery string `json:"delivery"`
	} `json:"deliveries"`
	TaskRanges []struct {
		Product string `json:"product"`
		Start   int    `json:"task_id_start"`
		End     int    `json:"task_id_end"`
	} `json:"task_ranges"`
	Holidays []struct {
		Product string `json:"product"`
		Date    string `json:"date"`
	} `json:"holidays"`
	LatePartDelayDays float64 `json:"late_part_delay_days"`
	StartInstant      string  `json:"start_instant"`
}

// LoadBundleJSON parses a JSON-encoded data bundle from disk. This is a
// convenience stand-in for the real sectioned tabular loader (out of scope
// per spec.md §1); it applies the same trimming and inference rules §6
// requires of any loader.
func LoadBundleJSON(path string) (*DataBundle, []error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read bundle file: %w", err)
	}
	return ParseBundleJSON(data)
}

// ParseBundleJSON parses and normalizes a JSON-encoded bundle from memory.
// It returns the bundle plus a slice of non-fatal InvalidInput warnings for
// rows that were skipped.
func ParseBundleJSON(data []byte) (*DataBundle, []error, error) {
	var raw jsonBundle
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode bundle json: %w", err)
	}

	var warnings []error
	b := &DataBundle{
		Tasks:        make(map[int]*Task),
		QualityLinks: make(map[int]*QualityLink),
		Teams:        make(map[string]*Team),
		ShiftHours:   DefaultShiftHours(),
		Products:     make(map[string]*Product),
	}

	b.LatePartDelayDays = raw.LatePartDelayDays
	if b.LatePartDelayDays == 0 {
		b.LatePartDelayDays = 1.0
	}
	if raw.StartInstant != "" {
		t, err := time.ParseInLocation("2006-01-02 15:04", raw.StartInstant, time.Local)
		if err != nil {
			warnings = append(warnings, schederr.InvalidInput("malformed start_instant: "+err.Error()))
		} else {
			b.StartInstant = t
		}
	}
	if b.StartInstant.IsZero() {
		b.StartInstant = time.Date(2025, time.August, 22, 6, 0, 0, 0, time.Local)
	}

	for _, t := range raw.Tasks {
		name := strings.TrimSpace(t.Team)
		kind := TaskKind(strings.TrimSpace(strings.ToLower(t.Kind)))
		if kind == "" {
			kind = KindProduction
		}
		b.Tasks[t.ID] = &Task{
			ID:              t.ID,
			DurationMin:     t.DurationMin,
			TeamName:        name,
			WorkersRequired: t.WorkersRequired,
			Kind:            kind,
		}
	}

	for _, q := range raw.QualityRequirements {
		if _, ok := b.Tasks[q.PrimaryID]; !ok {
			warnings = append(warnings, schederr.InvalidInput(fmt.Sprintf("quality requirement for unknown primary task %d skipped", q.PrimaryID)))
			continue
		}
		b.QualityLinks[q.PrimaryID] = &QualityLink{
			PrimaryID:       q.PrimaryID,
			QualityID:       q.QualityID,
			QualityDuration: q.QualityDuration,
			QualityWorkers:  q.QualityWorkers,
		}
		b.Tasks[q.QualityID] = &Task{
			ID:              q.QualityID,
			DurationMin:     q.QualityDuration,
			WorkersRequired: q.QualityWorkers,
			Kind:            KindQualityInspection,
			InspectsTaskID:  q.PrimaryID,
		}
	}

	for _, p := range raw.Precedence {
		rel, err := parseRelation(p.Relation)
		if err != nil {
			warnings = append(warnings, schederr.InvalidInput(err.Error()))
			continue
		}
		b.Precedence = append(b.Precedence, PrecedenceEdge{First: p.First, Second: p.Second, Relation: rel})
	}

	for _, lp := range raw.LatePartEdges {
		on, err := time.ParseInLocation(dateLayout, strings.TrimSpace(lp.OnDockDate), time.Local)
		if err != nil {
			warnings = append(warnings, schederr.InvalidInput("malformed on-dock date for late part "+fmt.Sprint(lp.LatePartID)))
			continue
		}
		b.LatePartEdges = append(b.LatePartEdges, LatePartEdge{
			LatePartID:  lp.LatePartID,
			DependentID: lp.DependentID,
			OnDockDate:  on,
			ProductLine: strings.TrimSpace(lp.ProductLine),
		})
		if t, ok := b.Tasks[lp.LatePartID]; ok {
			t.Kind = KindLatePart
		}
	}

	for _, rw := range raw.ReworkEdges {
		rel := RelationFinishBeforeStart
		if strings.TrimSpace(rw.Relation) != "" {
			parsed, err := parseRelation(rw.Relation)
			if err != nil {
				warnings = append(warnings, schederr.InvalidInput(err.Error()))
				continue
			}
			rel = parsed
		}
		b.ReworkEdges = append(b.ReworkEdges, ReworkEdge{
			ReworkID:    rw.ReworkID,
			DependentID: rw.DependentID,
			Relation:    rel,
			ProductLine: strings.TrimSpace(rw.ProductLine),
		})
		if t, ok := b.Tasks[rw.ReworkID]; ok {
			t.Kind = KindRework
		}
	}

	b.ReworkQuality = synthesizeReworkQualityTasks(b)

	for _, tm := range raw.Teams {
		name := strings.TrimSpace(tm.Name)
		if name == "" {
			warnings = append(warnings, schederr.InvalidInput("team row missing name, skipped"))
			continue
		}
		shifts := make(map[Shift]bool)
		for _, s := range tm.Shifts {
			shifts[Shift(strings.TrimSpace(strings.ToLower(s)))] = true
		}
		role := TeamRole(strings.TrimSpace(strings.ToLower(tm.Role)))
		if role == "" {
			role = RoleMechanic
		}
		b.Teams[name] = &Team{Name: name, Capacity: tm.Capacity, Shifts: shifts, Role: role}
	}

	for _, d := range raw.Deliveries {
		name := strings.TrimSpace(d.Product)
		del, err := time.ParseInLocation("2006-01-02 15:04", strings.TrimSpace(d.Delivery), time.Local)
		if err != nil {
			// also allow a bare date
			del, err = time.ParseInLocation(dateLayout, strings.TrimSpace(d.Delivery), time.Local)
		}
		if err != nil {
			warnings = append(warnings, schederr.InvalidInput("malformed delivery date for product "+name))
			continue
		}
		p := b.getOrCreateProduct(name)
		p.Delivery = del
	}

	for _, r := range raw.TaskRanges {
		name := strings.TrimSpace(r.Product)
		p := b.getOrCreateProduct(name)
		p.IDRangeStart = r.Start
		p.IDRangeEnd = r.End
		for id := r.Start; id <= r.End; id++ {
			p.TaskIDs[id] = true
		}
	}

	for _, h := range raw.Holidays {
		name := strings.TrimSpace(h.Product)
		p := b.getOrCreateProduct(name)
		p.Holidays[strings.TrimSpace(h.Date)] = true
	}

	// Product association inference: explicit product columns on late-part
	// and rework edges win; add the task to the product's set. Otherwise
	// fall back to the product whose id range contains the edge's Second
	// endpoint (spec.md §3 TaskToProduct).
	for _, lp := range b.LatePartEdges {
		assignToProduct(b, lp.LatePartID, lp.ProductLine, lp.DependentID)
	}
	for _, rw := range b.ReworkEdges {
		assignToProduct(b, rw.ReworkID, rw.ProductLine, rw.DependentID)
	}
	// Quality tasks inherit their primary's product set membership.
	for primaryID, link := range b.QualityLinks {
		for _, name := range b.SortedProductNames() {
			p := b.Products[name]
			if p.HasTask(primaryID) || p.ContainsByRange(primaryID) {
				p.TaskIDs[link.QualityID] = true
			}
		}
	}
	// A rework task's synthesized quality inspection inherits the rework
	// task's own product association.
	for reworkID, qualityID := range b.ReworkQuality {
		for _, name := range b.SortedProductNames() {
			p := b.Products[name]
			if p.HasTask(reworkID) {
				p.TaskIDs[qualityID] = true
			}
		}
	}

	for _, w := range warnings {
		logger.WithComponent("bundle-loader").Warn("skipped malformed input row", zap.Error(w))
	}

	return b, warnings, nil
}

// defaultReworkQualityDuration and defaultReworkQualityWorkers match the
// reference loader's constants for quality inspections synthesized on
// rework tasks (as opposed to explicit QualityRequirements rows, which
// carry their own duration/headcount).
const (
	defaultReworkQualityDuration = 30
	defaultReworkQualityWorkers  = 1
)

// synthesizeReworkQualityTasks creates one quality-inspection task per
// rework task (spec.md §4.2 step 3: "always true — quality is synthesized
// per rework"), using an injective id scheme disjoint from every other
// loaded task id, and asserts that injectivity rather than replicating the
// reference's collision-prone `primary+10000` offset (spec.md §9 Open
// Question).
func synthesizeReworkQualityTasks(b *DataBundle) map[int]int {
	maxID := 0
	for id := range b.Tasks {
		if id > maxID {
			maxID = id
		}
	}

	result := make(map[int]int, len(b.ReworkEdges))
	seen := make(map[int]bool)
	assigned := make(map[int]bool)
	for _, rw := range b.ReworkEdges {
		if _, ok := result[rw.ReworkID]; ok {
			continue
		}
		qID := maxID + rw.ReworkID
		if assigned[qID] || seen[qID] {
			// Cannot happen given the construction (rework ids are
			// distinct and none exceeds maxID), but fail loudly if it ever
			// does rather than silently overwrite a task.
			panic(fmt.Sprintf("synthetic quality id %d collides for rework task %d", qID, rw.ReworkID))
		}
		seen[qID] = true
		result[rw.ReworkID] = qID
		if _, exists := b.Tasks[qID]; exists {
			assigned[qID] = true
			continue
		}
		b.Tasks[qID] = &Task{
			ID:              qID,
			DurationMin:     defaultReworkQualityDuration,
			WorkersRequired: defaultReworkQualityWorkers,
			Kind:            KindQualityInspection,
			InspectsTaskID:  rw.ReworkID,
		}
		assigned[qID] = true
	}
	return result
}

func (b *DataBundle) getOrCreateProduct(name string) *Product {
	if p, ok := b.Products[name]; ok {
		return p
	}
	p := &Product{Name: name, TaskIDs: make(map[int]bool), Holidays: make(map[string]bool)}
	b.Products[name] = p
	return p
}

// assignToProduct implements TaskToProduct inference for one edge: explicit
// product line wins; otherwise the product containing the dependent
// (Second) endpoint by id range.
func assignToProduct(b *DataBundle, taskID int, explicitProduct string, dependentID int) {
	if explicitProduct != "" {
		b.getOrCreateProduct(explicitProduct).TaskIDs[taskID] = true
		return
	}
	for _, name := range b.SortedProductNames() {
		p := b.Products[name]
		if p.ContainsByRange(dependentID) || p.HasTask(dependentID) {
			p.TaskIDs[taskID] = true
			return
		}
	}
}

func parseRelation(s string) (Relation, error) {
	switch strings.TrimSpace(s) {
	case "Finish <= Start", "finish_before_start", "FinishBeforeStart":
		return RelationFinishBeforeStart, nil
	case "Finish = Start", "finish_equals_start", "FinishEqualsStart":
		return RelationFinishEqualsStart, nil
	case "Start <= Start", "start_before_start", "StartBeforeStart":
		return RelationStartBeforeStart, nil
	default:
		return "", fmt.Errorf("unrecognized relation %q", s)
	}
}
