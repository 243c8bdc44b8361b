package bundle

import "testing"

func TestParseBundleJSONMinimal(t *testing.T) {
	data := []byte(`{
		"tasks": [{"id": 1, "duration_min": 60, "team": "M1", "workers_required": 1, "kind": "production"}],
		"teams": [{"name": "M1", "capacity": 2, "shifts": ["shift1"], "role": "mechanic"}],
		"task_ranges": [{"product": "P", "task_id_start": 1, "task_id_end": 1}],
		"deliveries": [{"product": "P", "delivery": "2025-08-23 06:00"}],
		"start_instant": "2025-08-22 06:00"
	}`)

	b, warnings, err := ParseBundleJSON(data)
	if err != nil {
		t.Fatalf("ParseBundleJSON: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(b.Tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(b.Tasks))
	}
	if b.LatePartDelayDays != 1.0 {
		t.Errorf("expected default late_part_delay_days of 1.0, got %v", b.LatePartDelayDays)
	}
	p, ok := b.Products["P"]
	if !ok {
		t.Fatal("expected product P")
	}
	if !p.ContainsByRange(1) {
		t.Errorf("expected product P to contain task 1 by range")
	}
}

func TestParseBundleJSONSkipsDanglingQualityRequirement(t *testing.T) {
	data := []byte(`{
		"tasks": [{"id": 1, "duration_min": 60, "team": "M1", "workers_required": 1, "kind": "production"}],
		"quality_requirements": [{"primary_id": 999, "quality_id": 101, "quality_duration_min": 30, "quality_workers": 1}],
		"teams": [{"name": "M1", "capacity": 2, "shifts": ["shift1"], "role": "mechanic"}],
		"start_instant": "2025-08-22 06:00"
	}`)

	b, warnings, err := ParseBundleJSON(data)
	if err != nil {
		t.Fatalf("ParseBundleJSON: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning for the dangling quality requirement, got %d", len(warnings))
	}
	if _, ok := b.QualityLinks[999]; ok {
		t.Errorf("dangling quality requirement should not have been recorded")
	}
}

func TestSynthesizeReworkQualityTasksInjective(t *testing.T) {
	data := []byte(`{
		"tasks": [
			{"id": 1, "duration_min": 60, "team": "M1", "workers_required": 1, "kind": "production"},
			{"id": 2, "duration_min": 60, "team": "M1", "workers_required": 1, "kind": "production"}
		],
		"rework_edges": [
			{"rework_id": 1, "dependent_id": 2, "relation": "finish_before_start"}
		],
		"teams": [{"name": "M1", "capacity": 2, "shifts": ["shift1"], "role": "mechanic"}],
		"start_instant": "2025-08-22 06:00"
	}`)

	b, _, err := ParseBundleJSON(data)
	if err != nil {
		t.Fatalf("ParseBundleJSON: %v", err)
	}
	qID, ok := b.ReworkQuality[1]
	if !ok {
		t.Fatal("expected a synthesized quality task for rework task 1")
	}
	if qID == 1 || qID == 2 {
		t.Errorf("synthesized quality id %d collides with a loaded task id", qID)
	}
	qt, ok := b.Tasks[qID]
	if !ok || qt.Kind != KindQualityInspection {
		t.Errorf("expected task %d to be a synthesized quality inspection", qID)
	}
	if qt.InspectsTaskID != 1 {
		t.Errorf("expected synthesized quality task to inspect task 1, got %d", qt.InspectsTaskID)
	}
}

func TestParseRelationAcceptsAllSpellings(t *testing.T) {
	cases := map[string]Relation{
		"Finish <= Start":    RelationFinishBeforeStart,
		"finish_before_start": RelationFinishBeforeStart,
		"Finish = Start":      RelationFinishEqualsStart,
		"finish_equals_start": RelationFinishEqualsStart,
		"Start <= Start":      RelationStartBeforeStart,
		"start_before_start":  RelationStartBeforeStart,
	}
	for in, want := range cases {
		got, err := parseRelation(in)
		if err != nil {
			t.Errorf("parseRelation(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("parseRelation(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := parseRelation("nonsense"); err == nil {
		t.Error("expected an error for an unrecognized relation string")
	}
}
