package engine

import (
	"testing"

	"github.com/qlp-hq/production-scheduler/internal/priority"
)

// TestToRowsRanksAnnotatesAndReportsSlack exercises the spec.md §6 Output
// deliverable: a globally prioritized, annotated task list. It grounds on
// the E2 late-part bundle, where task 301 (a LatePart feeding product P) is
// known to outrank task 2 (ordinary production work on the same product).
func TestToRowsRanksAnnotatesAndReportsSlack(t *testing.T) {
	bnd, dag, cal, cfg := setup(t, "../../testdata/bundles/e2_late_part_delay.json")
	sch := RunScenario1(dag, bnd, cal, cfg, nil)

	calc := priority.NewCalculator(dag, bnd, cfg.Start)
	priorityOf := func(id int) float64 { return calc.Priority(id) }
	slackOf := func(id int) (float64, bool) {
		p, ok := sch.Placements[id]
		if !ok {
			return 0, false
		}
		return calc.Slack(id, p.Start)
	}
	productOf := func(id int) (string, bool) { return calc.ResolveProduct(id) }

	rows := ToRows(sch, bnd, dag, priorityOf, slackOf, productOf)
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}

	if rows[0].PriorityRank != 1 || rows[1].PriorityRank != 2 {
		t.Errorf("ranks = %d, %d; want 1, 2", rows[0].PriorityRank, rows[1].PriorityRank)
	}
	if rows[0].TaskID != 301 {
		t.Errorf("highest-ranked task = %d, want 301 (LatePart outranks production)", rows[0].TaskID)
	}

	want := "Late Part 301 (P)"
	if rows[0].DisplayName != want {
		t.Errorf("display name = %q, want %q", rows[0].DisplayName, want)
	}
	if rows[0].Product != "P" {
		t.Errorf("product = %q, want P", rows[0].Product)
	}

	var productionRow *Row
	for i := range rows {
		if rows[i].TaskID == 2 {
			productionRow = &rows[i]
		}
	}
	if productionRow == nil {
		t.Fatal("expected a row for task 2")
	}
	if productionRow.DisplayName != "Task 2" {
		t.Errorf("display name = %q, want %q", productionRow.DisplayName, "Task 2")
	}
	if !productionRow.HasSlack {
		t.Error("expected task 2's row to carry computed slack")
	}
}
