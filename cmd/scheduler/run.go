package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qlp-hq/production-scheduler/internal/engine"
	"github.com/qlp-hq/production-scheduler/internal/logger"
	"github.com/qlp-hq/production-scheduler/internal/metrics"
)

var (
	runMechanics int
	runQuality   int
	runOutput    string
	runAll       bool
)

var runCmd = &cobra.Command{
	Use:   "run <bundle.json>",
	Short: "Run the baseline scheduler at fixed team capacities",
	Args:  cobra.ExactArgs(1),
	RunE:  doRun,
}

func init() {
	runCmd.Flags().IntVar(&runMechanics, "mechanics", 0, "uniform mechanic headcount override (0 keeps bundle capacities)")
	runCmd.Flags().IntVar(&runQuality, "quality", 0, "uniform quality headcount override (0 keeps bundle capacities)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "write the resulting schedule as JSON to this path (default stdout)")
	runCmd.Flags().BoolVar(&runAll, "all", false, "run all three scenarios concurrently and print one report per scenario instead of a single report")
}

func doRun(cmd *cobra.Command, args []string) error {
	lr, err := loadRun(args[0])
	if err != nil {
		return err
	}
	log := logger.WithComponent("cli-run")

	if runAll {
		return doRunAll(lr, log)
	}

	var sch *engine.Schedule
	if runMechanics > 0 || runQuality > 0 {
		sch = engine.RunScenario1Uniform(lr.dag, lr.bnd, lr.cal, lr.cfg, runMechanics, runQuality)
	} else {
		sch = engine.RunScenario1(lr.dag, lr.bnd, lr.cal, lr.cfg, nil)
	}

	report := buildReport("baseline", sch, lr)
	logger.LogScheduleMetrics("baseline", len(sch.Placements), len(lr.bnd.Tasks), report.Summary.MakespanDays, 0)

	id := runID("baseline")
	if err := lr.store.SaveSchedule(id, "baseline", sch); err != nil {
		log.Warn("failed to persist schedule", zap.Error(err))
	}
	if err := lr.store.SaveMetrics(id, report.Summary.MakespanDays, 0, 0, report.Summary.UtilizationByTeam); err != nil {
		log.Warn("failed to persist metrics", zap.Error(err))
	}
	publishSchedule(lr.pub, sch)
	lr.pub.PublishScenarioCompleted("baseline", id, len(sch.Placements), len(sch.Failed), report.Summary.MakespanDays, 0, 0)
	defer lr.pub.Close()

	return writeReport(report, runOutput)
}

// combinedReport is what --all prints: one Report per scenario, so a caller
// gets the same annotated task list, per-product metrics, and per-scenario
// summary as a single-scenario run, for all three scenarios at once.
type combinedReport struct {
	Baseline  Report `json:"baseline"`
	Scenario2 Report `json:"scenario2"`
	Scenario3 Report `json:"scenario3"`
}

func doRunAll(lr *loadedRun, log *zap.Logger) error {
	bounds := engine.Scenario2Bounds{MinMechanics: 1, MaxMechanics: 40, MinQuality: 1, MaxQuality: 20}
	sc3 := engine.Scenario3Config{MinMechanics: 1, MaxMechanics: 40, MinQuality: 1, MaxQuality: 20, MaxIterations: 300}

	result, err := engine.RunAll(context.Background(), lr.dag, lr.bnd, lr.cal, lr.cfg, bounds, sc3)
	if err != nil {
		return fmt.Errorf("run all scenarios: %w", err)
	}

	baselineMakespan := metrics.Makespan(result.Baseline, lr.bnd, lr.cal)
	log.Info("baseline complete", zap.Int("placed", len(result.Baseline.Placements)), zap.Int("makespan_days", baselineMakespan))
	log.Info("scenario2 complete", zap.Int("mechanics", result.Scenario2.Mechanics), zap.Int("quality", result.Scenario2.Quality), zap.Int("makespan_days", result.Scenario2.Makespan))
	log.Info("scenario3 complete", zap.Float64("max_lateness_days", result.Scenario3.MaxLateness), zap.Float64("total_lateness_days", result.Scenario3.TotalLateness))

	publishSchedule(lr.pub, result.Baseline)
	publishSchedule(lr.pub, result.Scenario2.Schedule)
	publishSchedule(lr.pub, result.Scenario3.Schedule)
	defer lr.pub.Close()

	combined := combinedReport{
		Baseline:  buildReport("baseline", result.Baseline, lr),
		Scenario2: buildReport("scenario2", result.Scenario2.Schedule, lr),
		Scenario3: buildReport("scenario3", result.Scenario3.Schedule, lr),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(combined)
}
