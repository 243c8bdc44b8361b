package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qlp-hq/production-scheduler/internal/engine"
	"github.com/qlp-hq/production-scheduler/internal/logger"
	"github.com/qlp-hq/production-scheduler/internal/metrics"
)

var (
	minMechanics, maxMechanics int
	minQuality, maxQuality     int
	maxIterations              int
	makespanOutput             string
	latenessOutput             string
)

var optimizeMakespanCmd = &cobra.Command{
	Use:   "optimize-makespan <bundle.json>",
	Short: "Binary-search mechanic and quality headcount for minimum makespan (scenario 2)",
	Args:  cobra.ExactArgs(1),
	RunE:  doOptimizeMakespan,
}

var optimizeLatenessCmd = &cobra.Command{
	Use:   "optimize-lateness <bundle.json>",
	Short: "Grow-then-shrink per-team capacity search for minimum lateness (scenario 3)",
	Args:  cobra.ExactArgs(1),
	RunE:  doOptimizeLateness,
}

func init() {
	for _, c := range []*cobra.Command{optimizeMakespanCmd, optimizeLatenessCmd} {
		c.Flags().IntVar(&minMechanics, "min-mechanics", 1, "lower bound on mechanic headcount per team")
		c.Flags().IntVar(&maxMechanics, "max-mechanics", 40, "upper bound on mechanic headcount per team")
		c.Flags().IntVar(&minQuality, "min-quality", 1, "lower bound on quality headcount per team")
		c.Flags().IntVar(&maxQuality, "max-quality", 20, "upper bound on quality headcount per team")
	}
	optimizeLatenessCmd.Flags().IntVar(&maxIterations, "max-iterations", 300, "iteration budget for the grow phase (phase 1)")
	optimizeMakespanCmd.Flags().StringVar(&makespanOutput, "output", "", "write the resulting schedule as JSON to this path (default stdout)")
	optimizeLatenessCmd.Flags().StringVar(&latenessOutput, "output", "", "write the resulting schedule as JSON to this path (default stdout)")
}

func doOptimizeMakespan(cmd *cobra.Command, args []string) error {
	lr, err := loadRun(args[0])
	if err != nil {
		return err
	}
	log := logger.WithComponent("cli-optimize-makespan")

	bounds := engine.Scenario2Bounds{
		MinMechanics: minMechanics, MaxMechanics: maxMechanics,
		MinQuality: minQuality, MaxQuality: maxQuality,
	}
	result := engine.RunScenario2(lr.dag, lr.bnd, lr.cal, lr.cfg, bounds)

	log.Info("optimization complete", zap.Int("mechanics", result.Mechanics), zap.Int("quality", result.Quality))
	logger.LogScheduleMetrics("scenario2", len(result.Schedule.Placements), len(lr.bnd.Tasks), result.Makespan, 0)

	report := buildReport("scenario2", result.Schedule, lr)

	id := runID("scenario2")
	if err := lr.store.SaveSchedule(id, "scenario2", result.Schedule); err != nil {
		log.Warn("failed to persist schedule", zap.Error(err))
	}
	if err := lr.store.SaveMetrics(id, result.Makespan, 0, 0, report.Summary.UtilizationByTeam); err != nil {
		log.Warn("failed to persist metrics", zap.Error(err))
	}
	publishSchedule(lr.pub, result.Schedule)
	lr.pub.PublishScenarioCompleted("scenario2", id, len(result.Schedule.Placements), len(result.Schedule.Failed), result.Makespan, 0, 0)
	defer lr.pub.Close()

	return writeReport(report, makespanOutput)
}

func doOptimizeLateness(cmd *cobra.Command, args []string) error {
	lr, err := loadRun(args[0])
	if err != nil {
		return err
	}
	log := logger.WithComponent("cli-optimize-lateness")

	sc3 := engine.Scenario3Config{
		MinMechanics: minMechanics, MaxMechanics: maxMechanics,
		MinQuality: minQuality, MaxQuality: maxQuality,
		MaxIterations: maxIterations,
	}
	result := engine.RunScenario3(lr.dag, lr.bnd, lr.cal, lr.cfg, sc3)
	makespanDays := metrics.Makespan(result.Schedule, lr.bnd, lr.cal)

	logger.LogScheduleMetrics("scenario3", len(result.Schedule.Placements), len(lr.bnd.Tasks), makespanDays, result.MaxLateness)

	report := buildReport("scenario3", result.Schedule, lr)

	id := runID("scenario3")
	if err := lr.store.SaveSchedule(id, "scenario3", result.Schedule); err != nil {
		log.Warn("failed to persist schedule", zap.Error(err))
	}
	if err := lr.store.SaveMetrics(id, makespanDays, result.MaxLateness, result.TotalLateness, report.Summary.UtilizationByTeam); err != nil {
		log.Warn("failed to persist metrics", zap.Error(err))
	}
	publishSchedule(lr.pub, result.Schedule)
	lr.pub.PublishScenarioCompleted("scenario3", id, len(result.Schedule.Placements), len(result.Schedule.Failed), makespanDays, result.MaxLateness, result.TotalLateness)
	defer lr.pub.Close()

	return writeReport(report, latenessOutput)
}
