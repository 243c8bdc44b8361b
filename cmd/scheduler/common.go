package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/qlp-hq/production-scheduler/internal/bundle"
	"github.com/qlp-hq/production-scheduler/internal/cache"
	"github.com/qlp-hq/production-scheduler/internal/calendar"
	"github.com/qlp-hq/production-scheduler/internal/config"
	"github.com/qlp-hq/production-scheduler/internal/engine"
	"github.com/qlp-hq/production-scheduler/internal/events"
	"github.com/qlp-hq/production-scheduler/internal/graph"
	"github.com/qlp-hq/production-scheduler/internal/logger"
	"github.com/qlp-hq/production-scheduler/internal/schederr"
	"github.com/qlp-hq/production-scheduler/internal/store/postgres"
)

// loadedRun holds everything a scenario command needs once the bundle is
// loaded and the dependency graph built.
type loadedRun struct {
	bnd    *bundle.DataBundle
	dag    *graph.EffectiveDAG
	cal    *calendar.Calendar
	cfg    engine.Config
	appCfg config.Config
	pub    events.Publisher
	store  *postgres.Store
}

func loadRun(bundlePath string) (*loadedRun, error) {
	appCfg := config.Load()

	bnd, warnings, err := bundle.LoadBundleJSON(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("load bundle: %w", err)
	}
	for _, w := range warnings {
		logger.WithError(w).Warn("bundle load warning")
	}

	c := cache.NewRedis(appCfg.RedisAddr)
	builder := graph.NewBuilder(c)
	dag, err := builder.Build(bnd)
	if err != nil {
		if se, ok := err.(*schederr.Error); ok && se.Kind.Fatal() {
			logger.LogCriticalError("build_dependency_graph", se, map[string]interface{}{"kind": string(se.Kind)})
		}
		return nil, fmt.Errorf("build dependency graph: %w", err)
	}

	cal := calendar.New(bnd)
	cfg := engine.Config{
		Start:             bnd.StartInstant,
		LateDelayDays:     appCfg.LateDelayDays,
		AllowLateDelivery: appCfg.AllowLateDelivery,
	}

	pub := events.NewKafka(appCfg.KafkaBrokers, "scheduler-cli")
	store, err := postgres.Open(appCfg.DatabaseURL)
	if err != nil {
		logger.LogError("open persistence store", err, map[string]interface{}{"continuing": true})
		store = &postgres.Store{}
	}

	return &loadedRun{bnd: bnd, dag: dag, cal: cal, cfg: cfg, appCfg: appCfg, pub: pub, store: store}, nil
}

func publishSchedule(pub events.Publisher, sch *engine.Schedule) {
	ids := make([]int, 0, len(sch.Placements))
	for id := range sch.Placements {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		p := sch.Placements[id]
		pub.PublishTaskPlaced(p.TaskID, p.Team, string(p.Shift), p.Start, p.End)
	}

	failedIDs := make([]int, 0, len(sch.Failed))
	for id := range sch.Failed {
		failedIDs = append(failedIDs, id)
	}
	sort.Ints(failedIDs)
	for _, id := range failedIDs {
		pub.PublishTaskFailed(id, sch.Failed[id])
	}
}

func runID(scenario string) string {
	return fmt.Sprintf("%s-%d", scenario, time.Now().UnixNano())
}
