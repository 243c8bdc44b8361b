// Package postgres persists finished schedules and their metrics, mirroring
// the teacher's intents/intent_repository pattern: JSON columns for the
// variable-shaped parts, and a lib/pq connection that degrades to a no-op
// store when the database is unreachable.
package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/qlp-hq/production-scheduler/internal/engine"
	"github.com/qlp-hq/production-scheduler/internal/logger"
)

// Store persists schedule runs. A Store with a nil connection (construction
// couldn't reach the database, which Open logs once) degrades every write
// to a no-op rather than failing the caller — schedule persistence is reporting
// infrastructure, not part of the scheduling pass itself.
type Store struct {
	conn *sql.DB
}

// Open connects to dsn (a postgres:// URL). If the connection cannot be
// established, Open returns a Store with no connection instead of an error;
// callers that need to know should check Connected().
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		logger.WithComponent("store-postgres").Warn("database unreachable, persistence disabled for this run")
		return &Store{conn: nil}, nil
	}
	return &Store{conn: conn}, nil
}

// Connected reports whether the store has a live database connection.
func (s *Store) Connected() bool { return s.conn != nil }

// Close releases the underlying connection, if any.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Schema is the DDL Store expects to already exist. Migration tooling is
// out of scope; operators apply this once per environment.
const Schema = `
CREATE TABLE IF NOT EXISTS schedule_runs (
	run_id      TEXT PRIMARY KEY,
	scenario    TEXT NOT NULL,
	placements  JSONB NOT NULL,
	failed      JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS schedule_metrics (
	run_id              TEXT PRIMARY KEY REFERENCES schedule_runs(run_id),
	makespan_days       INTEGER NOT NULL,
	max_lateness        DOUBLE PRECISION NOT NULL,
	total_lateness      DOUBLE PRECISION NOT NULL,
	utilization_by_team JSONB NOT NULL DEFAULT '{}',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// SaveSchedule persists one scheduler run's placements and failures under
// runID. A no-op when the store has no live connection.
func (s *Store) SaveSchedule(runID, scenario string, sch *engine.Schedule) error {
	if s.conn == nil {
		return nil
	}
	placementsJSON, err := json.Marshal(sch.Placements)
	if err != nil {
		return fmt.Errorf("marshal placements: %w", err)
	}
	failedJSON, err := json.Marshal(sch.Failed)
	if err != nil {
		return fmt.Errorf("marshal failed tasks: %w", err)
	}

	_, err = s.conn.Exec(
		`INSERT INTO schedule_runs (run_id, scenario, placements, failed)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id) DO UPDATE SET placements = $3, failed = $4`,
		runID, scenario, placementsJSON, failedJSON,
	)
	return err
}

// SaveMetrics persists one run's top-line metrics under runID, including the
// per-team utilization map from the per-scenario summary (spec.md §6
// Output).
func (s *Store) SaveMetrics(runID string, makespanDays int, maxLateness, totalLateness float64, utilizationByTeam map[string]float64) error {
	if s.conn == nil {
		return nil
	}
	utilJSON, err := json.Marshal(utilizationByTeam)
	if err != nil {
		return fmt.Errorf("marshal utilization by team: %w", err)
	}
	_, err = s.conn.Exec(
		`INSERT INTO schedule_metrics (run_id, makespan_days, max_lateness, total_lateness, utilization_by_team)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (run_id) DO UPDATE SET makespan_days = $2, max_lateness = $3, total_lateness = $4, utilization_by_team = $5`,
		runID, makespanDays, maxLateness, totalLateness, utilJSON,
	)
	return err
}

// Metrics is a previously saved run's top-line metrics.
type Metrics struct {
	MakespanDays      int
	MaxLateness       float64
	TotalLateness     float64
	UtilizationByTeam map[string]float64
}

// LoadMetrics retrieves a previously saved run's top-line metrics.
func (s *Store) LoadMetrics(runID string) (*Metrics, error) {
	if s.conn == nil {
		return nil, fmt.Errorf("store has no database connection")
	}
	row := s.conn.QueryRow(`SELECT makespan_days, max_lateness, total_lateness, utilization_by_team FROM schedule_metrics WHERE run_id = $1`, runID)

	var m Metrics
	var utilJSON []byte
	if err := row.Scan(&m.MakespanDays, &m.MaxLateness, &m.TotalLateness, &utilJSON); err != nil {
		return nil, fmt.Errorf("load metrics %s: %w", runID, err)
	}
	if len(utilJSON) > 0 {
		if err := json.Unmarshal(utilJSON, &m.UtilizationByTeam); err != nil {
			return nil, fmt.Errorf("unmarshal utilization by team: %w", err)
		}
	}
	return &m, nil
}

// LoadSchedule retrieves a previously saved run's placements and failures.
func (s *Store) LoadSchedule(runID string) (*engine.Schedule, error) {
	if s.conn == nil {
		return nil, fmt.Errorf("store has no database connection")
	}
	row := s.conn.QueryRow(`SELECT placements, failed FROM schedule_runs WHERE run_id = $1`, runID)

	var placementsJSON, failedJSON []byte
	if err := row.Scan(&placementsJSON, &failedJSON); err != nil {
		return nil, fmt.Errorf("load schedule %s: %w", runID, err)
	}

	var placements map[int]*engine.Placement
	if err := json.Unmarshal(placementsJSON, &placements); err != nil {
		return nil, fmt.Errorf("unmarshal placements: %w", err)
	}
	var failed map[int]string
	if err := json.Unmarshal(failedJSON, &failed); err != nil {
		return nil, fmt.Errorf("unmarshal failed tasks: %w", err)
	}

	return &engine.Schedule{Placements: placements, Failed: failed}, nil
}
