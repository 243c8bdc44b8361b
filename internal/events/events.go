// Package events publishes best-effort notifications about scheduling
// progress (task placements, failures, scenario completions) onto Kafka.
// Publishing never fails a scheduling run: errors are logged and swallowed
// (spec.md §7 error handling policy extended to this ambient concern).
package events

import (
	"encoding/json"
	"time"
)

// EventType names one kind of scheduling-progress notification.
type EventType string

const (
	EventTaskPlaced        EventType = "task.placed"
	EventTaskFailed        EventType = "task.failed"
	EventScenarioCompleted EventType = "scenario.completed"
)

// Event is one discrete notification, serialized as JSON onto the events
// topic.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// TaskPlacedPayload is the payload for EventTaskPlaced.
type TaskPlacedPayload struct {
	TaskID int       `json:"task_id"`
	Team   string    `json:"team"`
	Shift  string    `json:"shift"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// TaskFailedPayload is the payload for EventTaskFailed.
type TaskFailedPayload struct {
	TaskID int    `json:"task_id"`
	Reason string `json:"reason"`
}

// ScenarioCompletedPayload is the payload for EventScenarioCompleted.
type ScenarioCompletedPayload struct {
	Scenario      string  `json:"scenario"`
	RunID         string  `json:"run_id"`
	Placed        int     `json:"placed"`
	Failed        int     `json:"failed"`
	MakespanDays  int     `json:"makespan_days"`
	MaxLateness   float64 `json:"max_lateness_days"`
	TotalLateness float64 `json:"total_lateness_days"`
}

// Publisher is the minimal surface the scheduler needs from an event sink.
// With no brokers configured, NewKafka returns a no-op Publisher that drops
// every event.
type Publisher interface {
	PublishTaskPlaced(taskID int, team, shift string, start, end time.Time)
	PublishTaskFailed(taskID int, reason string)
	PublishScenarioCompleted(scenario, runID string, placed, failed, makespanDays int, maxLateness, totalLateness float64)
	Close() error
}
