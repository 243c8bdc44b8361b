package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/qlp-hq/production-scheduler/internal/logger"
)

const defaultTopic = "scheduler-events"

// Kafka publishes scheduling events to a Kafka topic via segmentio/kafka-go.
// Every publish is best-effort: a write failure is logged at Warn and
// otherwise ignored, since losing a progress notification must never abort
// a scheduling run.
type Kafka struct {
	writer *kafka.Writer
	source string
	log    *zap.Logger
}

// NewKafka builds a Publisher writing to the given brokers. An empty broker
// list returns a no-op Publisher (the noop type) rather than an error,
// since Kafka connectivity is optional infrastructure.
func NewKafka(brokers []string, source string) Publisher {
	if len(brokers) == 0 {
		return noop{}
	}
	return &Kafka{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    defaultTopic,
			Balancer: &kafka.LeastBytes{},
		},
		source: source,
		log:    logger.WithComponent("events-kafka"),
	}
}

func (k *Kafka) publish(eventType EventType, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		k.log.Warn("failed to marshal event payload", zap.String("event_type", string(eventType)), zap.Error(err))
		return
	}
	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    k.source,
		Timestamp: time.Now(),
		Payload:   raw,
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		k.log.Warn("failed to marshal event envelope", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(event.ID), Value: eventBytes}); err != nil {
		k.log.Warn("failed to publish event to kafka", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func (k *Kafka) PublishTaskPlaced(taskID int, team, shift string, start, end time.Time) {
	k.publish(EventTaskPlaced, TaskPlacedPayload{TaskID: taskID, Team: team, Shift: shift, Start: start, End: end})
}

func (k *Kafka) PublishTaskFailed(taskID int, reason string) {
	k.publish(EventTaskFailed, TaskFailedPayload{TaskID: taskID, Reason: reason})
}

func (k *Kafka) PublishScenarioCompleted(scenario, runID string, placed, failed, makespanDays int, maxLateness, totalLateness float64) {
	k.publish(EventScenarioCompleted, ScenarioCompletedPayload{
		Scenario: scenario, RunID: runID, Placed: placed, Failed: failed,
		MakespanDays: makespanDays, MaxLateness: maxLateness, TotalLateness: totalLateness,
	})
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

// noop is the Publisher used when no Kafka brokers are configured.
type noop struct{}

func (noop) PublishTaskPlaced(int, string, string, time.Time, time.Time)             {}
func (noop) PublishTaskFailed(int, string)                                           {}
func (noop) PublishScenarioCompleted(string, string, int, int, int, float64, float64) {}
func (noop) Close() error                                                             { return nil }
