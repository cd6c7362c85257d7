// Package events publishes completed bridge operations to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event metadata for completed operations.
const (
	EventOperationCompleted = "mpqr.operation.completed"
	EventVersion            = "1"
)

// Envelope is the standard event schema the bridge publishes.
type Envelope struct {
	EventType    string      `json:"eventType"`
	EventVersion string      `json:"eventVersion"`
	OccurredAt   time.Time   `json:"occurredAt"`
	AggregateID  string      `json:"aggregateId"` // order, store or pos id
	Data         interface{} `json:"data"`
}

// OperationCompleted is the payload of EventOperationCompleted.
type OperationCompleted struct {
	TraceID   string `json:"traceId"`
	Action    string `json:"action"`
	Res       int    `json:"res"`
	Msg       string `json:"msg"`
	ID        string `json:"id"`
	Status    string `json:"status"`
	PaymentID string `json:"paymentId"`
	LatencyMs int64  `json:"latencyMs"`
}

// Publisher sends envelopes keyed by key.
type Publisher interface {
	Publish(ctx context.Context, key string, evt Envelope) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes to one topic.
type Producer struct {
	w     messageWriter
	topic string
	now   func() time.Time
}

// NewProducer creates a Producer for brokers. Messages are partitioned by key
// so events of one order stay ordered.
func NewProducer(brokers []string, topic string) *Producer {
	return newProducer(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}, topic)
}

func newProducer(w messageWriter, topic string) *Producer {
	return &Producer{w: w, topic: topic, now: time.Now}
}

// Publish stamps OccurredAt and writes a single message.
func (p *Producer) Publish(ctx context.Context, key string, evt Envelope) error {
	evt.OccurredAt = p.now().UTC()
	val, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: encoding %s: %w", evt.EventType, err)
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: val,
	}); err != nil {
		return fmt.Errorf("events: publishing to %s: %w", p.topic, err)
	}
	return nil
}

func (p *Producer) Close() error { return p.w.Close() }

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, Envelope) error { return nil }
func (Nop) Close() error                                    { return nil }
