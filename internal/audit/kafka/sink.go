// Package kafka ships audit events to a Kafka topic, keyed by event ID so a
// consumer sees one event's history in order.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"rollcall/internal/audit"
)

const actionHeader = "action"

type Sink struct {
	client *kgo.Client
	topic  string
}

func NewSink(client *kgo.Client, topic string) *Sink {
	return &Sink{client: client, topic: topic}
}

// Append produces event and waits for the broker acknowledgement.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.EventID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: actionHeader, Value: []byte(event.Action)},
		},
		Timestamp: event.Timestamp,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event to %s: %w", s.topic, err)
	}
	return nil
}

// Decode parses a record produced by Append.
func Decode(record *kgo.Record) (audit.Event, error) {
	var event audit.Event
	if err := json.Unmarshal(record.Value, &event); err != nil {
		return audit.Event{}, fmt.Errorf("decode audit record: %w", err)
	}
	return event, nil
}
