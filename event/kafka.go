// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/campusarena/potm-voting/models"
)

const DefaultTopic = "potm-votes"

const writeTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher streams committed voting events to a Kafka topic. Messages
// are keyed by match ID, so all events of one match land on the same
// partition. One server publishes them in commit order; consumers fed by
// several servers order them by the event's Seq.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	if topic == "" {
		topic = DefaultTopic
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            5,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}

	return &KafkaPublisher{writer: w, topic: topic}, nil
}

// Notify implements voting.Notifier. The write outlives a cancelled
// request context but is bounded by writeTimeout.
func (p *KafkaPublisher) Notify(ctx context.Context, ev models.VotingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal voting event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(ev.MatchID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(ev.Type)},
		},
		Time: ev.At,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka topic %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}
