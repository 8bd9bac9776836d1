package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"

	"studyhub/internal/domain/entity"
	"studyhub/pkg/logger"
)

// MessageWriter is the subset of *kafkago.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher writes domain events keyed by doubt id, so events of one
// doubt stay ordered within a partition. Writes go through a circuit breaker
// so an unavailable broker fails fast.
type KafkaPublisher struct {
	writer MessageWriter
	cb     *gobreaker.CircuitBreaker
}

type BreakerConfig struct {
	MaxFailures uint32
	Timeout     time.Duration
}

func NewKafkaPublisher(brokers []string, topic string, cfg BreakerConfig) *KafkaPublisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		Async:        false,
	}
	return NewPublisherWithWriter(w, cfg)
}

func NewPublisherWithWriter(w MessageWriter, cfg BreakerConfig) *KafkaPublisher {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	st := gobreaker.Settings{
		Name:        "kafka-events",
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
		},
	}
	return &KafkaPublisher{writer: w, cb: gobreaker.NewCircuitBreaker(st)}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event entity.DomainEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	msg := kafkago.Message{
		Key:   []byte(event.DoubtID),
		Value: b,
		Time:  event.OccurredAt,
		Headers: []kafkago.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}

	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) State() gobreaker.State {
	return p.cb.State()
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
