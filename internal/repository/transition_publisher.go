package repository

import (
	"context"

	"TickBrain/internal/domain/models"
	drepo "TickBrain/internal/domain/repository"
	pkgkafka "TickBrain/pkg/kafka"
)

// KafkaTransitionPublisher fans approved transitions out to a broker topic
// so downstream consumers (reconciliation, analytics) see every emitted
// enter/exit.
type KafkaTransitionPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaTransitionPublisher creates the publisher.
func NewKafkaTransitionPublisher(producer *pkgkafka.Producer, topic string) drepo.TransitionPublisher {
	return &KafkaTransitionPublisher{producer: producer, topic: topic}
}

// Publish keys by instrument so per-instrument ordering survives partitioning.
func (p *KafkaTransitionPublisher) Publish(ctx context.Context, tr *models.Transition) error {
	return p.producer.Publish(ctx, p.topic, []byte(tr.Instrument), tr)
}

func (p *KafkaTransitionPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
