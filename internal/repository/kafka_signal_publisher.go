package repository

import (
	"context"
	"fmt"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	domrepo "github.com/dogmaai/magi-decision/internal/domain/repository"
	pkgkafka "github.com/dogmaai/magi-decision/pkg/kafka"
)

// topicWriter is the slice of *pkgkafka.Producer the publisher needs.
type topicWriter interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaSignalPublisher writes trade signals as JSON, keyed by instrument so
// signals for one symbol stay ordered on a partition.
type KafkaSignalPublisher struct {
	producer topicWriter
	topic    string
}

var _ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) *KafkaSignalPublisher {
	p := &KafkaSignalPublisher{topic: topic}
	if producer != nil {
		p.producer = producer
	}
	return p
}

func (p *KafkaSignalPublisher) PublishSignal(ctx context.Context, s *models.TradeSignal) error {
	if s == nil {
		return fmt.Errorf("publish signal: nil signal")
	}
	if p.producer == nil {
		return fmt.Errorf("publish signal: producer not configured")
	}
	ctx = pkgkafka.WithTraceID(ctx, s.ID)
	if err := p.producer.Publish(ctx, p.topic, []byte(s.Instrument), s); err != nil {
		return fmt.Errorf("publish signal %s to %s: %w", s.ID, p.topic, err)
	}
	return nil
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
