package events

import (
	"context"
	"encoding/json"
	"fmt"

	"invoice-manager-backend/internal/logger"

	"github.com/segmentio/kafka-go"
)

type KafkaProducer struct {
	log   *logger.Logger
	w     *kafka.Writer
	topic string
}

func NewKafkaProducer(log *logger.Logger, brokers []string, topic string) *KafkaProducer {
	log = log.WithComponent("kafka").With("topic", topic)

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		Async:                  true,
		Logger:                 kafka.LoggerFunc(log.Debugf),
		ErrorLogger:            kafka.LoggerFunc(log.Errorf),
		AllowAutoTopicCreation: true,
	}

	return &KafkaProducer{log: log, w: w, topic: topic}
}

// Publish keys messages by invoice id so all events of one invoice land on one partition.
func (p *KafkaProducer) Publish(ctx context.Context, event InvoiceEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.InvoiceID),
		Value: b,
	})
	if err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	if err := p.w.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}
