package kafka

import (
	"context"
	"strings"
	"time"

	segmentio "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Producer interface {
	SendMessage(ctx context.Context, topic string, key []byte, value []byte) error
	Close() error
}

// KafkaProducer writes shipment events to Kafka.
type KafkaProducer struct {
	writer *segmentio.Writer
}

func NewKafkaProducer(brokers string) *KafkaProducer {
	return &KafkaProducer{
		writer: &segmentio.Writer{
			Addr:         segmentio.TCP(strings.Split(brokers, ",")...),
			Balancer:     &segmentio.LeastBytes{},
			RequiredAcks: segmentio.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *KafkaProducer) SendMessage(ctx context.Context, topic string, key []byte, value []byte) error {
	return p.writer.WriteMessages(ctx, segmentio.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// ConsoleProducer logs events instead of publishing them. Used when no broker
// is configured, e.g. in local development.
type ConsoleProducer struct {
	logger *zap.Logger
}

func NewConsoleProducer(logger *zap.Logger) *ConsoleProducer {
	logger.Info("no kafka brokers configured, shipment events go to the log")
	return &ConsoleProducer{logger: logger}
}

func (p *ConsoleProducer) SendMessage(ctx context.Context, topic string, key []byte, value []byte) error {
	p.logger.Info("shipment event",
		zap.String("topic", topic),
		zap.ByteString("key", key),
		zap.ByteString("value", value))
	return nil
}

func (p *ConsoleProducer) Close() error {
	return nil
}
