package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/jeovahfialho/trade-ledger/internal/domain"
	"github.com/jeovahfialho/trade-ledger/pkg/logger"
	"github.com/jeovahfialho/trade-ledger/pkg/metrics"
)

// Publisher pushes TradeRecorded events to a Kafka topic. Publishing is
// strictly best-effort: settlement never blocks on the broker, the same
// way the original backend kept matching alive when the chain node was
// down. Failed publishes are logged and counted, nothing more.
type Publisher struct {
	writer *kafka.Writer
	topic  string
}

// EnsureTopic attempts to create the topic (best-effort). It takes the
// same comma-separated broker list as NewPublisher; creation only needs
// one reachable broker, so it dials the first entry.
func EnsureTopic(ctx context.Context, brokers, topic string) {
	broker := firstBroker(brokers)
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		logger.Warn("ensure topic: dial failed", zap.String("broker", broker), zap.Error(err))
		return
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Debug("ensure topic: create failed (ok if exists)",
			zap.String("topic", topic), zap.Error(err))
	}
}

func firstBroker(brokers string) string {
	return strings.TrimSpace(strings.Split(brokers, ",")[0])
}

func NewPublisher(brokers, topic string) *Publisher {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      strings.Split(brokers, ","),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		Dialer:       dialer,
		BatchTimeout: 200 * time.Millisecond,
		RequiredAcks: int(kafka.RequireOne),
	})

	return &Publisher{writer: w, topic: topic}
}

func (p *Publisher) Publish(ctx context.Context, ev domain.TradeRecorded) {
	payload, err := json.Marshal(ev)
	if err != nil {
		metrics.RecordEventPublished("kafka", "error")
		logger.Error("encoding trade event", zap.Error(err))
		return
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.TradeID),
		Value: payload,
	})
	if err != nil {
		metrics.RecordEventPublished("kafka", "error")
		logger.Warn("publishing trade event",
			zap.String("trade_id", ev.TradeID),
			zap.String("topic", p.topic),
			zap.Error(err))
		return
	}

	metrics.RecordEventPublished("kafka", "success")
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
