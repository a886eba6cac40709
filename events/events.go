// Package events publishes notifications when statements are issued.
//
// Publishing is best effort: callers log failures and carry on, a statement
// is never refused because a downstream consumer is unavailable.
package events

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	TopicStatementIssued = "statement.issued"
	TopicCheckoutSettled = "checkout.settled"
)

// StatementIssued is emitted for ledger statements and collection reports.
type StatementIssued struct {
	StatementID       string    `json:"statement_id"`
	Kind              string    `json:"kind"`
	StudentID         string    `json:"student_id,omitempty"`
	TotalCashReceived string    `json:"total_cash_received"`
	OutstandingDue    string    `json:"outstanding_due"`
	PrecisionDegraded bool      `json:"precision_degraded"`
	IssuedAt          time.Time `json:"issued_at"`
}

// CheckoutSettled is emitted when a checkout statement is produced.
type CheckoutSettled struct {
	StatementID       string    `json:"statement_id"`
	StudentID         string    `json:"student_id"`
	TotalRefundAmount string    `json:"total_refund_amount"`
	RemainingDueOwed  string    `json:"remaining_due_owed"`
	SettledAt         time.Time `json:"settled_at"`
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
	Close() error
}

// =============================================================================
// KAFKA
// =============================================================================

type KafkaPublisher struct {
	writer *kafka.Writer
	prefix string
}

// NewKafkaPublisher writes to the given brokers. The message topic is the
// event topic, prefixed when prefix is non-empty.
func NewKafkaPublisher(brokers []string, prefix string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		prefix: prefix,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.prefix + topic,
		Key:   []byte(key),
		Value: data,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// =============================================================================
// LOG
// =============================================================================

// LogPublisher writes events to the structured log. Used when no broker is
// configured.
type LogPublisher struct {
	Logger *zap.Logger
}

func (p *LogPublisher) Publish(_ context.Context, topic string, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.Logger.Info("event published",
		zap.String("topic", topic),
		zap.String("key", key),
		zap.ByteString("payload", data),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
