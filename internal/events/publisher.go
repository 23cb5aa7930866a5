// Package events publishes service events to the analytics pipeline.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// FeedbackEvent describes one feedback submission
type FeedbackEvent struct {
	AppID          string    `json:"app_id"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	EndUserID      string    `json:"end_user_id"`
	Rating         string    `json:"rating"` // like, dislike or empty when cleared
	Content        string    `json:"content,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// FeedbackPublisher emits feedback events. Publishing is best-effort
// and must never fail the originating request.
type FeedbackPublisher interface {
	PublishFeedback(ctx context.Context, event FeedbackEvent)
	Close() error
}

// KafkaFeedbackPublisher wraps a Kafka writer
type KafkaFeedbackPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaFeedbackPublisher creates a new KafkaFeedbackPublisher
func NewKafkaFeedbackPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaFeedbackPublisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &KafkaFeedbackPublisher{writer: w, logger: logger}
}

// PublishFeedback sends a feedback event to Kafka
func (p *KafkaFeedbackPublisher) PublishFeedback(ctx context.Context, event FeedbackEvent) {
	b, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal feedback event", zap.Error(err))
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.MessageID),
		Value: b,
	})
	if err != nil {
		p.logger.Error("Kafka publish error", zap.String("message_id", event.MessageID), zap.Error(err))
	}
}

// Close shuts down the Kafka writer
func (p *KafkaFeedbackPublisher) Close() error {
	return p.writer.Close()
}
