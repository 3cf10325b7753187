package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/dmitrymomot/mailvault"
)

// Writer is the subset of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SentEvent is the message published for every persisted delivery.
type SentEvent struct {
	SentAt     time.Time  `json:"sent_at"`
	ResentFrom *uuid.UUID `json:"resent_from,omitempty"`
	Template   string     `json:"template,omitempty"`
	From       string     `json:"from"`
	Subject    string     `json:"subject"`
	To         []string   `json:"to"`
	CC         []string   `json:"cc,omitempty"`
	ID         uuid.UUID  `json:"id"`
	TestMode   bool       `json:"test_mode"`
}

// KafkaPublisher publishes a SentEvent per delivery to a Kafka topic.
type KafkaPublisher struct {
	writer Writer
	logger *slog.Logger
}

// Option configures a KafkaPublisher.
type Option func(*KafkaPublisher)

// WithLogger sets the publisher logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *KafkaPublisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewKafkaPublisher creates a publisher writing to cfg.Topic on cfg.Brokers.
func NewKafkaPublisher(cfg Config, opts ...Option) (*KafkaPublisher, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%w: at least one broker is required", ErrInvalidConfig)
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidConfig)
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		AllowAutoTopicCreation: false,
	}

	return NewWithWriter(w, opts...), nil
}

// NewWithWriter creates a publisher on top of an existing writer.
func NewWithWriter(w Writer, opts ...Option) *KafkaPublisher {
	p := &KafkaPublisher{
		writer: w,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish writes the delivery event. Messages are keyed by delivery ID, so
// events of one message land on one partition.
// It has the mailvault.AfterSendHook signature.
func (p *KafkaPublisher) Publish(ctx context.Context, d *mailvault.Delivery) error {
	if d == nil || d.Email == nil {
		return nil
	}

	ev := SentEvent{
		SentAt:   d.SentAt,
		Template: d.Template,
		From:     d.Email.From,
		Subject:  d.Email.Subject,
		To:       d.Email.To,
		CC:       d.Email.CC,
		ID:       d.ID,
		TestMode: d.TestMode,
	}
	if d.ResentFrom != uuid.Nil {
		from := d.ResentFrom
		ev.ResentFrom = &from
	}

	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}

	msg := kafka.Message{
		Key:   []byte(d.ID.String()),
		Value: value,
		Time:  d.SentAt,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "event", Value: []byte("mail.sent")},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish sent event",
			slog.String("message_id", d.ID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
