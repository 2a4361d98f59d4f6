package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"fxledger/internal/config"
	"fxledger/internal/domain"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const (
	EventNeedsReauthorization = "needs_reauthorization"
	EventPassCompleted        = "sync_pass_completed"
)

// Event is the envelope of every message on the sync events topic.
type Event struct {
	Type       string    `json:"type"`
	TenantID   string    `json:"tenant_id"`
	OccurredAt time.Time `json:"occurred_at"`

	Reason string `json:"reason,omitempty"`

	PassID      *uuid.UUID          `json:"pass_id,omitempty"`
	AsOfDate    string              `json:"as_of_date,omitempty"`
	Interrupted bool                `json:"interrupted,omitempty"`
	Summary     *domain.SyncSummary `json:"summary,omitempty"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends sync events keyed by tenant id, so one tenant's events stay ordered.
type Publisher struct {
	writer messageWriter
	now    func() time.Time
}

func (p *Publisher) PublishNeedsReauthorization(ctx context.Context, tenantID string, reason string) error {
	return p.publish(ctx, Event{
		Type:     EventNeedsReauthorization,
		TenantID: tenantID,
		Reason:   reason,
	})
}

func (p *Publisher) PublishPassCompleted(ctx context.Context, result *domain.SyncResult) error {
	summary := result.Summary()
	passID := result.PassID
	return p.publish(ctx, Event{
		Type:        EventPassCompleted,
		TenantID:    result.TenantID,
		PassID:      &passID,
		AsOfDate:    result.AsOfDate.Format(domain.DateLayout),
		Interrupted: result.Interrupted,
		Summary:     &summary,
	})
}

func (p *Publisher) publish(ctx context.Context, event Event) error {
	event.OccurredAt = p.now().UTC()

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.TenantID),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err = p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to send %s event: %w", event.Type, err)
	}

	logrus.WithFields(logrus.Fields{"tenant_id": event.TenantID, "event": event.Type}).Debug("event published")
	return nil
}

func (p *Publisher) Close() error {
	logrus.Info("Closing kafka publisher")
	return p.writer.Close()
}

func NewPublisher(cfg config.Kafka) *Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	logrus.WithField("topic", cfg.Topic).Info("✅ Kafka publisher initialized")
	return &Publisher{writer: writer, now: time.Now}
}

// NoopPublisher drops events; used when kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishNeedsReauthorization(context.Context, string, string) error { return nil }

func (NoopPublisher) PublishPassCompleted(context.Context, *domain.SyncResult) error { return nil }

func (NoopPublisher) Close() error { return nil }
