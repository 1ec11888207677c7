package publisher

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/fjod/go_cart/storefront/internal/payment"
)

const batchSize = 100

// EventSource is the outbox side of the payment repository.
type EventSource interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*payment.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller publishes committed outbox events to Kafka. Delivery is at
// least once: an event is marked processed only after the write succeeds.
type OutboxPoller struct {
	timeout   time.Duration
	eventTick time.Duration
	repo      EventSource
	writer    MessageWriter
	log       logrus.FieldLogger
}

func NewOutboxPoller(repo EventSource, topic string, log logrus.FieldLogger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		timeout:   5 * time.Second,
		eventTick: time.Second,
		repo:      repo,
		writer:    w,
		log:       log.WithField("component", "outbox_poller"),
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.eventTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() {
	if err := p.writer.Close(); err != nil {
		p.log.WithError(err).Error("error closing kafka writer")
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.log.WithError(err).Error("failed to fetch outbox events")
		return
	}

	for _, event := range events {
		log := p.log.WithField("event_id", event.ID).WithField("checkout_id", event.AggregateID)
		if err := p.publish(ctx, event); err != nil {
			log.WithError(err).Error("failed to publish event")
			continue
		}
		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			log.WithError(err).Error("failed to mark event as processed")
			continue
		}
		log.Debug("event published")
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *payment.OutboxEvent) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	})
}
