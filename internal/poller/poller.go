package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/fjod/go_cart/storefront/internal/repository"
)

const (
	consumerGroup = "cartd-cart-cleanup"
	retryBackoff  = time.Second
)

// CartDeleter removes a principal's saved cart and its cache entry.
type CartDeleter interface {
	DeleteCart(ctx context.Context, owner string) error
}

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Poller empties the saved cart of every buyer whose checkout completed.
type Poller struct {
	carts  CartDeleter
	reader MessageReader
	log    logrus.FieldLogger
}

func NewPoller(carts CartDeleter, topic string, log logrus.FieldLogger, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  consumerGroup,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{carts: carts, reader: reader, log: log.WithField("component", "cart_poller")}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.WithError(err).Error("error reading message")
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				return
			}
			continue
		}
		if err := p.handle(ctx, m); err != nil {
			p.log.WithError(err).WithField("offset", m.Offset).Error("failed to handle checkout event")
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.WithError(err).Error("error closing reader")
	}
}

func (p *Poller) handle(ctx context.Context, m kafka.Message) error {
	var event payment.CheckoutCompletedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return fmt.Errorf("error parsing message: %w", err)
	}
	if event.UserID == "" {
		return errors.New("missing user_id")
	}

	err := p.carts.DeleteCart(ctx, event.UserID)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"checkout_id": event.CheckoutID,
		"owner":       event.UserID,
	}).Info("cleared saved cart after checkout")
	return nil
}
