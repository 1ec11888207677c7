package publisher

import (
	"context"
	"slices"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/fjod/go_cart/storefront/internal/payment"
)

type MockEventSource struct {
	mu        sync.Mutex
	Events    []*payment.OutboxEvent
	FetchErr  error
	MarkErr   error
	Processed []int
}

// GetUnprocessedEvents returns every event not yet marked processed.
func (m *MockEventSource) GetUnprocessedEvents(context.Context, int) ([]*payment.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	var pending []*payment.OutboxEvent
	for _, e := range m.Events {
		if !slices.Contains(m.Processed, e.ID) {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

func (m *MockEventSource) MarkEventAsProcessed(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MarkErr != nil {
		return m.MarkErr
	}
	m.Processed = append(m.Processed, id)
	return nil
}

func (m *MockEventSource) processed() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.Processed...)
}

type MockWriter struct {
	mu       sync.Mutex
	Messages []kafka.Message
	// FailKeys makes writes for these keys fail.
	FailKeys map[string]error
	Closed   bool
}

func (m *MockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		if err := m.FailKeys[string(msg.Key)]; err != nil {
			return err
		}
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}
