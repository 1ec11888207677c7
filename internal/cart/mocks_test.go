package cart

import (
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// MockSink records every write-through request
type MockSink struct {
	mu      sync.Mutex
	Pushes  [][]domain.CartLine
	Deletes int
}

func (m *MockSink) Push(lines []domain.CartLine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pushes = append(m.Pushes, lines)
}

func (m *MockSink) Delete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes++
}

func (m *MockSink) LastPush() []domain.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Pushes) == 0 {
		return nil
	}
	return m.Pushes[len(m.Pushes)-1]
}

// MockNotifier records acknowledgments
type MockNotifier struct {
	Successes []string
	Details   []string
	Errors    []string
}

func (m *MockNotifier) Success(title, detail string) {
	m.Successes = append(m.Successes, title)
	m.Details = append(m.Details, detail)
}

func (m *MockNotifier) Error(title string) {
	m.Errors = append(m.Errors, title)
}

func newTestStore() (*Store, *MockSink, *MockNotifier) {
	sink := &MockSink{}
	n := &MockNotifier{}
	return NewStore(sink, n), sink, n
}

var (
	productP = domain.Product{ID: "p", Name: "P", PriceCents: 2999, Description: "pee", Glyph: "🎧"}
	productQ = domain.Product{ID: "q", Name: "Q", PriceCents: 1000, Description: "queue", Glyph: "⌚"}
)
