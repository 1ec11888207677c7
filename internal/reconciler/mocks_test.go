package reconciler

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type saveCall struct {
	Identity domain.Identity
	Lines    []domain.CartLine
}

// MockConn implements backend.Conn for testing
type MockConn struct {
	ready atomic.Bool

	mu      sync.Mutex
	Records map[domain.Identity]*domain.RemoteCartRecord
	LoadErr error
	SaveErr error
	// LoadGate, when set, blocks LoadCart until closed.
	LoadGate chan struct{}

	Loads   []domain.Identity
	Saves   []saveCall
	Deletes []domain.Identity
}

func NewMockConn(ready bool) *MockConn {
	m := &MockConn{Records: map[domain.Identity]*domain.RemoteCartRecord{}}
	m.ready.Store(ready)
	return m
}

func (m *MockConn) Ready() bool { return m.ready.Load() }

func (m *MockConn) WaitReady(ctx context.Context) error {
	if m.Ready() {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *MockConn) LoadCart(_ context.Context, id domain.Identity) (*domain.RemoteCartRecord, error) {
	m.mu.Lock()
	m.Loads = append(m.Loads, id)
	gate := m.LoadGate
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Records[id], nil
}

func (m *MockConn) SaveCart(_ context.Context, id domain.Identity, lines []domain.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves = append(m.Saves, saveCall{Identity: id, Lines: lines})
	return m.SaveErr
}

func (m *MockConn) DeleteCart(_ context.Context, id domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes = append(m.Deletes, id)
	return nil
}

func (m *MockConn) CreateCheckoutSession(context.Context, []domain.LineItem, string, string) (string, error) {
	return "", nil
}

func (m *MockConn) GetSessionStatus(context.Context, string) (domain.SessionStatus, error) {
	return domain.SessionStatus{}, nil
}

func (m *MockConn) LoadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Loads)
}

func (m *MockConn) LoadCalls() []domain.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Identity(nil), m.Loads...)
}

func (m *MockConn) SaveCalls() []saveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]saveCall(nil), m.Saves...)
}

func (m *MockConn) DeleteCalls() []domain.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Identity(nil), m.Deletes...)
}

type nopNotifier struct{}

func (nopNotifier) Success(string, string) {}
func (nopNotifier) Error(string)           {}
