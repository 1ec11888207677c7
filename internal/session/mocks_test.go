package session

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// MockConn implements backend.Conn; only the status lookup is exercised.
type MockConn struct {
	NotReady bool
	Status   domain.SessionStatus
	Err      error
	// Gate, when set, blocks the lookup until closed.
	Gate    chan struct{}
	Started chan struct{}

	mu     sync.Mutex
	Tokens []string
}

func (m *MockConn) Ready() bool { return !m.NotReady }

func (m *MockConn) WaitReady(ctx context.Context) error {
	if !m.NotReady {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *MockConn) LoadCart(context.Context, domain.Identity) (*domain.RemoteCartRecord, error) {
	return nil, nil
}

func (m *MockConn) SaveCart(context.Context, domain.Identity, []domain.CartLine) error { return nil }

func (m *MockConn) DeleteCart(context.Context, domain.Identity) error { return nil }

func (m *MockConn) CreateCheckoutSession(context.Context, []domain.LineItem, string, string) (string, error) {
	return "", nil
}

func (m *MockConn) GetSessionStatus(_ context.Context, token string) (domain.SessionStatus, error) {
	m.mu.Lock()
	m.Tokens = append(m.Tokens, token)
	m.mu.Unlock()
	if m.Started != nil {
		close(m.Started)
	}
	if m.Gate != nil {
		<-m.Gate
	}
	return m.Status, m.Err
}

func (m *MockConn) Lookups() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Tokens...)
}

type MockCart struct {
	mu     sync.Mutex
	Clears int
}

func (m *MockCart) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Clears++
}

func (m *MockCart) ClearCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Clears
}
