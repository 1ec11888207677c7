package cartapi

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/internal/service"
)

type MockCarts struct {
	mu      sync.Mutex
	Records map[string]*domain.RemoteCartRecord
	Err     error
}

func newMockCarts() *MockCarts {
	return &MockCarts{Records: make(map[string]*domain.RemoteCartRecord)}
}

func (m *MockCarts) GetCart(_ context.Context, owner string) (*domain.RemoteCartRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	r, ok := m.Records[owner]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return r, nil
}

func (m *MockCarts) SaveCart(_ context.Context, owner string, lines []domain.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, l := range lines {
		if l.Quantity < 1 {
			return service.ErrInvalidLine
		}
	}
	m.Records[owner] = &domain.RemoteCartRecord{Owner: owner, Lines: lines}
	return nil
}

func (m *MockCarts) DeleteCart(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.Records, owner)
	return nil
}

type createCall struct {
	Principal  *string
	Items      []domain.LineItem
	SuccessURL string
	CancelURL  string
}

type MockCheckout struct {
	mu           sync.Mutex
	IsConfigured bool
	Session      *domain.CheckoutSession
	CreateErr    error
	Statuses     map[string]domain.SessionStatus
	StatusErr    error
	Creates      []createCall
}

func (m *MockCheckout) Configured() bool { return m.IsConfigured }

func (m *MockCheckout) CreateSession(_ context.Context, principal *string, items []domain.LineItem, successURL, cancelURL string) (*domain.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Creates = append(m.Creates, createCall{Principal: principal, Items: items, SuccessURL: successURL, CancelURL: cancelURL})
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	return m.Session, nil
}

func (m *MockCheckout) Status(_ context.Context, id string) (domain.SessionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StatusErr != nil {
		return domain.SessionStatus{}, m.StatusErr
	}
	s, ok := m.Statuses[id]
	if !ok {
		return domain.SessionStatus{}, payment.ErrSessionNotFound
	}
	return s, nil
}
