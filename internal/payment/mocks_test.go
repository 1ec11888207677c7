package payment

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type resolveCall struct {
	ID       string
	Status   domain.CheckoutSessionStatus
	Response string
	Event    []byte
}

type MockRepo struct {
	mu         sync.Mutex
	Sessions   map[string]*domain.CheckoutSession
	CreateErr  error
	GetErr     error
	ResolveErr error
	Resolves   []resolveCall
	Events     []*OutboxEvent
	Processed  []int
}

func newMockRepo() *MockRepo {
	return &MockRepo{Sessions: make(map[string]*domain.CheckoutSession)}
}

func (m *MockRepo) CreateSession(_ context.Context, s *domain.CheckoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	s.Status = domain.CheckoutSessionOpen
	cp := *s
	m.Sessions[s.ID] = &cp
	return nil
}

func (m *MockRepo) GetSession(_ context.Context, id string) (*domain.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	s, ok := m.Sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockRepo) ResolveSession(_ context.Context, id string, status domain.CheckoutSessionStatus, response string, event []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Resolves = append(m.Resolves, resolveCall{ID: id, Status: status, Response: response, Event: event})
	if m.ResolveErr != nil {
		return m.ResolveErr
	}
	s, ok := m.Sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if s.Status.IsTerminal() {
		return ErrSessionNotOpen
	}
	s.Status = status
	s.Response = &response
	return nil
}

func (m *MockRepo) GetUnprocessedEvents(context.Context, int) ([]*OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Events, nil
}

func (m *MockRepo) MarkEventAsProcessed(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Processed = append(m.Processed, id)
	return nil
}

type MockGateway struct {
	mu        sync.Mutex
	Created   *ProcessorSession
	CreateErr error
	Retrieved *ProcessorSession
	GetErr    error
	Requests  []SessionRequest
	Retrieves int
	// OnRetrieve runs before RetrieveSession returns.
	OnRetrieve func()
}

func (m *MockGateway) CreateSession(_ context.Context, req SessionRequest) (*ProcessorSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	return m.Created, nil
}

func (m *MockGateway) RetrieveSession(context.Context, string) (*ProcessorSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Retrieves++
	if m.OnRetrieve != nil {
		m.OnRetrieve()
	}
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Retrieved, nil
}
