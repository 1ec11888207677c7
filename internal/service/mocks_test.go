package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
)

type mockRepository struct {
	m       sync.RWMutex
	records map[string]*domain.RemoteCartRecord
	err     error
	gets    atomic.Int32
	// gate, when set, blocks GetCart until closed.
	gate chan struct{}
	// afterGet, when set, runs after GetCart has read its result.
	afterGet func()
}

func newMockRepository() *mockRepository {
	return &mockRepository{records: make(map[string]*domain.RemoteCartRecord)}
}

func (m *mockRepository) GetCart(_ context.Context, owner string) (*domain.RemoteCartRecord, error) {
	m.gets.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	m.m.RLock()
	err := m.err
	r, ok := m.records[owner]
	m.m.RUnlock()

	if m.afterGet != nil {
		m.afterGet()
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return r, nil
}

func (m *mockRepository) UpsertCart(_ context.Context, owner string, lines []domain.CartLine) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records[owner] = &domain.RemoteCartRecord{Owner: owner, Lines: lines}
	return nil
}

func (m *mockRepository) DeleteCart(_ context.Context, owner string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.records, owner)
	return nil
}

type mockCache struct {
	m       sync.RWMutex
	records map[string]*domain.RemoteCartRecord
	err     error
	deletes int
}

func newMockCache() *mockCache {
	return &mockCache{records: make(map[string]*domain.RemoteCartRecord)}
}

func (m *mockCache) Get(_ context.Context, owner string) (*domain.RemoteCartRecord, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.records[owner]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return r, nil
}

func (m *mockCache) Set(_ context.Context, owner string, record *domain.RemoteCartRecord) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records[owner] = record
	return nil
}

func (m *mockCache) Delete(_ context.Context, owner string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.deletes++
	delete(m.records, owner)
	return m.err
}

func (m *mockCache) has(owner string) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	_, ok := m.records[owner]
	return ok
}

func (m *mockCache) deleteCount() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.deletes
}
