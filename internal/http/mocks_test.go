package http

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/identity"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/fjod/go_cart/storefront/internal/session"
)

const testCatalog = `[
  {"id":"mug","name":"Coffee Mug","price_cents":1000,"category":"Home","in_stock":true},
  {"id":"hat","name":"Sun Hat","price_cents":2999,"category":"Clothing","in_stock":true},
  {"id":"tent","name":"Tent","price_cents":19900,"category":"Sports","in_stock":false}
]`

type MockConn struct {
	NotReady   bool
	SessionURL string
	SessionErr error
	Status     domain.SessionStatus

	mu         sync.Mutex
	SuccessURL string
	CancelURL  string
	Lookups    []string
}

func (m *MockConn) Ready() bool { return !m.NotReady }

func (m *MockConn) WaitReady(ctx context.Context) error {
	if m.NotReady {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (m *MockConn) LoadCart(context.Context, domain.Identity) (*domain.RemoteCartRecord, error) {
	return nil, nil
}

func (m *MockConn) SaveCart(context.Context, domain.Identity, []domain.CartLine) error { return nil }

func (m *MockConn) DeleteCart(context.Context, domain.Identity) error { return nil }

func (m *MockConn) CreateCheckoutSession(_ context.Context, _ []domain.LineItem, successURL, cancelURL string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SuccessURL = successURL
	m.CancelURL = cancelURL
	return m.SessionURL, m.SessionErr
}

func (m *MockConn) GetSessionStatus(_ context.Context, token string) (domain.SessionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lookups = append(m.Lookups, token)
	return m.Status, nil
}

type MockSink struct {
	mu      sync.Mutex
	Pushes  int
	Deletes int
}

func (m *MockSink) Push([]domain.CartLine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pushes++
}

func (m *MockSink) Delete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes++
}

type testEnv struct {
	conn     *MockConn
	sink     *MockSink
	store    *cart.Store
	identity *identity.Session
	feed     *notify.Feed
	handler  *Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log, _ := test.NewNullLogger()

	cat, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)

	env := &testEnv{
		conn: &MockConn{SessionURL: "https://pay.example/c/cs_test_1"},
		sink: &MockSink{},
	}
	env.feed = notify.NewFeed(10, log)
	env.store = cart.NewStore(env.sink, env.feed)
	env.identity = identity.NewSession(log)

	env.handler = NewHandler(Deps{
		Catalog:  cat,
		Cart:     env.store,
		Identity: env.identity,
		Checkout: checkout.NewInitiator(env.store, env.conn, env.identity, env.feed, log),
		Resolver: session.NewResolver(env.conn, env.store, log),
		Feed:     env.feed,
		Log:      log,

		PublicBaseURL:  "https://shop.example/",
		ResolveTimeout: time.Second,
	})
	return env
}
