package checkout

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type MockCart struct {
	lines []domain.CartLine
}

func (m *MockCart) Lines() []domain.CartLine {
	return append([]domain.CartLine(nil), m.lines...)
}

type fixedIdentity domain.Identity

func (f fixedIdentity) Identity() domain.Identity { return domain.Identity(f) }

type sessionCall struct {
	Items      []domain.LineItem
	SuccessURL string
	CancelURL  string
}

// MockConn implements backend.Conn; only CreateCheckoutSession is exercised.
type MockConn struct {
	NotReady bool
	URL      string
	Err      error
	// Gate, when set, blocks CreateCheckoutSession until closed.
	Gate    chan struct{}
	Started chan struct{}

	mu    sync.Mutex
	Calls []sessionCall
}

func (m *MockConn) Ready() bool                         { return !m.NotReady }
func (m *MockConn) WaitReady(ctx context.Context) error { return nil }

func (m *MockConn) LoadCart(context.Context, domain.Identity) (*domain.RemoteCartRecord, error) {
	return nil, nil
}

func (m *MockConn) SaveCart(context.Context, domain.Identity, []domain.CartLine) error {
	return nil
}

func (m *MockConn) DeleteCart(context.Context, domain.Identity) error {
	return nil
}

func (m *MockConn) CreateCheckoutSession(_ context.Context, items []domain.LineItem, successURL, cancelURL string) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, sessionCall{Items: items, SuccessURL: successURL, CancelURL: cancelURL})
	m.mu.Unlock()
	if m.Started != nil {
		close(m.Started)
	}
	if m.Gate != nil {
		<-m.Gate
	}
	return m.URL, m.Err
}

func (m *MockConn) GetSessionStatus(context.Context, string) (domain.SessionStatus, error) {
	return domain.SessionStatus{}, nil
}

type MockNotifier struct {
	mu     sync.Mutex
	Errors []string
}

func (m *MockNotifier) Success(string, string) {}

func (m *MockNotifier) Error(title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors = append(m.Errors, title)
}

type recordingNavigator struct {
	urls []string
}

func (r *recordingNavigator) Navigate(url string) { r.urls = append(r.urls, url) }
