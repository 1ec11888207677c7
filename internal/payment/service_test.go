package payment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

func newTestService(configured bool) (*CheckoutService, *MockRepo, *MockGateway) {
	log, _ := test.NewNullLogger()
	repo := newMockRepo()
	gw := &MockGateway{Created: &ProcessorSession{ID: "cs_test_1", URL: "https://pay.example/c/cs_test_1"}}
	return NewCheckoutService(repo, gw, func() bool { return configured }, log), repo, gw
}

func testItems() []domain.LineItem {
	return []domain.LineItem{
		{Name: "P", Currency: "usd", Quantity: 2, PriceCents: 2999},
		{Name: "Q", Currency: "usd", Quantity: 1, PriceCents: 1000},
	}
}

func strPtr(s string) *string { return &s }

func TestCreateSession_Success(t *testing.T) {
	svc, repo, gw := newTestService(true)

	s, err := svc.CreateSession(context.Background(), strPtr("alice"), testItems(), "https://shop/success", "https://shop/cancel")

	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", s.ID)
	assert.Equal(t, "https://pay.example/c/cs_test_1", s.URL)
	assert.Equal(t, int64(6998), s.TotalCents)
	assert.Equal(t, domain.CheckoutSessionOpen, repo.Sessions["cs_test_1"].Status)
	require.Len(t, gw.Requests, 1)
	assert.Equal(t, "alice", *gw.Requests[0].Principal)
}

func TestCreateSession_Validation(t *testing.T) {
	tests := []struct {
		name       string
		configured bool
		items      []domain.LineItem
		success    string
		want       error
	}{
		{name: "not configured", configured: false, items: testItems(), success: "s", want: ErrNotConfigured},
		{name: "no items", configured: true, items: nil, success: "s", want: ErrNoLineItems},
		{name: "no urls", configured: true, items: testItems(), success: "", want: ErrMissingURL},
		{name: "zero quantity", configured: true, items: []domain.LineItem{{Name: "P", Currency: "usd"}}, success: "s", want: ErrInvalidItem},
		{name: "mixed currency", configured: true, items: []domain.LineItem{
			{Name: "P", Currency: "usd", Quantity: 1},
			{Name: "Q", Currency: "eur", Quantity: 1},
		}, success: "s", want: ErrInvalidItem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, gw := newTestService(tt.configured)

			_, err := svc.CreateSession(context.Background(), nil, tt.items, tt.success, "c")

			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, gw.Requests)
			assert.Empty(t, repo.Sessions)
		})
	}
}

func TestCreateSession_GatewayError(t *testing.T) {
	svc, repo, gw := newTestService(true)
	gw.CreateErr = &ProcessorError{StatusCode: 400, Message: "bad request"}

	_, err := svc.CreateSession(context.Background(), nil, testItems(), "s", "c")

	var pe *ProcessorError
	assert.ErrorAs(t, err, &pe)
	assert.Empty(t, repo.Sessions)
}

func seedOpen(repo *MockRepo, principal *string) {
	repo.Sessions["cs_test_1"] = &domain.CheckoutSession{
		ID:         "cs_test_1",
		Principal:  principal,
		Status:     domain.CheckoutSessionOpen,
		TotalCents: 6998,
		Currency:   "usd",
	}
}

func TestStatus_PaidCompletesAndEmitsEvent(t *testing.T) {
	svc, repo, gw := newTestService(true)
	seedOpen(repo, strPtr("alice"))
	gw.Retrieved = &ProcessorSession{ID: "cs_test_1", Status: "complete", PaymentStatus: "paid", Raw: `{"id":"cs_test_1"}`}

	status, err := svc.Status(context.Background(), "cs_test_1")

	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusCompleted, status.Kind)
	assert.Equal(t, "alice", *status.Completed.UserPrincipal)
	assert.Equal(t, `{"id":"cs_test_1"}`, status.Completed.Response)

	require.Len(t, repo.Resolves, 1)
	var event CheckoutCompletedEvent
	require.NoError(t, json.Unmarshal(repo.Resolves[0].Event, &event))
	assert.Equal(t, "alice", event.UserID)
	assert.Equal(t, int64(6998), event.TotalCents)
	_, err = uuid.Parse(event.EventID)
	assert.NoError(t, err)
}

func TestStatus_PaidAnonymousHasNoEvent(t *testing.T) {
	svc, repo, gw := newTestService(true)
	seedOpen(repo, nil)
	gw.Retrieved = &ProcessorSession{ID: "cs_test_1", PaymentStatus: "paid"}

	status, err := svc.Status(context.Background(), "cs_test_1")

	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusCompleted, status.Kind)
	assert.Nil(t, status.Completed.UserPrincipal)
	require.Len(t, repo.Resolves, 1)
	assert.Nil(t, repo.Resolves[0].Event)
}

func TestStatus_TerminalServedFromStore(t *testing.T) {
	svc, repo, gw := newTestService(true)
	seedOpen(repo, nil)
	repo.Sessions["cs_test_1"].Status = domain.CheckoutSessionFailed
	repo.Sessions["cs_test_1"].Response = strPtr(MsgSessionExpired)

	status, err := svc.Status(context.Background(), "cs_test_1")

	require.NoError(t, err)
	assert.Equal(t, domain.FailedStatus(MsgSessionExpired), status)
	assert.Zero(t, gw.Retrieves)
}

func TestStatus_Expired(t *testing.T) {
	svc, repo, gw := newTestService(true)
	seedOpen(repo, nil)
	gw.Retrieved = &ProcessorSession{ID: "cs_test_1", Status: "expired", PaymentStatus: "unpaid"}

	status, err := svc.Status(context.Background(), "cs_test_1")

	require.NoError(t, err)
	assert.Equal(t, domain.FailedStatus(MsgSessionExpired), status)
	assert.Equal(t, domain.CheckoutSessionFailed, repo.Sessions["cs_test_1"].Status)
}

func TestStatus_UnpaidIsNotPersisted(t *testing.T) {
	svc, repo, gw := newTestService(true)
	seedOpen(repo, nil)
	gw.Retrieved = &ProcessorSession{ID: "cs_test_1", Status: "open", PaymentStatus: "unpaid"}

	status, err := svc.Status(context.Background(), "cs_test_1")

	require.NoError(t, err)
	assert.Equal(t, domain.FailedStatus(MsgPaymentNotCompleted), status)
	assert.Empty(t, repo.Resolves)
	assert.Equal(t, domain.CheckoutSessionOpen, repo.Sessions["cs_test_1"].Status)
}

func TestStatus_NotFound(t *testing.T) {
	svc, _, _ := newTestService(true)

	_, err := svc.Status(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStatus_GatewayError(t *testing.T) {
	svc, repo, gw := newTestService(true)
	seedOpen(repo, nil)
	gw.GetErr = errors.New("connection reset")

	_, err := svc.Status(context.Background(), "cs_test_1")

	assert.EqualError(t, err, "connection reset")
}

func TestStatus_LostRaceReadsStoredResult(t *testing.T) {
	svc, repo, gw := newTestService(true)
	seedOpen(repo, strPtr("alice"))
	gw.Retrieved = &ProcessorSession{ID: "cs_test_1", PaymentStatus: "paid", Raw: "raw"}
	gw.OnRetrieve = func() {
		repo.Sessions["cs_test_1"].Status = domain.CheckoutSessionCompleted
		repo.Sessions["cs_test_1"].Response = strPtr("first")
	}

	status, err := svc.Status(context.Background(), "cs_test_1")

	require.NoError(t, err)
	assert.Equal(t, "first", status.Completed.Response)
	assert.Equal(t, 1, gw.Retrieves)
	require.Len(t, repo.Resolves, 1)
}
