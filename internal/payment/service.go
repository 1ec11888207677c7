package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

const (
	MsgPaymentNotCompleted = "payment not completed"
	MsgSessionExpired      = "checkout session expired"
)

var (
	ErrNotConfigured = errors.New("payment processor is not configured")
	ErrNoLineItems   = errors.New("checkout session needs at least one line item")
	ErrInvalidItem   = errors.New("line item is invalid")
	ErrMissingURL    = errors.New("success and cancel urls are required")
)

// CheckoutCompletedEvent is published once per completed session with an
// authenticated buyer.
type CheckoutCompletedEvent struct {
	EventID     string    `json:"event_id"`
	CheckoutID  string    `json:"checkout_id"`
	UserID      string    `json:"user_id"`
	TotalCents  int64     `json:"total_cents"`
	Currency    string    `json:"currency"`
	CompletedAt time.Time `json:"completed_at"`
}

type CheckoutService struct {
	repo       Repo
	gateway    Gateway
	configured func() bool
	log        logrus.FieldLogger
}

func NewCheckoutService(repo Repo, gateway Gateway, configured func() bool, log logrus.FieldLogger) *CheckoutService {
	return &CheckoutService{
		repo:       repo,
		gateway:    gateway,
		configured: configured,
		log:        log.WithField("component", "checkout_service"),
	}
}

func (s *CheckoutService) Configured() bool {
	return s.configured()
}

// CreateSession opens a hosted checkout session and records it as OPEN.
func (s *CheckoutService) CreateSession(ctx context.Context, principal *string, items []domain.LineItem, successURL, cancelURL string) (*domain.CheckoutSession, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	if len(items) == 0 {
		return nil, ErrNoLineItems
	}
	if successURL == "" || cancelURL == "" {
		return nil, ErrMissingURL
	}

	var total int64
	currency := items[0].Currency
	for _, it := range items {
		if it.Name == "" || it.Quantity < 1 || it.PriceCents < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidItem, it.Name)
		}
		if it.Currency != currency {
			return nil, fmt.Errorf("%w: mixed currencies %q and %q", ErrInvalidItem, currency, it.Currency)
		}
		total += it.PriceCents * it.Quantity
	}

	ps, err := s.gateway.CreateSession(ctx, SessionRequest{
		Items:      items,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		Principal:  principal,
	})
	if err != nil {
		return nil, err
	}
	if ps.URL == "" {
		return nil, errors.New("processor returned a session without a url")
	}

	session := &domain.CheckoutSession{
		ID:         ps.ID,
		Principal:  principal,
		URL:        ps.URL,
		TotalCents: total,
		Currency:   currency,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"session_id":  session.ID,
		"total_cents": total,
		"items":       len(items),
	}).Info("checkout session created")
	return session, nil
}

// Status resolves a session to Completed or Failed. A session the processor
// has not settled yet reports Failed without being persisted, so a later
// lookup can still complete it.
func (s *CheckoutService) Status(ctx context.Context, id string) (domain.SessionStatus, error) {
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return domain.SessionStatus{}, err
	}
	if session.Status.IsTerminal() {
		return storedStatus(session), nil
	}

	ps, err := s.gateway.RetrieveSession(ctx, id)
	if err != nil {
		return domain.SessionStatus{}, err
	}

	log := s.log.WithField("session_id", id)
	switch {
	case ps.PaymentStatus == PaymentStatusPaid:
		event, err := completedEvent(session)
		if err != nil {
			return domain.SessionStatus{}, err
		}
		if err := s.repo.ResolveSession(ctx, id, domain.CheckoutSessionCompleted, ps.Raw, event); err != nil {
			return s.afterRace(ctx, id, err)
		}
		log.Info("checkout session completed")
		return domain.CompletedStatus(session.Principal, ps.Raw), nil

	case ps.Status == SessionExpired:
		if err := s.repo.ResolveSession(ctx, id, domain.CheckoutSessionFailed, MsgSessionExpired, nil); err != nil {
			return s.afterRace(ctx, id, err)
		}
		log.Info("checkout session expired")
		return domain.FailedStatus(MsgSessionExpired), nil

	default:
		log.WithFields(logrus.Fields{"status": ps.Status, "payment_status": ps.PaymentStatus}).
			Debug("checkout session not settled")
		return domain.FailedStatus(MsgPaymentNotCompleted), nil
	}
}

// afterRace handles a concurrent lookup having resolved the session first.
func (s *CheckoutService) afterRace(ctx context.Context, id string, err error) (domain.SessionStatus, error) {
	if !errors.Is(err, ErrSessionNotOpen) {
		return domain.SessionStatus{}, err
	}
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return domain.SessionStatus{}, err
	}
	return storedStatus(session), nil
}

func storedStatus(session *domain.CheckoutSession) domain.SessionStatus {
	var response string
	if session.Response != nil {
		response = *session.Response
	}
	if session.Status == domain.CheckoutSessionCompleted {
		return domain.CompletedStatus(session.Principal, response)
	}
	return domain.FailedStatus(response)
}

func completedEvent(session *domain.CheckoutSession) ([]byte, error) {
	if session.Principal == nil || !domain.NewIdentity(*session.Principal).IsAuthenticated() {
		return nil, nil
	}
	event, err := json.Marshal(CheckoutCompletedEvent{
		EventID:     uuid.NewString(),
		CheckoutID:  session.ID,
		UserID:      *session.Principal,
		TotalCents:  session.TotalCents,
		Currency:    session.Currency,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal checkout event: %w", err)
	}
	return event, nil
}
