package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

const (
	PaymentStatusPaid = string(stripe.CheckoutSessionPaymentStatusPaid)
	SessionExpired    = string(stripe.CheckoutSessionStatusExpired)
)

var ErrProcessorUnavailable = errors.New("payment processor is unavailable")

// ProcessorError is an error reported by the processor API.
type ProcessorError struct {
	StatusCode int
	Message    string
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("payment processor returned %d: %s", e.StatusCode, e.Message)
}

type SessionRequest struct {
	Items      []domain.LineItem
	SuccessURL string
	CancelURL  string
	Principal  *string
}

// ProcessorSession is the processor's view of a hosted checkout session.
type ProcessorSession struct {
	ID                string
	URL               string
	Status            string
	PaymentStatus     string
	ClientReferenceID string
	AmountTotal       int64
	Currency          string

	Raw string
}

type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*ProcessorSession, error)
	RetrieveSession(ctx context.Context, id string) (*ProcessorSession, error)
}

type GatewayConfig struct {
	BaseURL          string
	SecretKey        string
	AllowedCountries []string
	Timeout          time.Duration
}

// StripeGateway drives hosted checkout sessions through the Stripe client.
type StripeGateway struct {
	cfg      GatewayConfig
	sessions session.Client
	breaker  *gobreaker.CircuitBreaker[*stripe.CheckoutSession]
	log      logrus.FieldLogger
}

func NewStripeGateway(cfg GatewayConfig, log logrus.FieldLogger) *StripeGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	log = log.WithField("component", "payment_gateway")

	backendCfg := &stripe.BackendConfig{
		HTTPClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		LeveledLogger: log,
		// Retries would hide failures from the breaker.
		MaxNetworkRetries: stripe.Int64(0),
		EnableTelemetry:   stripe.Bool(false),
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(cfg.BaseURL)
	}

	return &StripeGateway{
		cfg: cfg,
		sessions: session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
		breaker: gobreaker.NewCircuitBreaker[*stripe.CheckoutSession](gobreaker.Settings{
			Name:        "payment-processor",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
					Warn("circuit breaker state changed")
			},
			// 4xx answers do not trip the breaker.
			IsSuccessful: func(err error) bool {
				var se *stripe.Error
				if errors.As(err, &se) {
					return se.HTTPStatusCode < http.StatusInternalServerError
				}
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
		log: log,
	}
}

func (g *StripeGateway) Configured() bool {
	return g.cfg.SecretKey != ""
}

func (g *StripeGateway) CreateSession(ctx context.Context, req SessionRequest) (*ProcessorSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	if req.Principal != nil {
		params.ClientReferenceID = stripe.String(*req.Principal)
	}
	for _, item := range req.Items {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			product.Description = stripe.String(item.Description)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(item.Currency),
				UnitAmount:  stripe.Int64(item.PriceCents),
				ProductData: product,
			},
		})
	}
	if len(g.cfg.AllowedCountries) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(g.cfg.AllowedCountries),
		}
	}

	cs, err := g.call(func() (*stripe.CheckoutSession, error) {
		return g.sessions.New(params)
	})
	if err != nil {
		return nil, fmt.Errorf("create processor session: %w", err)
	}
	return toProcessorSession(cs)
}

func (g *StripeGateway) RetrieveSession(ctx context.Context, id string) (*ProcessorSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	cs, err := g.call(func() (*stripe.CheckoutSession, error) {
		return g.sessions.Get(id, params)
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve processor session: %w", err)
	}
	return toProcessorSession(cs)
}

func (g *StripeGateway) call(fn func() (*stripe.CheckoutSession, error)) (*stripe.CheckoutSession, error) {
	cs, err := g.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrProcessorUnavailable, err)
	}
	var se *stripe.Error
	if errors.As(err, &se) {
		return nil, &ProcessorError{StatusCode: se.HTTPStatusCode, Message: se.Msg}
	}
	return cs, err
}

func toProcessorSession(cs *stripe.CheckoutSession) (*ProcessorSession, error) {
	if cs == nil || cs.ID == "" {
		return nil, errors.New("processor session has no id")
	}
	ps := &ProcessorSession{
		ID:                cs.ID,
		URL:               cs.URL,
		Status:            string(cs.Status),
		PaymentStatus:     string(cs.PaymentStatus),
		ClientReferenceID: cs.ClientReferenceID,
		AmountTotal:       cs.AmountTotal,
		Currency:          string(cs.Currency),
	}
	if cs.LastResponse != nil {
		ps.Raw = string(cs.LastResponse.RawJSON)
	}
	return ps, nil
}
