package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var (
	ErrNotReady     = errors.New("backend connection is not ready")
	ErrBreakerOpen  = errors.New("backend circuit breaker is open")
	ErrInvalidToken = errors.New("session token is empty")
)

// Backend is the remote cart store and checkout-session service.
type Backend interface {
	// LoadCart returns nil, nil when the identity has no saved cart.
	LoadCart(ctx context.Context, id domain.Identity) (*domain.RemoteCartRecord, error)
	SaveCart(ctx context.Context, id domain.Identity, lines []domain.CartLine) error
	DeleteCart(ctx context.Context, id domain.Identity) error
	CreateCheckoutSession(ctx context.Context, items []domain.LineItem, successURL, cancelURL string) (string, error)
	GetSessionStatus(ctx context.Context, token string) (domain.SessionStatus, error)
}

type Readiness interface {
	Ready() bool
	WaitReady(ctx context.Context) error
}

// Conn is a backend connection that becomes usable at some point after start.
type Conn interface {
	Backend
	Readiness
}

// StatusError is returned for unexpected HTTP responses.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Code, e.Body)
}

type ctxKeyPrincipal struct{}

// WithIdentity makes the caller identity available to calls that do not take
// one explicitly, such as CreateCheckoutSession.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal{}, id)
}

func identityFromContext(ctx context.Context) domain.Identity {
	if id, ok := ctx.Value(ctxKeyPrincipal{}).(domain.Identity); ok {
		return id
	}
	return domain.Anonymous
}
