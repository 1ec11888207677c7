package session

import (
	"context"
	"net/url"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/sirupsen/logrus"
)

// QueryParam is the return-URL query parameter carrying the session token.
const QueryParam = "session_id"

const (
	MsgNoSession    = "no session identifier present"
	MsgNotConfirmed = "payment could not be confirmed"
	MsgVerifyFailed = "failed to verify payment"
)

type Cart interface {
	Clear()
}

type View struct {
	State     domain.ConfirmationState `json:"status"`
	Message   string                   `json:"message,omitempty"`
	SessionID string                   `json:"session_id,omitempty"`
}

// Resolver confirms a checkout session after the shopper returns from the
// payment processor.
type Resolver struct {
	conn backend.Conn
	cart Cart
	log  logrus.FieldLogger
}

func NewResolver(conn backend.Conn, cart Cart, log logrus.FieldLogger) *Resolver {
	return &Resolver{conn: conn, cart: cart, log: log.WithField("component", "session")}
}

// Page is a single landing on the return page. It starts in Loading and moves
// at most once, to Confirmed or Error.
type Page struct {
	r *Resolver

	mu   sync.Mutex
	view View
}

func (r *Resolver) NewPage() *Page {
	return &Page{r: r, view: View{State: domain.ConfirmationLoading}}
}

// Resolve runs a fresh page to completion and returns its view. If ctx ends
// first the view stays Loading.
func (r *Resolver) Resolve(ctx context.Context, returnURL *url.URL) View {
	p := r.NewPage()
	p.Run(ctx, returnURL)
	return p.View()
}

func (p *Page) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// Run waits for the backend, performs exactly one status lookup and applies
// its result. ctx is the page lifetime: once it is done, nothing is applied.
func (p *Page) Run(ctx context.Context, returnURL *url.URL) {
	if err := p.r.conn.WaitReady(ctx); err != nil {
		return
	}

	var token string
	if returnURL != nil {
		token = returnURL.Query().Get(QueryParam)
	}
	if token == "" {
		p.transition(domain.ConfirmationError, MsgNoSession, "")
		return
	}

	log := logger.WithContext(ctx, p.r.log).WithField("session_id", token)
	status, err := p.r.conn.GetSessionStatus(ctx, token)
	if ctx.Err() != nil {
		log.Debug("return page closed before the lookup finished, discarding result")
		return
	}
	if err != nil {
		log.WithField("error", err).Warn("session status lookup failed")
		msg := err.Error()
		if msg == "" {
			msg = MsgVerifyFailed
		}
		p.transition(domain.ConfirmationError, msg, token)
		return
	}

	switch {
	case status.Kind == domain.SessionStatusCompleted && status.Completed != nil:
		if p.transition(domain.ConfirmationConfirmed, "", token) {
			p.r.cart.Clear()
			entry := log
			if status.Completed.UserPrincipal != nil {
				entry = entry.WithField("principal", *status.Completed.UserPrincipal)
			}
			entry.Info("checkout confirmed")
		}
	case status.Kind == domain.SessionStatusFailed && status.Failed != nil:
		msg := status.Failed.Error
		if msg == "" {
			msg = MsgNotConfirmed
		}
		log.WithField("reason", msg).Info("checkout failed")
		p.transition(domain.ConfirmationError, msg, token)
	default:
		log.WithField("kind", status.Kind).Warn("unrecognised session status")
		p.transition(domain.ConfirmationError, MsgNotConfirmed, token)
	}
}

func (p *Page) transition(to domain.ConfirmationState, msg, token string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.view.State.IsTerminal() {
		return false
	}
	p.view = View{State: to, Message: msg, SessionID: token}
	return true
}
