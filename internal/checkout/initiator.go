package checkout

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/sirupsen/logrus"
)

type Cart interface {
	Lines() []domain.CartLine
}

type IdentitySource interface {
	Identity() domain.Identity
}

// Navigator hands control to the external payment page.
type Navigator interface {
	Navigate(url string)
}

type NavigatorFunc func(url string)

func (f NavigatorFunc) Navigate(url string) { f(url) }

// Initiator turns the current cart into a hosted checkout session. It never
// modifies the cart.
type Initiator struct {
	cart     Cart
	conn     backend.Conn
	identity IdentitySource
	notifier notify.Notifier
	log      logrus.FieldLogger

	checkingOut atomic.Bool
}

func NewInitiator(cart Cart, conn backend.Conn, identity IdentitySource, notifier notify.Notifier, log logrus.FieldLogger) *Initiator {
	return &Initiator{
		cart:     cart,
		conn:     conn,
		identity: identity,
		notifier: notifier,
		log:      log.WithField("component", "checkout"),
	}
}

func (i *Initiator) CheckingOut() bool {
	return i.checkingOut.Load()
}

// Checkout requests a session for the current cart and navigates to it.
// Precondition failures return before any network call.
func (i *Initiator) Checkout(ctx context.Context, successURL, cancelURL string, nav Navigator) error {
	lines := i.cart.Lines()
	if len(lines) == 0 {
		i.notifier.Error("Your cart is empty")
		return ErrEmptyCart
	}
	if !i.conn.Ready() {
		i.notifier.Error("Please wait while loading...")
		return ErrBackendNotReady
	}
	if !i.checkingOut.CompareAndSwap(false, true) {
		return ErrCheckoutInProgress
	}
	defer i.checkingOut.Store(false)

	id := i.identity.Identity()
	log := logger.WithContext(ctx, i.log).WithField("principal", id.Principal())

	items := domain.LineItemsFromCart(lines)
	url, err := i.conn.CreateCheckoutSession(backend.WithIdentity(ctx, id), items, successURL, cancelURL)
	if err != nil {
		log.WithField("error", err).Error("checkout session creation failed")
		i.notifier.Error("Checkout failed. Please try again.")
		return fmt.Errorf("create checkout session: %w", err)
	}
	if url == "" {
		log.Error("checkout session returned an empty url")
		i.notifier.Error("Failed to create checkout session")
		return ErrEmptySessionURL
	}

	log.WithField("items", len(items)).
		WithField("subtotal_cents", domain.SubtotalCents(lines)).
		Info("redirecting to checkout")
	nav.Navigate(url)
	return nil
}
