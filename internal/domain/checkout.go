package domain

import "time"

const DefaultCurrency = "usd"

// LineItem is one line of a checkout session request, priced in minor units.
type LineItem struct {
	Name        string `json:"name"`
	Currency    string `json:"currency"`
	Quantity    int64  `json:"quantity"`
	PriceCents  int64  `json:"price_in_cents"`
	Description string `json:"description"`
}

func LineItemsFromCart(lines []CartLine) []LineItem {
	items := make([]LineItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, LineItem{
			Name:        l.Name,
			Currency:    DefaultCurrency,
			Quantity:    int64(l.Quantity),
			PriceCents:  l.UnitPriceCents,
			Description: l.Description,
		})
	}
	return items
}

type CheckoutSessionStatus string

const (
	CheckoutSessionOpen      CheckoutSessionStatus = "OPEN"
	CheckoutSessionCompleted CheckoutSessionStatus = "COMPLETED"
	CheckoutSessionFailed    CheckoutSessionStatus = "FAILED"
)

func (s CheckoutSessionStatus) IsTerminal() bool {
	return s == CheckoutSessionCompleted || s == CheckoutSessionFailed
}

func (s CheckoutSessionStatus) String() string {
	return string(s)
}

// CheckoutSession is the backend's record of a hosted payment session.
type CheckoutSession struct {
	ID          string
	Principal   *string
	URL         string
	Status      CheckoutSessionStatus
	Response    *string
	TotalCents  int64
	Currency    string
	CreatedAt   time.Time
	CompletedAt *time.Time
}
