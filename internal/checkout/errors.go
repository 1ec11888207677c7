package checkout

import "errors"

var (
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrBackendNotReady    = errors.New("backend connection is not ready")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrEmptySessionURL    = errors.New("checkout session returned no url")
)
