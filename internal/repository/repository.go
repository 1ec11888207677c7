package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository stores one saved cart per owner. Writes replace the whole
// line list.
type CartRepository interface {
	GetCart(ctx context.Context, owner string) (*domain.RemoteCartRecord, error)
	UpsertCart(ctx context.Context, owner string, lines []domain.CartLine) error
	DeleteCart(ctx context.Context, owner string) error
}
