package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, owner string) (*domain.RemoteCartRecord, error)
	Set(ctx context.Context, owner string, record *domain.RemoteCartRecord) error
	Delete(ctx context.Context, owner string) error
}

var ErrCacheMiss = errors.New("cache miss")
