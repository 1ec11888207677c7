package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
)

const cacheOpTimeout = time.Second

type CartService struct {
	repo  repository.CartRepository
	cache cache.CartCache
	sfg   singleflight.Group // collapses concurrent misses for one owner
	log   logrus.FieldLogger

	// epoch counts invalidations; a fill started before the latest one is
	// dropped.
	mu    sync.Mutex
	epoch uint64
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, log logrus.FieldLogger) *CartService {
	return &CartService{
		repo:  repo,
		cache: cache,
		log:   log.WithField("component", "cart_service"),
	}
}

// GetCart returns repository.ErrCartNotFound when the owner has no saved cart.
func (s *CartService) GetCart(ctx context.Context, owner string) (*domain.RemoteCartRecord, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}

	v, err, _ := s.sfg.Do(owner, func() (interface{}, error) {
		epoch := s.currentEpoch()

		record, err := s.cache.Get(ctx, owner)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WithError(err).Warn("cache get failed, reading repository")
		}

		record, err = s.repo.GetCart(ctx, owner)
		if err != nil {
			return nil, err
		}

		go s.fillCache(owner, record, epoch)
		return record, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.RemoteCartRecord), nil
}

// SaveCart replaces the owner's saved lines with a full snapshot.
func (s *CartService) SaveCart(ctx context.Context, owner string, lines []domain.CartLine) error {
	if err := validateOwner(owner); err != nil {
		return err
	}
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity < 1 || l.UnitPriceCents < 0 {
			return fmt.Errorf("%w: product %q quantity %d", ErrInvalidLine, l.ProductID, l.Quantity)
		}
	}

	if err := s.repo.UpsertCart(ctx, owner, lines); err != nil {
		s.log.WithError(err).WithField("owner", owner).Error("repo upsert cart failed")
		return err
	}
	s.invalidateCache(owner)
	return nil
}

func (s *CartService) DeleteCart(ctx context.Context, owner string) error {
	if err := validateOwner(owner); err != nil {
		return err
	}

	if err := s.repo.DeleteCart(ctx, owner); err != nil {
		s.log.WithError(err).WithField("owner", owner).Error("repo delete cart failed")
		return err
	}
	s.invalidateCache(owner)
	return nil
}

func (s *CartService) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// fillCache holds mu across the set so an invalidation either skips it or
// deletes after it.
func (s *CartService) fillCache(owner string, record *domain.RemoteCartRecord, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		s.log.WithField("owner", owner).Debug("cart changed during read, skipping cache fill")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	if err := s.cache.Set(ctx, owner, record); err != nil {
		s.log.WithError(err).Warn("cache set failed")
	}
}

func (s *CartService) invalidateCache(owner string) {
	s.mu.Lock()
	s.epoch++
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	if err := s.cache.Delete(ctx, owner); err != nil {
		s.log.WithError(err).Warn("cache invalidate failed")
	}
}

func validateOwner(owner string) error {
	if !domain.NewIdentity(owner).IsAuthenticated() {
		return ErrInvalidOwner
	}
	return nil
}
