package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmehra2102/shophub/internal/catalog/domain"
)

type Service struct {
	log   *slog.Logger
	store Store
	cache Cache
	sfg   singleflight.Group
}

// NewService takes a nil cache when Redis is not configured.
func NewService(log *slog.Logger, store Store, cache Cache) *Service {
	return &Service{log: log, store: store, cache: cache}
}

// sharedReadTimeout bounds the listing read shared by concurrent callers.
const sharedReadTimeout = 5 * time.Second

// Products serves the listing from cache. Concurrent misses share one store
// read that runs detached from any single caller, so one caller giving up
// does not fail the others. Cache failures degrade to the store.
func (s *Service) Products(ctx context.Context) ([]domain.Summary, error) {
	if s.cache == nil {
		return s.store.Products(ctx)
	}

	ch := s.sfg.DoChan("products", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedReadTimeout)
		defer cancel()
		return s.loadProducts(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.Summary), nil
	}
}

func (s *Service) loadProducts(ctx context.Context) ([]domain.Summary, error) {
	ps, err := s.cache.Products(ctx)
	if err == nil {
		return ps, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.log.Warn("catalog cache get failed", "err", err)
	}

	ps, err = s.store.Products(ctx)
	if err != nil {
		return nil, err
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := s.cache.SetProducts(ctx, ps); err != nil {
			s.log.Warn("catalog cache set failed", "err", err)
		}
	}()
	return ps, nil
}

func (s *Service) Product(ctx context.Context, id int64) (domain.Detail, error) {
	p, err := s.store.Product(ctx, id)
	if err != nil {
		return domain.Detail{}, err
	}
	reviews, err := s.store.Reviews(ctx, id, domain.RecentReviewsLimit)
	if err != nil {
		return domain.Detail{}, fmt.Errorf("recent reviews: %w", err)
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return domain.Detail{Summary: p, RecentReviews: reviews}, nil
}

// Related lists other products in the same category.
func (s *Service) Related(ctx context.Context, id int64) ([]domain.Product, error) {
	p, err := s.store.Product(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.store.Related(ctx, p.Product, domain.RelatedLimit)
}

func (s *Service) Reviews(ctx context.Context, productID int64) ([]domain.Review, error) {
	return s.store.Reviews(ctx, productID, domain.ReviewsLimit)
}

// Invalidate drops the cached listing.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("catalog cache invalidate failed", "err", err)
	}
}
