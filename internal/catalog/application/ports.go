package application

import (
	"context"
	"errors"

	"github.com/dmehra2102/shophub/internal/catalog/domain"
)

type Store interface {
	Products(ctx context.Context) ([]domain.Summary, error)
	// Product returns domain.ErrProductNotFound for an unknown id.
	Product(ctx context.Context, id int64) (domain.Summary, error)
	Related(ctx context.Context, p domain.Product, limit int) ([]domain.Product, error)
	Reviews(ctx context.Context, productID int64, limit int) ([]domain.Review, error)
}

var ErrCacheMiss = errors.New("cache miss")

type Cache interface {
	Products(ctx context.Context) ([]domain.Summary, error)
	SetProducts(ctx context.Context, ps []domain.Summary) error
	Invalidate(ctx context.Context) error
}
