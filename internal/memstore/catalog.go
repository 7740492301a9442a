package memstore

import (
	"context"
	"sort"

	"github.com/dmehra2102/shophub/internal/catalog/domain"
)

type Catalog struct {
	db *DB
}

func (c *Catalog) Products(context.Context) ([]domain.Summary, error) {
	c.db.mu.RLock()
	defer c.db.mu.RUnlock()

	out := make([]domain.Summary, 0, len(c.db.products))
	for _, p := range c.db.products {
		out = append(out, c.db.summary(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *Catalog) Product(_ context.Context, id int64) (domain.Summary, error) {
	c.db.mu.RLock()
	defer c.db.mu.RUnlock()

	p, ok := c.db.products[id]
	if !ok {
		return domain.Summary{}, domain.ErrProductNotFound
	}
	return c.db.summary(p), nil
}

func (c *Catalog) Related(_ context.Context, p domain.Product, limit int) ([]domain.Product, error) {
	c.db.mu.RLock()
	defer c.db.mu.RUnlock()

	out := []domain.Product{}
	for _, other := range c.db.products {
		if other.CategoryID == p.CategoryID && other.ID != p.ID {
			out = append(out, other)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *Catalog) Reviews(_ context.Context, productID int64, limit int) ([]domain.Review, error) {
	c.db.mu.RLock()
	defer c.db.mu.RUnlock()

	out := []domain.Review{}
	for _, r := range c.db.reviews {
		if r.ProductID != productID {
			continue
		}
		if cust, ok := c.db.customers[authorID(r)]; ok {
			r.Author = &domain.Author{ID: cust.ID, FirstName: cust.FirstName, LastName: cust.LastName}
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func authorID(r domain.Review) int64 {
	if r.Author == nil {
		return 0
	}
	return r.Author.ID
}

// summary must be called with mu held.
func (db *DB) summary(p domain.Product) domain.Summary {
	sum, count := 0, 0
	for _, r := range db.reviews {
		if r.ProductID == p.ID {
			sum += r.Rating
			count++
		}
	}
	return domain.Summarize(p, sum, count)
}
