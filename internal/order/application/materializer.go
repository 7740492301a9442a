package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/shophub/internal/order/domain"
)

type materialized struct {
	total   decimal.Decimal
	lines   []domain.OrderLine
	skipped []int64
}

// materialize prices every cart line from the store, writes the line
// snapshots and accumulates the total. Unknown products are skipped.
func (s *Service) materialize(ctx context.Context, tx Tx, orderID int64, items []domain.CartLine) (materialized, error) {
	m := materialized{total: decimal.Zero}

	for _, it := range items {
		p, err := tx.Product(ctx, it.ProductID)
		if errors.Is(err, domain.ErrProductNotFound) {
			s.log.Warn("checkout line skipped: unknown product", "order_id", orderID, "product_id", it.ProductID)
			s.obs.SkippedLine()
			m.skipped = append(m.skipped, it.ProductID)
			continue
		}
		if err != nil {
			return materialized{}, fmt.Errorf("lookup product %d: %w", it.ProductID, err)
		}

		line := domain.OrderLine{
			OrderID:   orderID,
			ProductID: p.ID,
			Quantity:  it.Quantity,
			UnitPrice: p.Price,
		}
		if err := tx.AddLine(ctx, line); err != nil {
			return materialized{}, fmt.Errorf("add line for product %d: %w", p.ID, err)
		}
		m.total = m.total.Add(line.Total())
		m.lines = append(m.lines, line)
	}
	return m, nil
}
