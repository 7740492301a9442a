package memstore

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/shophub/internal/order/application"
	"github.com/dmehra2102/shophub/internal/order/domain"
	"github.com/dmehra2102/shophub/pkg/outbox"
)

// Orders implements the checkout store and the notification readers.
type Orders struct {
	db *DB
}

// InTx holds the write lock for the whole transaction and applies staged
// writes only when fn succeeds.
func (o *Orders) InTx(ctx context.Context, fn func(ctx context.Context, tx application.Tx) error) error {
	o.db.mu.Lock()
	defer o.db.mu.Unlock()

	tx := &tx{db: o.db, customers: map[string]domain.Customer{}, orders: map[int64]domain.Order{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for _, c := range tx.customers {
		o.db.customers[c.ID] = c
		o.db.byEmail[c.Email] = c.ID
	}
	for id, ord := range tx.orders {
		o.db.orders[id] = ord
	}
	o.db.lines = append(o.db.lines, tx.lines...)
	o.db.outbox = append(o.db.outbox, tx.outbox...)
	return nil
}

func (o *Orders) Customer(_ context.Context, id int64) (domain.Customer, error) {
	o.db.mu.RLock()
	defer o.db.mu.RUnlock()
	c, ok := o.db.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return c, nil
}

func (o *Orders) Product(_ context.Context, id int64) (domain.Product, error) {
	o.db.mu.RLock()
	defer o.db.mu.RUnlock()
	return o.db.pricing(id)
}

func (o *Orders) Order(_ context.Context, id int64) (domain.Order, []domain.OrderLine, error) {
	o.db.mu.RLock()
	defer o.db.mu.RUnlock()
	ord, ok := o.db.orders[id]
	if !ok {
		return domain.Order{}, nil, domain.ErrOrderNotFound
	}
	var lines []domain.OrderLine
	for _, l := range o.db.lines {
		if l.OrderID == id {
			lines = append(lines, l)
		}
	}
	return ord, lines, nil
}

// Outbox returns the committed outbox rows in insert order.
func (o *Orders) Outbox() []outbox.Event {
	o.db.mu.RLock()
	defer o.db.mu.RUnlock()
	return append([]outbox.Event(nil), o.db.outbox...)
}

// Count is the number of committed orders.
func (o *Orders) Count() int {
	o.db.mu.RLock()
	defer o.db.mu.RUnlock()
	return len(o.db.orders)
}

func (db *DB) pricing(id int64) (domain.Product, error) {
	p, ok := db.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return domain.Product{ID: p.ID, Name: p.Name, Price: p.Price}, nil
}

type tx struct {
	db        *DB
	customers map[string]domain.Customer
	orders    map[int64]domain.Order
	lines     []domain.OrderLine
	outbox    []outbox.Event
}

func (t *tx) UpsertCustomer(_ context.Context, c domain.Customer) (domain.Customer, error) {
	if id, ok := t.db.byEmail[c.Email]; ok {
		return t.db.customers[id], nil
	}
	if staged, ok := t.customers[c.Email]; ok {
		return staged, nil
	}
	c.ID = t.db.next()
	t.customers[c.Email] = c
	return c, nil
}

func (t *tx) CreateOrder(_ context.Context, o domain.Order) (domain.Order, error) {
	o.ID = t.db.next()
	t.orders[o.ID] = o
	return o, nil
}

func (t *tx) Product(_ context.Context, id int64) (domain.Product, error) {
	return t.db.pricing(id)
}

func (t *tx) AddLine(_ context.Context, l domain.OrderLine) error {
	t.lines = append(t.lines, l)
	return nil
}

func (t *tx) SetTotal(_ context.Context, orderID int64, total decimal.Decimal) (domain.Order, error) {
	o, ok := t.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	o.Total = total
	t.orders[orderID] = o
	return o, nil
}

func (t *tx) AppendOutbox(_ context.Context, e outbox.Event) error {
	e.ID = t.db.next()
	t.outbox = append(t.outbox, e)
	return nil
}
