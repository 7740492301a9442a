package application

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/shophub/internal/order/domain"
	"github.com/dmehra2102/shophub/pkg/outbox"
)

// Store opens the single transactional scope checkout runs in. fn's error
// rolls everything back; a nil return commits.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of writes and reads checkout performs inside one transaction.
type Tx interface {
	// UpsertCustomer returns the customer with c.Email, creating it from c
	// when none exists.
	UpsertCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error)
	CreateOrder(ctx context.Context, o domain.Order) (domain.Order, error)
	// Product returns domain.ErrProductNotFound for an unknown id.
	Product(ctx context.Context, id int64) (domain.Product, error)
	AddLine(ctx context.Context, l domain.OrderLine) error
	SetTotal(ctx context.Context, orderID int64, total decimal.Decimal) (domain.Order, error)
	// AppendOutbox stages an outbox row that commits with the order.
	AppendOutbox(ctx context.Context, e outbox.Event) error
}

// Observer receives checkout outcomes for metrics.
type Observer interface {
	Checkout(outcome string)
	SkippedLine()
	Published(event, result string)
}

type nopObserver struct{}

func (nopObserver) Checkout(string)          {}
func (nopObserver) SkippedLine()             {}
func (nopObserver) Published(string, string) {}
