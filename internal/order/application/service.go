package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/shophub/internal/order/domain"
	"github.com/dmehra2102/shophub/pkg/events"
	"github.com/dmehra2102/shophub/pkg/outbox"
)

var ErrInvalidPayload = errors.New("invalid payload")

type CheckoutRequest struct {
	Email string
	Items []domain.CartLine
}

// Receipt is the committed result of one checkout.
type Receipt struct {
	Order   domain.Order
	Lines   []domain.OrderLine
	Skipped []int64
}

type Service struct {
	log    *slog.Logger
	store  Store
	pub    events.Publisher
	obs    Observer
	tracer trace.Tracer
	wg     sync.WaitGroup

	// outboxHeaders is non-nil when order.created is queued through the
	// checkout transaction instead of the publisher.
	outboxHeaders map[string]string
}

type Option func(*Service)

func WithObserver(o Observer) Option { return func(s *Service) { s.obs = o } }

// WithTxOutbox writes order.created as an outbox row in the checkout
// transaction. A failed insert rolls the order back. The publisher is then
// not used for order events and may be nil.
func WithTxOutbox(source string) Option {
	return func(s *Service) { s.outboxHeaders = map[string]string{"source": source} }
}

func NewService(log *slog.Logger, store Store, pub events.Publisher, opts ...Option) *Service {
	s := &Service{
		log:    log,
		store:  store,
		pub:    pub,
		obs:    nopObserver{},
		tracer: otel.Tracer("order-application"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout persists one order for the request. order.created is either
// queued in the same transaction (WithTxOutbox) or handed to the publisher
// once the transaction has committed, without waiting for the publish.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "Checkout")
	defer span.End()

	req, err := normalize(req)
	if err != nil {
		s.obs.Checkout("invalid")
		return Receipt{}, err
	}

	var rc Receipt
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		cust, err := tx.UpsertCustomer(ctx, domain.GuestCustomer(req.Email))
		if err != nil {
			return fmt.Errorf("resolve customer: %w", err)
		}
		order, err := tx.CreateOrder(ctx, domain.NewOrder(cust.ID))
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		m, err := s.materialize(ctx, tx, order.ID, req.Items)
		if err != nil {
			return err
		}
		order, err = tx.SetTotal(ctx, order.ID, m.total)
		if err != nil {
			return fmt.Errorf("set order total: %w", err)
		}
		rc = Receipt{Order: order, Lines: m.lines, Skipped: m.skipped}
		if s.outboxHeaders == nil {
			return nil
		}
		return s.enqueue(ctx, tx, domain.OrderCreated{Order: order, Items: req.Items, Email: req.Email})
	})
	if err != nil {
		s.obs.Checkout("failed")
		span.RecordError(err)
		return Receipt{}, err
	}

	span.SetAttributes(attribute.Int64("order.id", rc.Order.ID), attribute.Int("order.skipped", len(rc.Skipped)))
	s.obs.Checkout("created")
	s.log.Info("order created", "order_id", rc.Order.ID, "total", rc.Order.Total.StringFixed(2), "lines", len(rc.Lines))

	if s.outboxHeaders != nil {
		s.obs.Published(events.OrderCreated, "queued")
		return rc, nil
	}
	s.notify(ctx, domain.OrderCreated{Order: rc.Order, Items: req.Items, Email: req.Email})
	return rc, nil
}

func (s *Service) enqueue(ctx context.Context, tx Tx, data domain.OrderCreated) error {
	ev, err := events.New(events.OrderCreated, fmt.Sprint(data.Order.ID), data)
	if err != nil {
		return err
	}
	row, err := outbox.NewRow(ctx, ev, s.outboxHeaders)
	if err != nil {
		return err
	}
	if err := tx.AppendOutbox(ctx, row); err != nil {
		return fmt.Errorf("append outbox row: %w", err)
	}
	return nil
}

// notify publishes on a goroutine detached from the request. Failures are
// logged and never retried here.
func (s *Service) notify(ctx context.Context, data domain.OrderCreated) {
	ev, err := events.New(events.OrderCreated, fmt.Sprint(data.Order.ID), data)
	if err != nil {
		s.log.Error("build order event failed", "order_id", data.Order.ID, "err", err)
		return
	}

	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.pub.Publish(ctx, ev); err != nil {
			s.obs.Published(ev.Name, "failed")
			s.log.Error("publish failed", "event", ev.Name, "event_id", ev.ID, "order_id", data.Order.ID, "err", err)
			return
		}
		s.obs.Published(ev.Name, "ok")
	}()
}

// Wait blocks until every in-flight publish has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

func normalize(req CheckoutRequest) (CheckoutRequest, error) {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || len(req.Items) == 0 {
		return req, ErrInvalidPayload
	}
	items := make([]domain.CartLine, len(req.Items))
	for i, it := range req.Items {
		if it.Quantity < 0 {
			return req, fmt.Errorf("%w: negative quantity for product %d", ErrInvalidPayload, it.ProductID)
		}
		if it.Quantity == 0 {
			it.Quantity = 1
		}
		items[i] = it
	}
	req.Items = items
	return req, nil
}
