package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/shophub/internal/order/domain"
)

const (
	StatusSent   = "sent"
	StatusNoSMTP = "no-smtp"

	bodyGenerated = "generated"
	bodyFallback  = "fallback"
)

type Result struct {
	Status    string `json:"status"`
	MessageID string `json:"messageId,omitempty"`
}

// Composer writes and sends the order confirmation mail. It keeps no state
// between calls: two calls for one order send two mails.
type Composer struct {
	log       *slog.Logger
	customers CustomerReader
	products  ProductReader
	gen       TextGenerator
	mailer    Mailer
	obs       Observer
	tracer    trace.Tracer
}

type ComposerOption func(*Composer)

// WithGenerator enables generated bodies.
func WithGenerator(g TextGenerator) ComposerOption { return func(c *Composer) { c.gen = g } }

// WithMailer enables delivery. Without one every call returns no-smtp.
func WithMailer(m Mailer) ComposerOption { return func(c *Composer) { c.mailer = m } }

func WithComposerObserver(o Observer) ComposerOption { return func(c *Composer) { c.obs = o } }

func NewComposer(log *slog.Logger, customers CustomerReader, products ProductReader, opts ...ComposerOption) *Composer {
	c := &Composer{
		log:       log,
		customers: customers,
		products:  products,
		obs:       nopObserver{},
		tracer:    otel.Tracer("notification-composer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Composer) HandleOrderCreated(ctx context.Context, ev domain.OrderCreated) (Result, error) {
	ctx, span := c.tracer.Start(ctx, "HandleOrderCreated")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", ev.Order.ID))

	name := c.displayName(ctx, ev.Order.CustomerID)
	items := c.resolveItems(ctx, ev.Items)

	body, source := c.body(ctx, name, ev.Order, items)
	html, err := renderHTML(ev.Order, body, items)
	if err != nil {
		return Result{}, fmt.Errorf("render confirmation html: %w", err)
	}

	if c.mailer == nil {
		c.log.Warn("SMTP not configured, skipping email send", "order_id", ev.Order.ID)
		c.obs.Confirmation(StatusNoSMTP, source)
		return Result{Status: StatusNoSMTP}, nil
	}

	id, err := c.mailer.Send(ctx, Mail{
		To:      ev.Email,
		Subject: fmt.Sprintf("Order Confirmation #%d", ev.Order.ID),
		Text:    body,
		HTML:    html,
	})
	if err != nil {
		c.obs.Confirmation("failed", source)
		span.RecordError(err)
		return Result{}, fmt.Errorf("send confirmation for order %d: %w", ev.Order.ID, err)
	}
	c.obs.Confirmation(StatusSent, source)
	c.log.Info("confirmation email sent", "order_id", ev.Order.ID, "message_id", id, "body", source)
	return Result{Status: StatusSent, MessageID: id}, nil
}

func (c *Composer) displayName(ctx context.Context, customerID int64) string {
	cust, err := c.customers.Customer(ctx, customerID)
	if err != nil {
		c.log.Info("customer lookup failed, using default greeting", "customer_id", customerID, "err", err)
		return defaultGreeting
	}
	if n := cust.DisplayName(); n != "" {
		return n
	}
	return defaultGreeting
}

// resolveItems re-reads names and current prices. A failed lookup keeps the
// line with placeholder values.
func (c *Composer) resolveItems(ctx context.Context, lines []domain.CartLine) []item {
	items := make([]item, 0, len(lines))
	for _, l := range lines {
		qty := l.Quantity
		if qty <= 0 {
			qty = 1
		}
		it := item{Name: unknownProduct, Quantity: qty, Price: decimal.Zero}
		if p, err := c.products.Product(ctx, l.ProductID); err == nil {
			it.Name, it.Price = p.Name, p.Price
		} else if !errors.Is(err, domain.ErrProductNotFound) {
			c.log.Warn("product lookup failed", "product_id", l.ProductID, "err", err)
		}
		items = append(items, it)
	}
	return items
}

func (c *Composer) body(ctx context.Context, name string, order domain.Order, items []item) (string, string) {
	if c.gen != nil {
		text, err := c.gen.Generate(ctx, buildPrompt(name, order, items))
		if err == nil && text != "" {
			return text, bodyGenerated
		}
		c.log.Warn("generated body unavailable, using fallback template", "order_id", order.ID, "err", err)
	}
	return fallbackBody(name, order, items), bodyFallback
}
