package application

import (
	"context"
	"log/slog"

	feedbackdomain "github.com/dmehra2102/shophub/internal/feedback/domain"
	orderdomain "github.com/dmehra2102/shophub/internal/order/domain"
	"github.com/dmehra2102/shophub/pkg/events"
)

// Accepted names per event, canonical name first.
var (
	OrderCreatedNames    = []string{events.OrderCreated, "order.create"}
	FeedbackCreatedNames = []string{events.FeedbackCreated, "feedback.create"}
)

type HandlerFunc func(ctx context.Context, ev events.Event) (any, error)

// Router is the one dispatch table shared by the in-process publisher, the
// webhook intake and the Kafka worker.
type Router struct {
	log    *slog.Logger
	routes map[string]HandlerFunc
}

func NewRouter(log *slog.Logger) *Router {
	return &Router{log: log, routes: map[string]HandlerFunc{}}
}

// NewDefaultRouter wires order.created to the composer and feedback.created
// to the feedback processor.
func NewDefaultRouter(log *slog.Logger, c *Composer, f *FeedbackProcessor) *Router {
	r := NewRouter(log)
	r.Handle(func(ctx context.Context, ev events.Event) (any, error) {
		var data orderdomain.OrderCreated
		if err := ev.Decode(&data); err != nil {
			return nil, err
		}
		return c.HandleOrderCreated(ctx, data)
	}, OrderCreatedNames...)
	r.Handle(func(ctx context.Context, ev events.Event) (any, error) {
		var data feedbackdomain.Created
		if err := ev.Decode(&data); err != nil {
			return nil, err
		}
		return f.HandleFeedbackCreated(ctx, data)
	}, FeedbackCreatedNames...)
	return r
}

func (r *Router) Handle(h HandlerFunc, names ...string) {
	for _, n := range names {
		r.routes[n] = h
	}
}

// Only returns a router restricted to the given names. Names without a
// handler in r stay unhandled.
func (r *Router) Only(names ...string) *Router {
	sub := NewRouter(r.log)
	for _, n := range names {
		if h, ok := r.routes[n]; ok {
			sub.routes[n] = h
		}
	}
	return sub
}

func (r *Router) Handles(name string) bool {
	_, ok := r.routes[name]
	return ok
}

// Dispatch runs the handler for ev.Name. handled is false when no handler is
// registered for the name.
func (r *Router) Dispatch(ctx context.Context, ev events.Event) (result any, handled bool, err error) {
	h, ok := r.routes[ev.Name]
	if !ok {
		r.log.Debug("no handler for event", "event", ev.Name)
		return nil, false, nil
	}
	result, err = h(ctx, ev)
	return result, true, err
}
