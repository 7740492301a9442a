package application

import (
	"context"
	"log/slog"

	"github.com/dmehra2102/shophub/pkg/events"
)

// DirectPublisher delivers events to the in-process router. It is the
// events.Publisher for deployments without a broker or event bus.
type DirectPublisher struct {
	log    *slog.Logger
	router *Router
}

func NewDirectPublisher(log *slog.Logger, router *Router) *DirectPublisher {
	return &DirectPublisher{log: log, router: router}
}

func (p *DirectPublisher) Publish(ctx context.Context, ev events.Event) error {
	result, handled, err := p.router.Dispatch(ctx, ev)
	if err != nil {
		return err
	}
	if handled {
		p.log.Info("event handled in process", "event", ev.Name, "event_id", ev.ID, "result", result)
	}
	return nil
}
