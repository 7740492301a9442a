package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/shophub/internal/notification/application"
	"github.com/dmehra2102/shophub/pkg/events"
	"github.com/dmehra2102/shophub/pkg/idempotency"
)

const maxBody = 1 << 20

// Dedup claims envelope ids for the length of one delivery. A claim from
// Begin must end in Complete on success or Forget on failure.
type Dedup interface {
	Begin(ctx context.Context, key string) (idempotency.State, error)
	Complete(ctx context.Context, key string) error
	Forget(ctx context.Context, key string) error
}

type Handler struct {
	log    *slog.Logger
	router *application.Router
	dedup  Dedup
	tracer trace.Tracer
}

// NewHandler takes a nil dedup when Redis is not configured.
func NewHandler(log *slog.Logger, router *application.Router, dedup Dedup) *Handler {
	return &Handler{
		log:    log,
		router: router,
		dedup:  dedup,
		tracer: otel.Tracer("ingest-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

// Register adds the handler's routes to r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/ingest/order-created", h.ingest(h.router.Only(application.OrderCreatedNames...)))
	r.Post("/ingest/feedback-created", h.ingest(h.router.Only(application.FeedbackCreatedNames...)))
}

func (h *Handler) ingest(router *application.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := h.tracer.Start(r.Context(), "Ingest")
		defer span.End()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
		if err != nil {
			h.fail(w, "read body", err)
			return
		}
		ev, err := events.Parse(body)
		if err != nil {
			h.fail(w, "parse envelope", err)
			return
		}
		span.SetAttributes(attribute.String("event.name", ev.Name))
		h.log.Info("webhook received", "event", ev.Name, "event_id", ev.ID, "path", r.URL.Path)

		if !router.Handles(ev.Name) {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		key := ""
		if h.dedup != nil && ev.ID != "" {
			key = idempotency.EventKey(ev.Name, ev.ID)
			state, err := h.dedup.Begin(ctx, key)
			switch {
			case err != nil:
				h.log.Warn("idempotency check failed, processing anyway", "event_id", ev.ID, "err", err)
				key = ""
			case state == idempotency.StateDone:
				h.log.Info("duplicate webhook delivery", "event", ev.Name, "event_id", ev.ID)
				writeJSON(w, http.StatusOK, map[string]any{"ok": true, "duplicate": true})
				return
			case state == idempotency.StateInFlight:
				h.log.Info("webhook delivery already in progress", "event", ev.Name, "event_id", ev.ID)
				writeJSON(w, http.StatusConflict, map[string]string{"error": "delivery in progress"})
				return
			}
		}

		result, _, err := router.Dispatch(ctx, ev)
		if err != nil {
			span.RecordError(err)
			if key != "" {
				if fErr := h.dedup.Forget(context.WithoutCancel(ctx), key); fErr != nil {
					h.log.Warn("idempotency forget failed", "event_id", ev.ID, "err", fErr)
				}
			}
			h.fail(w, "dispatch "+ev.Name, err)
			return
		}
		if key != "" {
			if cErr := h.dedup.Complete(context.WithoutCancel(ctx), key); cErr != nil {
				h.log.Warn("idempotency complete failed", "event_id", ev.ID, "err", cErr)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": result})
	}
}

func (h *Handler) fail(w http.ResponseWriter, stage string, err error) {
	h.log.Error("webhook processing failed", "stage", stage, "err", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "processing failed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
