package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/shophub/internal/order/application"
	"github.com/dmehra2102/shophub/internal/order/domain"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("order-http"),
	}
}

type checkoutReq struct {
	Email string            `json:"email"`
	Items []domain.CartLine `json:"items"`
}

type orderResp struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Total     float64   `json:"total"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type checkoutResp struct {
	Order        orderResp `json:"order"`
	SkippedItems []int64   `json:"skipped_items,omitempty"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

// Register adds the handler's routes to r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/checkout", h.checkout)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Checkout")
	defer span.End()

	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	rc, err := h.service.Checkout(ctx, application.CheckoutRequest{Email: req.Email, Items: req.Items})
	switch {
	case errors.Is(err, application.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	case err != nil:
		h.log.Error("checkout failed", "err", err)
		writeError(w, http.StatusInternalServerError, "checkout failed")
		return
	}

	writeJSON(w, http.StatusOK, checkoutResp{
		Order: orderResp{
			ID:        rc.Order.ID,
			UserID:    rc.Order.CustomerID,
			Total:     rc.Order.Total.Round(2).InexactFloat64(),
			Status:    string(rc.Order.Status),
			CreatedAt: rc.Order.CreatedAt,
		},
		SkippedItems: rc.Skipped,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
