package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/shophub/internal/feedback/application"
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
		tracer:  otel.Tracer("feedback-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

// Register adds the handler's routes to r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/feedback", h.list)
	r.Post("/feedback", h.create)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateFeedback")
	defer span.End()

	var in application.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: invalid JSON body")
		return
	}

	f, err := h.service.Create(ctx, in)
	switch {
	case errors.Is(err, application.ErrValidation):
		h.log.Warn("feedback rejected", "err", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.log.Error("create feedback failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create feedback")
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListFeedback")
	defer span.End()

	list, err := h.service.List(ctx)
	if err != nil {
		h.log.Error("list feedback failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load feedback")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
