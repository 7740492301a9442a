package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/shophub/internal/catalog/application"
	"github.com/dmehra2102/shophub/internal/catalog/domain"
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
		tracer:  otel.Tracer("catalog-http"),
	}
}

type productResp struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Category    string  `json:"category,omitempty"`
	CategoryID  int64   `json:"categoryId"`
	Stock       int     `json:"stock"`
	Rating      float64 `json:"rating"`
	Reviews     int     `json:"reviews"`
	InStock     bool    `json:"inStock"`
}

type detailResp struct {
	productResp
	RecentReviews []domain.Review `json:"recentReviews"`
}

type relatedResp struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	CategoryID  int64   `json:"categoryId"`
	Stock       int     `json:"stock"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

// Register adds the handler's routes to r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/related", h.related)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/reviews", h.reviews)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListProducts")
	defer span.End()

	ps, err := h.service.Products(ctx)
	if err != nil {
		h.log.Error("list products failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	out := make([]productResp, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductResp(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetProduct")
	defer span.End()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product id")
		return
	}

	d, err := h.service.Product(ctx, id)
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "Product not found")
		return
	case err != nil:
		h.log.Error("get product failed", "product_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch product")
		return
	}
	writeJSON(w, http.StatusOK, detailResp{productResp: toProductResp(d.Summary), RecentReviews: d.RecentReviews})
}

func (h *Handler) related(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RelatedProducts")
	defer span.End()

	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	ps, err := h.service.Related(ctx, id)
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "Product not found")
		return
	case err != nil:
		h.log.Error("related products failed", "product_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch related products")
		return
	}
	out := make([]relatedResp, 0, len(ps))
	for _, p := range ps {
		out = append(out, relatedResp{
			ID:          p.ID,
			Name:        p.Name,
			Price:       p.Price.InexactFloat64(),
			Description: p.Description,
			Image:       p.Image,
			CategoryID:  p.CategoryID,
			Stock:       p.Stock,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) reviews(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListReviews")
	defer span.End()

	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	rs, err := h.service.Reviews(ctx, id)
	if err != nil {
		h.log.Error("list reviews failed", "product_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch reviews")
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("productId")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "productId is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid productId")
		return 0, false
	}
	return id, true
}

func toProductResp(s domain.Summary) productResp {
	return productResp{
		ID:          s.ID,
		Name:        s.Name,
		Price:       s.Price.InexactFloat64(),
		Description: s.Description,
		Image:       s.Image,
		Category:    s.Category,
		CategoryID:  s.CategoryID,
		Stock:       s.Stock,
		Rating:      s.Rating,
		Reviews:     s.Reviews,
		InStock:     s.InStock(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
