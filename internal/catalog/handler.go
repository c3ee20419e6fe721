package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/pharmapos/pharmapos/internal/platform/httpx"
	"github.com/pharmapos/pharmapos/internal/shared"
)

// Handler exposes product catalog endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/low-stock", h.lowStock)
	r.Get("/expiring", h.expiring)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Post("/{id}/adjust-stock", h.adjustStock)
}

type productPayload struct {
	Name                   string `json:"name" validate:"required"`
	Category               string `json:"category"`
	BatchNumber            string `json:"batch_number" validate:"required"`
	ExpiryDate             string `json:"expiry_date"`
	CurrentStock           int64  `json:"current_stock" validate:"gte=0"`
	CostPrice              string `json:"cost_price"`
	DiscountedCostPrice    string `json:"discounted_cost_price"`
	SellingPrice           string `json:"selling_price"`
	DiscountedSellingPrice string `json:"discounted_selling_price"`
	VATRate                string `json:"vat_rate"`
	Barcode                string `json:"barcode"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	filters := ListFilters{
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
		Page:     page,
		PerPage:  perPage,
	}
	products, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.Problem(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"products":   products,
		"pagination": shared.NewPagination(filters.Page, filters.PerPage, total),
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	product, err := payloadToProduct(payload)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), product, actorID(r))
	if err != nil {
		h.respondError(w, r, "create product", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var payload productPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	product, err := payloadToProduct(payload)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.Update(r.Context(), id, product, actorID(r)); err != nil {
		h.respondError(w, r, "update product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "updated"})
}

type adjustStockPayload struct {
	Delta  int64  `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var payload adjustStockPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	product, err := h.service.AdjustStock(r.Context(), id, payload.Delta, payload.Reason, actorID(r))
	if err != nil {
		h.respondError(w, r, "adjust stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	threshold, _ := strconv.ParseInt(r.URL.Query().Get("threshold"), 10, 64)
	if threshold <= 0 {
		threshold = 10
	}
	products, err := h.service.LowStock(r.Context(), threshold, 100)
	if err != nil {
		h.respondError(w, r, "low stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) expiring(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days <= 0 {
		days = 90
	}
	products, err := h.service.Expiring(r.Context(), time.Duration(days)*24*time.Hour, 100)
	if err != nil {
		h.respondError(w, r, "expiring", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, r, http.StatusNotFound, "product not found")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDuplicate):
		httpx.Problem(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, r, http.StatusConflict, err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, r, http.StatusInternalServerError, "internal error")
	}
}

func payloadToProduct(payload productPayload) (Product, error) {
	product := Product{
		Name:         payload.Name,
		Category:     payload.Category,
		BatchNumber:  payload.BatchNumber,
		CurrentStock: payload.CurrentStock,
		Barcode:      payload.Barcode,
	}
	if payload.ExpiryDate != "" {
		expiry, err := time.Parse("2006-01-02", payload.ExpiryDate)
		if err != nil {
			return Product{}, err
		}
		product.ExpiryDate = expiry
	}
	var err error
	if product.CostPrice, err = parseDecimal(payload.CostPrice); err != nil {
		return Product{}, err
	}
	if product.DiscountedCostPrice, err = parseDecimal(payload.DiscountedCostPrice); err != nil {
		return Product{}, err
	}
	if product.SellingPrice, err = parseDecimal(payload.SellingPrice); err != nil {
		return Product{}, err
	}
	if product.DiscountedSellingPrice, err = parseDecimal(payload.DiscountedSellingPrice); err != nil {
		return Product{}, err
	}
	if product.VATRate, err = parseDecimal(payload.VATRate); err != nil {
		return Product{}, err
	}
	return product, nil
}

func parseDecimal(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}

func actorID(r *http.Request) int64 {
	return shared.SessionFromContext(r.Context()).UserID()
}
