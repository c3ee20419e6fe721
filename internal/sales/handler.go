package sales

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

// Handler exposes the sales HTTP API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// Routes mounts the sales endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.checkout)
	r.Get("/{id}", h.get)
	return r
}

type linePayload struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
	UnitPrice string `json:"unit_price" validate:"required"`
	PriceType string `json:"price_type"`
}

type checkoutPayload struct {
	PaymentMethod string        `json:"payment_method" validate:"required,oneof=CASH MOBILE_MONEY"`
	CustomerPhone string        `json:"customer_phone"`
	Lines         []linePayload `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var payload checkoutPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}

	input := CheckoutInput{
		PaymentMethod: PaymentMethod(payload.PaymentMethod),
		CustomerPhone: payload.CustomerPhone,
		Lines:         make([]CheckoutLine, 0, len(payload.Lines)),
	}
	for _, lp := range payload.Lines {
		price, err := decimal.NewFromString(lp.UnitPrice)
		if err != nil {
			httpx.Problem(w, r, http.StatusBadRequest, "unit_price is not a valid number")
			return
		}
		priceType := PriceType(lp.PriceType)
		if lp.PriceType == "" {
			priceType = PriceTypeSelling
		}
		input.Lines = append(input.Lines, CheckoutLine{
			ProductID: lp.ProductID,
			Quantity:  lp.Quantity,
			UnitPrice: price,
			PriceType: priceType,
		})
	}
	input.ActorID, input.ActorName = shared.ActorFromContext(r.Context())

	receipt, err := h.service.Checkout(r.Context(), input)
	if err != nil {
		if errors.Is(err, ErrPaymentInit) {
			// The sale persisted; surface the gateway failure with the receipt.
			httpx.JSON(w, http.StatusBadGateway, map[string]any{
				"receipt": receipt,
				"error":   err.Error(),
			})
			return
		}
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, receipt)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid sale id")
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := ListFilters{Method: PaymentMethod(q.Get("method"))}
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	if raw := q.Get("from"); raw != "" {
		filters.From, _ = time.Parse("2006-01-02", raw)
	}
	if raw := q.Get("to"); raw != "" {
		filters.To, _ = time.Parse("2006-01-02", raw)
	}

	sales, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"sales":      sales,
		"pagination": shared.NewPagination(filters.Page, filters.PerPage, total),
	})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrIncompleteLine):
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrBelowFloor):
		httpx.Problem(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, r, http.StatusNotFound, "sale not found")
	default:
		h.logger.Error("sales request failed", slog.String("error", err.Error()))
		httpx.Problem(w, r, http.StatusInternalServerError, "internal error")
	}
}
