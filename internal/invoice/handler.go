package invoice

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

const maxImportSize = 8 << 20

// Handler exposes the invoice HTTP API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// Routes mounts the invoice endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.commit)
	r.Post("/import", h.importCSV)
	r.Get("/{id}", h.get)
	return r
}

type linePayload struct {
	ProductName             string `json:"product_name" validate:"required"`
	Category                string `json:"category"`
	BatchNumber             string `json:"batch_number" validate:"required"`
	ExpiryDate              string `json:"expiry_date"`
	Quantity                int64  `json:"quantity" validate:"required,gt=0"`
	CostPrice               string `json:"cost_price" validate:"required"`
	SupplierDiscountPercent string `json:"supplier_discount_percent"`
	VATRate                 string `json:"vat_rate"`
	DiscountedSellingPrice  string `json:"discounted_selling_price"`
	Barcode                 string `json:"barcode"`
}

type commitPayload struct {
	InvoiceNumber string        `json:"invoice_number" validate:"required"`
	Supplier      string        `json:"supplier" validate:"required"`
	InvoiceDate   string        `json:"invoice_date"`
	Lines         []linePayload `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	var payload commitPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}

	input, err := payload.toInput()
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	input.ActorID, input.ActorName = actor(r)

	inv, err := h.service.Commit(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "file field required")
		return
	}
	defer file.Close()

	lines, err := ParseLines(file)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	input := CommitInput{
		InvoiceNumber: r.FormValue("invoice_number"),
		Supplier:      r.FormValue("supplier"),
		Lines:         lines,
	}
	if raw := r.FormValue("invoice_date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, r, http.StatusBadRequest, "invoice_date must be YYYY-MM-DD")
			return
		}
		input.InvoiceDate = date
	}
	input.ActorID, input.ActorName = actor(r)

	inv, err := h.service.Commit(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid invoice id")
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := ListFilters{Supplier: q.Get("supplier")}
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	if raw := q.Get("from"); raw != "" {
		filters.From, _ = time.Parse("2006-01-02", raw)
	}
	if raw := q.Get("to"); raw != "" {
		filters.To, _ = time.Parse("2006-01-02", raw)
	}

	invoices, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"invoices":   invoices,
		"pagination": shared.NewPagination(filters.Page, filters.PerPage, total),
	})
}

func (p commitPayload) toInput() (CommitInput, error) {
	input := CommitInput{
		InvoiceNumber: p.InvoiceNumber,
		Supplier:      p.Supplier,
		Lines:         make([]LineInput, 0, len(p.Lines)),
	}
	if p.InvoiceDate != "" {
		date, err := time.Parse("2006-01-02", p.InvoiceDate)
		if err != nil {
			return CommitInput{}, errors.New("invoice_date must be YYYY-MM-DD")
		}
		input.InvoiceDate = date
	}
	for _, lp := range p.Lines {
		line := LineInput{
			ProductName: lp.ProductName,
			Category:    lp.Category,
			BatchNumber: lp.BatchNumber,
			Quantity:    lp.Quantity,
			Barcode:     lp.Barcode,
		}
		if lp.ExpiryDate != "" {
			expiry, err := time.Parse("2006-01-02", lp.ExpiryDate)
			if err != nil {
				return CommitInput{}, errors.New("expiry_date must be YYYY-MM-DD")
			}
			line.ExpiryDate = expiry
		}
		var err error
		if line.CostPrice, err = parseDecimalField(lp.CostPrice, "cost_price"); err != nil {
			return CommitInput{}, err
		}
		if line.SupplierDiscountPercent, err = parseDecimalField(lp.SupplierDiscountPercent, "supplier_discount_percent"); err != nil {
			return CommitInput{}, err
		}
		if line.VATRate, err = parseDecimalField(lp.VATRate, "vat_rate"); err != nil {
			return CommitInput{}, err
		}
		if line.DiscountedSellingPrice, err = parseDecimalField(lp.DiscountedSellingPrice, "discounted_selling_price"); err != nil {
			return CommitInput{}, err
		}
		input.Lines = append(input.Lines, line)
	}
	return input, nil
}

func parseDecimalField(value, name string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, errors.New(name + " is not a valid number")
	}
	return d, nil
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, r, http.StatusNotFound, "invoice not found")
	case errors.Is(err, ErrRolledBack):
		h.logger.Error("invoice commit rolled back", slog.String("error", err.Error()))
		httpx.Problem(w, r, http.StatusConflict, err.Error())
	default:
		h.logger.Error("invoice request failed", slog.String("error", err.Error()))
		httpx.Problem(w, r, http.StatusInternalServerError, "internal error")
	}
}

func actor(r *http.Request) (int64, string) {
	return shared.ActorFromContext(r.Context())
}
