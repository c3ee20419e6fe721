package creditnote

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pharmapos/pharmapos/internal/platform/httpx"
	"github.com/pharmapos/pharmapos/internal/shared"
)

// Handler exposes the credit note HTTP API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// Routes mounts the credit note endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.commit)
	r.Get("/{id}", h.get)
	return r
}

type linePayload struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
	Reason    string `json:"reason"`
}

type commitPayload struct {
	CreditNoteNumber string        `json:"credit_note_number" validate:"required"`
	Supplier         string        `json:"supplier" validate:"required"`
	ReturnDate       string        `json:"return_date"`
	Lines            []linePayload `json:"lines" validate:"required,min=1,dive"`
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

	input := CommitInput{
		CreditNoteNumber: payload.CreditNoteNumber,
		Supplier:         payload.Supplier,
		Lines:            make([]LineInput, 0, len(payload.Lines)),
	}
	if payload.ReturnDate != "" {
		date, err := time.Parse("2006-01-02", payload.ReturnDate)
		if err != nil {
			httpx.Problem(w, r, http.StatusBadRequest, "return_date must be YYYY-MM-DD")
			return
		}
		input.ReturnDate = date
	}
	for _, lp := range payload.Lines {
		input.Lines = append(input.Lines, LineInput{
			ProductID: lp.ProductID,
			Quantity:  lp.Quantity,
			Reason:    lp.Reason,
		})
	}
	input.ActorID, input.ActorName = shared.ActorFromContext(r.Context())

	note, err := h.service.Commit(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, note)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid credit note id")
		return
	}
	note, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, note)
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

	notes, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"credit_notes": notes,
		"pagination":   shared.NewPagination(filters.Page, filters.PerPage, total),
	})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, r, http.StatusNotFound, "credit note not found")
	default:
		h.logger.Error("credit note request failed", slog.String("error", err.Error()))
		httpx.Problem(w, r, http.StatusInternalServerError, "internal error")
	}
}
