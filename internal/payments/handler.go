package payments

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pharmapos/pharmapos/internal/platform/httpx"
	"github.com/pharmapos/pharmapos/internal/shared"
)

// Handler exposes the payments HTTP API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// Routes mounts the payment endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/pending", h.pending)
	r.Get("/{reference}", h.get)
	r.Post("/{reference}/complete", h.complete)
	return r
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ListPending(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	payment, err := h.service.Get(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

type completePayload struct {
	Confirmed bool   `json:"confirmed"`
	Note      string `json:"note" validate:"required"`
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	var payload completePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "note is required for manual completion")
		return
	}

	actorID, actorName := shared.ActorFromContext(r.Context())

	payment, err := h.service.CompleteManually(r.Context(),
		chi.URLParam(r, "reference"), payload.Confirmed, payload.Note, actorID, actorName)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, r, http.StatusNotFound, "payment not found")
	case errors.Is(err, ErrAlreadyResolved):
		httpx.Problem(w, r, http.StatusConflict, err.Error())
	default:
		h.logger.Error("payment request failed", slog.String("error", err.Error()))
		httpx.Problem(w, r, http.StatusInternalServerError, "internal error")
	}
}
