package activity

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pharmapos/pharmapos/internal/platform/httpx"
	"github.com/pharmapos/pharmapos/internal/shared"
)

// Handler exposes the activity timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Routes mounts the timeline endpoint.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.timeline)
	return r
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := Filters{
		Action: q.Get("action"),
		Entity: q.Get("entity"),
	}
	filters.ActorID, _ = strconv.ParseInt(q.Get("actor_id"), 10, 64)
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	if raw := q.Get("from"); raw != "" {
		filters.From, _ = time.Parse("2006-01-02", raw)
	}
	if raw := q.Get("to"); raw != "" {
		filters.To, _ = time.Parse("2006-01-02", raw)
	}

	entries, total, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("timeline query failed", slog.String("error", err.Error()))
		httpx.Problem(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"entries":    entries,
		"pagination": shared.NewPagination(filters.Page, filters.PerPage, total),
	})
}
