package reports

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pharmapos/pharmapos/internal/platform/httpx"
)

// ExportPort is the row-query surface behind CSV downloads.
type ExportPort interface {
	SalesRows(ctx context.Context, from, to time.Time) ([]SalesRow, error)
	StockRows(ctx context.Context) ([]StockRow, error)
}

// Handler exposes the reporting HTTP API.
type Handler struct {
	logger  *slog.Logger
	service *Service
	export  ExportPort
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, export ExportPort) *Handler {
	return &Handler{logger: logger, service: service, export: export}
}

// Routes mounts the report endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/dashboard", h.dashboard)
	r.Get("/sales.csv", h.salesCSV)
	r.Get("/stock.csv", h.stockCSV)
	return r
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	from, to, err := window(r)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	dashboard, err := h.service.Dashboard(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			httpx.Problem(w, r, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("dashboard query failed", slog.String("error", err.Error()))
		httpx.Problem(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.JSON(w, http.StatusOK, dashboard)
}

func (h *Handler) salesCSV(w http.ResponseWriter, r *http.Request) {
	from, to, err := window(r)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := h.export.SalesRows(r.Context(), from, to)
	if err != nil {
		h.logger.Error("sales export failed", slog.String("error", err.Error()))
		httpx.Problem(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="sales.csv"`)
	if err := WriteSalesCSV(w, rows); err != nil {
		h.logger.Error("sales export write failed", slog.String("error", err.Error()))
	}
}

func (h *Handler) stockCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := h.export.StockRows(r.Context())
	if err != nil {
		h.logger.Error("stock export failed", slog.String("error", err.Error()))
		httpx.Problem(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="stock.csv"`)
	if err := WriteStockCSV(w, rows); err != nil {
		h.logger.Error("stock export write failed", slog.String("error", err.Error()))
	}
}

// window parses from/to query dates, defaulting to today.
func window(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := now

	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be YYYY-MM-DD")
		}
		from = parsed
	}
	if raw := q.Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be YYYY-MM-DD")
		}
		to = parsed.Add(24 * time.Hour)
	}
	return from, to, nil
}
