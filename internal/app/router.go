package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pharmapos/pharmapos/internal/activity"
	"github.com/pharmapos/pharmapos/internal/auth"
	"github.com/pharmapos/pharmapos/internal/catalog"
	"github.com/pharmapos/pharmapos/internal/creditnote"
	"github.com/pharmapos/pharmapos/internal/invoice"
	"github.com/pharmapos/pharmapos/internal/observability"
	"github.com/pharmapos/pharmapos/internal/payments"
	"github.com/pharmapos/pharmapos/internal/reports"
	"github.com/pharmapos/pharmapos/internal/sales"
	"github.com/pharmapos/pharmapos/internal/shared"
	"github.com/pharmapos/pharmapos/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager

	AuthHandler       *auth.Handler
	CatalogHandler    *catalog.Handler
	SalesHandler      *sales.Handler
	InvoiceHandler    *invoice.Handler
	CreditNoteHandler *creditnote.Handler
	PaymentsHandler   *payments.Handler
	ReportsHandler    *reports.Handler
	ActivityHandler   *activity.Handler
	JobsHandler       *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Mount("/auth", params.AuthHandler.Routes())

	r.Group(func(r chi.Router) {
		r.Use(RequireUser)
		r.Route("/products", params.CatalogHandler.MountRoutes)
		r.Mount("/sales", params.SalesHandler.Routes())
		r.Mount("/invoices", params.InvoiceHandler.Routes())
		r.Mount("/credit-notes", params.CreditNoteHandler.Routes())
		r.Mount("/payments", params.PaymentsHandler.Routes())
		r.Mount("/reports", params.ReportsHandler.Routes())
		r.Mount("/activity", params.ActivityHandler.Routes())
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
