package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/barberdesk/barberdesk/internal/barbers"
	"github.com/barberdesk/barberdesk/internal/observability"
	reportinghttp "github.com/barberdesk/barberdesk/internal/reporting/http"
	"github.com/barberdesk/barberdesk/internal/sales"
	"github.com/barberdesk/barberdesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	ReportingHandler *reportinghttp.Handler
	SalesHandler     *sales.Handler
	BarbersHandler   *barbers.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Barberdesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		if params.ReportingHandler != nil {
			api.Route("/reports", params.ReportingHandler.MountRoutes)
			api.Get("/reports.csv", params.ReportingHandler.ReportCSV)
		}
		if params.SalesHandler != nil {
			api.Route("/sales", params.SalesHandler.MountRoutes)
		}
		if params.BarbersHandler != nil {
			api.Route("/barbers", params.BarbersHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
