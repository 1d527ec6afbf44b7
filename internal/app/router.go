package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mrwhyte0520/contabi/internal/accounting/accounts"
	"github.com/mrwhyte0520/contabi/internal/accounting/journals"
	"github.com/mrwhyte0520/contabi/internal/accounting/reports"
	"github.com/mrwhyte0520/contabi/internal/assets/depreciation"
	"github.com/mrwhyte0520/contabi/internal/assets/revaluation"
	"github.com/mrwhyte0520/contabi/internal/observability"
	"github.com/mrwhyte0520/contabi/internal/payroll"
	"github.com/mrwhyte0520/contabi/internal/platform/httpx"
	"github.com/mrwhyte0520/contabi/internal/sales/quotations"
	"github.com/mrwhyte0520/contabi/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	AccountsHandler     *accounts.Handler
	JournalsHandler     *journals.Handler
	ReportsHandler      *reports.Handler
	DepreciationHandler *depreciation.Handler
	RevaluationHandler  *revaluation.Handler
	PayrollHandler      *payroll.Handler
	QuotesHandler       *quotations.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouterParams builds every handler from the wired services.
func NewRouterParams(cfg *Config, logger *slog.Logger, svc *Services, jobHandler *jobs.Handler, metrics *observability.Metrics) RouterParams {
	return RouterParams{
		Logger:              logger,
		Config:              cfg,
		AccountsHandler:     accounts.NewHandler(logger, svc.Directory),
		JournalsHandler:     journals.NewHandler(logger, svc.Journals, svc.Reader),
		ReportsHandler:      reports.NewHandler(logger, svc.Reports),
		DepreciationHandler: depreciation.NewHandler(logger, svc.Depreciation),
		RevaluationHandler:  revaluation.NewHandler(logger, svc.Revaluation),
		PayrollHandler:      payroll.NewHandler(logger, svc.Payroll),
		QuotesHandler:       quotations.NewHandler(logger, svc.Quotes),
		JobHandler:          jobHandler,
		Metrics:             metrics,
	}
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if params.AccountsHandler != nil {
			r.Route("/accounts", params.AccountsHandler.MountRoutes)
		}
		if params.JournalsHandler != nil {
			r.Route("/journals", params.JournalsHandler.MountRoutes)
		}
		if params.ReportsHandler != nil {
			r.Route("/reports", params.ReportsHandler.MountRoutes)
		}
		if params.DepreciationHandler != nil {
			r.Route("/depreciation", params.DepreciationHandler.MountRoutes)
		}
		if params.RevaluationHandler != nil {
			r.Route("/revaluations", params.RevaluationHandler.MountRoutes)
		}
		if params.PayrollHandler != nil {
			r.Route("/payroll", params.PayrollHandler.MountRoutes)
		}
		if params.QuotesHandler != nil {
			r.Route("/quotes", params.QuotesHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	return r
}
