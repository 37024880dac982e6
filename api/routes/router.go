package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ises-energia/scrc-backend/api/controllers"
	"github.com/ises-energia/scrc-backend/api/middleware"
	"github.com/ises-energia/scrc-backend/internal/brigades"
	"github.com/ises-energia/scrc-backend/internal/closures"
	"github.com/ises-energia/scrc-backend/internal/dispatch"
	"github.com/ises-energia/scrc-backend/internal/ingest"
	"github.com/ises-energia/scrc-backend/internal/reporting"
	"github.com/ises-energia/scrc-backend/internal/tracking"
	pkgauth "github.com/ises-energia/scrc-backend/pkg/auth"
	"github.com/ises-energia/scrc-backend/pkg/config"
	"github.com/ises-energia/scrc-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        pinger
	Redis     pinger
	Dispatch  dispatch.Service
	Reporting *reporting.Service
	Closures  *closures.Service
	Ingest    *ingest.Service
	Brigades  *brigades.Service
	Tracker   *tracking.Tracker
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/dispatch", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, pkgauth.RoleDispatcher, pkgauth.RoleAdmin))
			r.Post("/auto-assign", controllers.DispatchAutoAssign(deps.Dispatch, logg))
			r.Get("/zones", controllers.DispatchZones(deps.Reporting, logg))
			r.Get("/stats", controllers.DispatchStats(deps.Reporting, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireRoles(logg, pkgauth.RoleTechnician, pkgauth.RoleDispatcher, pkgauth.RoleAdmin)).
				Post("/{orderId}/close", controllers.CloseOrder(deps.Closures, logg))
			r.With(middleware.RequireRoles(logg, pkgauth.RoleDispatcher, pkgauth.RoleAdmin)).
				Post("/ingest", controllers.IngestOrders(deps.Ingest, logg))
		})

		r.Route("/brigades", func(r chi.Router) {
			r.Get("/", controllers.ListBrigades(deps.Brigades, logg))
			r.Get("/{brigadeId}", controllers.GetBrigade(deps.Brigades, logg))
		})

		r.Route("/tracking", func(r chi.Router) {
			r.Post("/position", controllers.ReportPosition(deps.Tracker, logg))
			r.Get("/technicians", controllers.ListTechnicians(deps.Tracker, logg))
		})
	})

	return r
}
