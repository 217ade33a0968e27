package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/shuttle-dispatch/api/controllers"
	"github.com/angelmondragon/shuttle-dispatch/api/middleware"
	"github.com/angelmondragon/shuttle-dispatch/internal/assignments"
	"github.com/angelmondragon/shuttle-dispatch/pkg/config"
	"github.com/angelmondragon/shuttle-dispatch/pkg/db"
	"github.com/angelmondragon/shuttle-dispatch/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	gatherer prometheus.Gatherer,
	assignmentsService assignments.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/services/{serviceID}", func(r chi.Router) {
			r.Get("/assignments", controllers.ListAssignments(assignmentsService, logg))
			r.Route("/drops", func(r chi.Router) {
				r.Get("/shuttles", controllers.DropShuttles(assignmentsService, logg))
				r.Get("/drivers", controllers.DropDrivers(assignmentsService, logg))
				r.Get("/routes", controllers.DropRoutes(assignmentsService, logg))
				r.Get("/stops", controllers.DropStops(assignmentsService, logg))
			})
		})

		r.Route("/routes/{routeID}", func(r chi.Router) {
			r.Get("/stops", controllers.DropRouteStops(assignmentsService, logg))
			r.Get("/plan", controllers.PlanFromRoute(assignmentsService, logg))
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Post("/", controllers.CreateAssignment(assignmentsService, logg))
			r.Route("/{assignmentID}", func(r chi.Router) {
				r.Get("/", controllers.GetAssignment(assignmentsService, logg))
				r.Put("/", controllers.UpdateAssignment(assignmentsService, logg))
				r.Delete("/", controllers.ArchiveAssignment(assignmentsService, logg))
				r.Get("/stops", controllers.ListAssignmentStops(assignmentsService, logg))
			})
		})
	})

	return r
}
