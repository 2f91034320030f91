package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/pricewatch-backend/api/controllers"
	"github.com/angelmondragon/pricewatch-backend/api/middleware"
	"github.com/angelmondragon/pricewatch-backend/internal/catalog"
	"github.com/angelmondragon/pricewatch-backend/internal/store"
	"github.com/angelmondragon/pricewatch-backend/internal/tracker"
	"github.com/angelmondragon/pricewatch-backend/pkg/config"
	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
)

// NewRouter wires every HTTP endpoint of the price tracking API.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	productStore store.Store,
	trackerService *tracker.Service,
	resolver *catalog.Resolver,
	scanner *catalog.Scanner,
	targets []catalog.Target,
	events *catalog.RingSink,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, productStore))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(trackerService, logg))
			r.Post("/", controllers.ProductRegister(trackerService, logg))
			r.Post("/import", controllers.ProductImport(trackerService, logg))
			r.Route("/{code}", func(r chi.Router) {
				r.Get("/", controllers.ProductGet(trackerService, logg))
				r.Delete("/", controllers.ProductRemove(trackerService, logg))
				r.Get("/history", controllers.ProductHistory(trackerService, logg))
			})
		})

		r.Route("/updates", func(r chi.Router) {
			r.Post("/", controllers.UpdateTrigger(trackerService, logg))
			r.Get("/status", controllers.UpdateStatus(trackerService, events, logg))
		})

		r.Route("/exports", func(r chi.Router) {
			r.Get("/products", controllers.ExportTracked(trackerService, logg))
			r.Get("/offers", controllers.ExportOffers(trackerService, resolver, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/targets", controllers.ReportTargets(targets))
			r.Post("/section", controllers.ReportSection(scanner, targets, logg))
		})
	})

	return r
}
