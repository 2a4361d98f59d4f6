package api

import (
	_ "fxledger/docs"
	ratehandler "fxledger/internal/rate/handler"
	synchandler "fxledger/internal/syncer/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	swagger "github.com/swaggo/http-swagger"
)

func NewRouter(rateHandler *ratehandler.Handler, syncHandler *synchandler.Handler) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/healthz"))

	// Swagger UI
	router.Get("/swagger/*", swagger.WrapHandler)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/rates/observations", rateHandler.IngestObservations)
		r.Get("/rates/supported-currencies", rateHandler.GetSupportedCodes)
		r.Post("/sync", syncHandler.SyncAll)
		r.Post("/sync/range", syncHandler.SyncRange)

		r.Route("/tenants/{tenantID}", func(r chi.Router) {
			r.Get("/rates/latest", rateHandler.GetLatest)
			r.Get("/rates/{date:\\d{4}-\\d{2}-\\d{2}}", rateHandler.GetForDate)
			r.Post("/sync", syncHandler.SyncTenant)
			r.Get("/sync/health", syncHandler.GetSyncHealth)
		})
	})
	return router
}
