package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Cheertaboi/esim-catalog-service/internal/api/handlers"
	"github.com/Cheertaboi/esim-catalog-service/internal/api/middleware"
	"github.com/Cheertaboi/esim-catalog-service/pkg/logger"
	"github.com/Cheertaboi/esim-catalog-service/pkg/metrics"
)

type Deps struct {
	Catalog        handlers.CatalogService
	Esim           handlers.EsimResolver
	Logger         logger.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
}

// NewRouter builds the HTTP router for the catalog-service
func NewRouter(d Deps) http.Handler {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}
	if d.Logger == nil {
		d.Logger = logger.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewNop()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(d.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(chimw.Timeout(d.RequestTimeout))

	catalogHandler := handlers.NewCatalogHandler(d.Catalog)
	esimHandler := handlers.NewEsimHandler(d.Esim)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/bundles", func(r chi.Router) {
			r.Get("/", catalogHandler.ListBundles)
			r.Get("/{bundleId}", catalogHandler.GetBundle)
		})
		r.Route("/countries", func(r chi.Router) {
			r.Get("/", catalogHandler.ListCountries)
			r.Get("/{iso}", catalogHandler.GetCountry)
		})
		r.Get("/regions", catalogHandler.ListRegions)
		r.Post("/catalog/refresh", catalogHandler.Refresh)

		r.Route("/esim/qr", func(r chi.Router) {
			r.Get("/", esimHandler.GetQRCode)
			r.Post("/refresh", esimHandler.RefreshQRCode)
		})
	})

	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return otelhttp.NewHandler(r, "catalog-service")
}
