package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cyrasubia/phoinix-storefront/pkg/health"
	"github.com/cyrasubia/phoinix-storefront/pkg/middleware"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/catalog"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/service"
)

const serviceName = "storefront"

// RouterConfig holds the router settings that come from configuration.
type RouterConfig struct {
	CORS           middleware.CORSConfig
	CatalogMaxAge  time.Duration
	RequestTimeout time.Duration
	// Per-client limit on cart requests; RateLimitRPS <= 0 disables it.
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a chi router with all storefront routes registered.
// HTTP metrics are registered on reg, which also backs /metrics.
func NewRouter(
	cartService *service.CartService,
	catalogService *catalog.Service,
	healthHandler *health.Handler,
	reg *prometheus.Registry,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(middleware.NewHTTPMetrics(serviceName, reg)))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	catalogHandler := NewCatalogHandler(catalogService, logger)
	cartHandler := NewCartHandler(cartService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(cfg.CatalogMaxAge))

			r.Get("/products", catalogHandler.ListProducts)
			r.Get("/products/{handle}", catalogHandler.GetProduct)
			r.Get("/collections", catalogHandler.ListCollections)
			r.Get("/collections/{handle}", catalogHandler.GetCollection)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))

			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)

			r.Group(func(r chi.Router) {
				r.Use(chimw.AllowContentType("application/json"))

				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{productId}", cartHandler.UpdateItemQuantity)
				r.Put("/panel", cartHandler.SetPanel)
			})

			r.Delete("/items/{productId}", cartHandler.RemoveItem)
			r.Post("/refresh", cartHandler.Refresh)
		})
	})

	return r
}
