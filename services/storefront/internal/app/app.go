package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/cyrasubia/phoinix-storefront/pkg/health"
	"github.com/cyrasubia/phoinix-storefront/pkg/httpclient"
	pkgkafka "github.com/cyrasubia/phoinix-storefront/pkg/kafka"
	"github.com/cyrasubia/phoinix-storefront/pkg/middleware"
	"github.com/cyrasubia/phoinix-storefront/pkg/tracing"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/cart"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/catalog"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/catalog/fixture"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/catalog/shopify"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/config"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/event"
	handler "github.com/cyrasubia/phoinix-storefront/services/storefront/internal/handler/http"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/metrics"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/service"
)

const serviceName = "storefront"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	store          *cart.Store
	closeStorage   func() error
	producer       *pkgkafka.Producer
	shutdownTracer func(context.Context) error
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
// The cart starts hydrating in the background; readiness reports it.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracingCfg := tracing.DefaultConfig(serviceName)
	tracingCfg.Environment = cfg.Environment
	tracingCfg.Enabled = cfg.OTELEnabled
	tracingCfg.OTLPEndpoint = cfg.OTELEndpoint
	tracingCfg.SampleRate = cfg.OTELSampleRate
	shutdownTracer, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	kv, closeStorage, err := openStorage(ctx, cfg, reg, logger)
	if err != nil {
		_ = shutdownTracer(context.Background())
		return nil, err
	}

	// Cart store and its subscribers.
	cartMetrics := metrics.NewCartMetrics(reg)
	store := cart.NewStore(kv, cart.Options{
		Key:             cfg.CartKey,
		MaxLineQuantity: cfg.CartMaxQuantity,
		WriteQueueSize:  cfg.CartWriteQueueSize,
		WriteTimeout:    cfg.CartWriteTimeout,
		OnPersistError:  cartMetrics.PersistFailed,
	}, logger)
	store.Subscribe(cartMetrics.Observe)

	var producer *pkgkafka.Producer
	if cfg.KafkaEnabled {
		producer = pkgkafka.NewProducer(
			pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers),
			logger,
			pkgkafka.NewProducerMetrics(reg),
		)
		store.Subscribe(event.NewProducer(producer, cfg.CartKey, logger).Listen)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	go func() {
		hctx, cancel := context.WithTimeout(context.Background(), cfg.CartWriteTimeout)
		defer cancel()
		store.Hydrate(hctx)
	}()

	catalogService, err := newCatalog(cfg, reg, logger)
	if err != nil {
		store.Close()
		_ = closeStorage()
		_ = shutdownTracer(context.Background())
		return nil, err
	}
	cartService := service.NewCartService(store, catalogService, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("storage", kv.Ping)
	healthHandler.RegisterCritical("cart", func(context.Context) error {
		if !store.Hydrated() {
			return errors.New("cart not hydrated yet")
		}
		return nil
	})
	if producer != nil {
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
	}

	// HTTP router.
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSOrigins
	router := handler.NewRouter(cartService, catalogService, healthHandler, reg, handler.RouterConfig{
		CORS:           cors,
		CatalogMaxAge:  cfg.CatalogMaxAge,
		RequestTimeout: cfg.RequestTimeout,
		RateLimitRPS:   cfg.CartRateLimitRPS,
		RateLimitBurst: cfg.CartRateLimitBurst,
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		store:          store,
		closeStorage:   closeStorage,
		producer:       producer,
		shutdownTracer: shutdownTracer,
		httpServer:     httpServer,
	}, nil
}

// newCatalog builds the catalog service: Shopify with the embedded demo
// catalog as fallback, or the demo catalog alone.
func newCatalog(cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*catalog.Service, error) {
	fallback, err := fixture.New()
	if err != nil {
		return nil, fmt.Errorf("load fallback catalog: %w", err)
	}

	if cfg.CatalogProvider != config.CatalogShopify {
		logger.Info("using the demo catalog")
		return catalog.NewService(nil, fallback, logger), nil
	}

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.CatalogTimeout
	httpCfg.MaxRetries = cfg.CatalogMaxRetries

	breakerCfg := httpclient.DefaultCircuitBreakerConfig("shopify")
	breakerCfg.Timeout = cfg.CatalogBreakerOpen

	doer := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpCfg),
		breakerCfg,
		logger,
		httpclient.NewBreakerMetrics(reg),
	)
	upstream := shopify.NewClient(shopify.Config{
		Domain:      cfg.ShopifyDomain,
		APIVersion:  cfg.ShopifyAPIVersion,
		AccessToken: cfg.ShopifyToken,
		Endpoint:    cfg.ShopifyEndpoint,
	}, doer, logger)

	logger.Info("using the Shopify catalog",
		slog.String("domain", cfg.ShopifyDomain),
		slog.String("api_version", cfg.ShopifyAPIVersion),
	)
	return catalog.NewService(upstream, fallback, logger), nil
}

// Handler returns the HTTP handler the server serves.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components. Queued cart writes are drained
// before storage is closed.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	// Drain pending cart writes.
	a.store.Close()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if err := a.closeStorage(); err != nil {
		a.logger.Error("storage close error", slog.String("error", err.Error()))
	}

	if err := a.shutdownTracer(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
