package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/aurelia-shop/pricing-engine/internal/cache"
	"github.com/aurelia-shop/pricing-engine/internal/domain/order"
	"github.com/aurelia-shop/pricing-engine/internal/domain/pricing"
	"github.com/aurelia-shop/pricing-engine/internal/handler"
	"github.com/aurelia-shop/pricing-engine/internal/repository"
	"github.com/aurelia-shop/pricing-engine/pkg/health"
	"github.com/aurelia-shop/pricing-engine/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Repositories.
	productRepo := repository.NewProductRepository(pool)
	discountRepo := repository.NewDiscountRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	apikeyRepo := repository.NewAPIKeyRepository(pool)

	// Discount catalog source, optionally fronted by Redis.
	var (
		catalogSource pricing.Repository = discountRepo
		discountCache *cache.DiscountCache
	)
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "parse redis url")
		}
		rdb := redis.NewClient(redisOpts)
		defer func() {
			_ = rdb.Close()
		}()
		healthSvc.AddReadinessCheck("redis", 5*time.Second, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})

		discountCache = cache.NewDiscountCache(discountRepo, rdb, cfg.Cache.TTL)
		catalogSource = discountCache
		lg.Info("Discount cache enabled", zap.Duration("ttl", cfg.Cache.TTL))
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Domain services.
	calculator := pricing.NewCalculator(catalogSource, pricing.Options{
		FixedPerUnit: cfg.Pricing.FixedPerUnit,
	})
	orderService := order.NewService(productRepo, calculator, orderRepo)

	// HTTP handlers.
	h := handler.NewHandler(
		handler.Config{
			ImageBaseURL: cfg.ImageBaseURL,
			APIKeyPepper: []byte(cfg.APIKeyPepper),
		},
		productRepo,
		calculator,
		orderService,
		discountRepo,
		apikeyRepo,
	)
	if discountCache != nil {
		h.SetCatalogInvalidator(discountCache.Invalidate)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	// Trace and measure the API surface, leaving the probe endpoints out.
	var api http.Handler = otelhttp.NewHandler(mux, "aurelia-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/livez" && r.URL.Path != "/readyz"
		}),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(api,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins: cfg.CORS.Origins,
				AllowHeaders: []string{"Content-Type", "Authorization", "api_key"},
				MaxAge:       86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.RequestID(),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
