package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/config"
	"github.com/noah-isme/toko-pricing/internal/health"
	"github.com/noah-isme/toko-pricing/internal/lock"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/quote"
	"github.com/noah-isme/toko-pricing/internal/ratelimit"
	"github.com/noah-isme/toko-pricing/internal/resilience"
	"github.com/noah-isme/toko-pricing/internal/security"
	"github.com/noah-isme/toko-pricing/internal/storefront"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsEnabled := cfg.Obs.MetricsEnabled
	if metricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)
		resilience.MustRegisterMetrics(cfg.Obs.MetricsNamespace, nil)
	}

	tracingEnabled := cfg.Obs.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "toko-pricing",
			Endpoint:      cfg.Obs.OTLPEndpoint,
			Exporter:      cfg.Obs.TracingExporter,
			SamplingRatio: cfg.Obs.SamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := connectRedis(ctx, cfg, logger, metricsEnabled)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
	}

	breaker := resilience.NewBreakerFromSettings(resilience.Settings{
		MinRequests:  cfg.Storefront.BreakerMinRequests,
		FailureRatio: cfg.Storefront.BreakerFailureRatio,
		OpenFor:      cfg.Storefront.BreakerOpenFor,
	})
	client, err := storefront.New(storefront.Options{
		BaseURL:     cfg.Storefront.BaseURL,
		Timeout:     cfg.Storefront.Timeout,
		MaxAttempts: cfg.Storefront.ReadAttempts,
		Breaker:     breaker,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise storefront client")
	}

	snapshots := catalog.NewCache(redisClient, cfg.SnapshotCacheTTL).WithObserver(obs.ObserveSnapshotCache)
	quoteSvc := quote.NewService(client, snapshots, cfg.PricingWorkers, logger)
	quoteHandler := &quote.Handler{Svc: quoteSvc, Logger: logger}

	var cartLocker cart.Locker = &lock.Local{Wait: cfg.CartLockWait}
	if redisClient != nil {
		cartLocker = lock.Locker{R: redisClient, Wait: cfg.CartLockWait}
	}
	cartHandler := &cart.Handler{
		Svc:         cart.NewService(client, logger),
		Pricer:      quoteSvc,
		Locker:      cartLocker,
		LockTTL:     cfg.CartLockTTL,
		Concurrency: cfg.PricingWorkers,
		Logger:      logger,
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), nil)
	}

	limiterStore, err := ratelimit.NewStore(redisClient, "")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limit store")
	}
	lim, err := ratelimit.New(limiterStore, cfg.RateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}
	rateLimit := ratelimit.Handler{
		Limiter: lim,
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limit store unavailable") },
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.EnableHSTS}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:           readinessChecker{storefront: client, redis: redisClient},
		StorefrontTimeout: cfg.Storefront.Timeout,
		RedisTimeout:      300 * time.Millisecond,
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(rateLimit.Middleware)
		v.Use(security.BodyLimit{Max: cfg.MaxBodyBytes}.Middleware)
		v.Use(storefront.ForwardAuthorization)

		v.Post("/quotes", quoteHandler.Create)
		v.Post("/quotes/batch", quoteHandler.Batch)
		v.Get("/products/{id}/quote", quoteHandler.ProductQuote)
		v.Delete("/snapshots", quoteHandler.Invalidate)

		v.Route("/cart", func(c chi.Router) {
			c.Get("/", cartHandler.Get)
			c.Post("/lines", cartHandler.AddLine)
			c.Patch("/lines/quantity", cartHandler.UpdateQuantity)
			c.Delete("/lines", cartHandler.RemoveLine)
			c.Put("/lines/dimensions", cartHandler.ReplaceDimensions)
			c.Post("/batch", cartHandler.ApplyBatch)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("storefront", cfg.Storefront.BaseURL).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
		health.SetReady(false)
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}
}

// connectRedis returns nil when no REDIS_URL is set; snapshots are then fetched on every
// request and rate limiting falls back to the in-process store.
func connectRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger, metrics bool) *redis.Client {
	if !cfg.CacheEnabled() {
		logger.Warn().Msg("REDIS_URL not set, snapshot cache disabled")
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return client
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	storefront *storefront.Client
	redis      *redis.Client
}

func (c readinessChecker) PingStorefront(ctx context.Context, timeout time.Duration) error {
	if c.storefront == nil {
		return errors.New("storefront not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.storefront.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return health.ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}
