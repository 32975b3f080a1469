package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	hhttp "teamhub/internal/handler/http"
	hemail "teamhub/internal/handler/http/email"
	"teamhub/internal/handler/http/middleware"
	"teamhub/internal/handler/http/requestid"

	appconfig "teamhub/internal/config"
	"teamhub/internal/infra/mailer"
	"teamhub/internal/infra/windowstore"
	"teamhub/internal/observability/logging"
	"teamhub/internal/observability/tracing"
	"teamhub/internal/resilience"
	"teamhub/internal/resilience/circuitbreaker"
	emailUC "teamhub/internal/usecase/email"
	"teamhub/pkg/config"
	"teamhub/pkg/ratelimit"
)

const (
	shutdownGrace = 5 * time.Second
	maxBodyBytes  = 1 << 20

	routeHealth   = "/health"
	routeLive     = "/live"
	routeMetrics  = "/metrics"
	routeRLStatus = "/v1/ratelimit/status"
)

func main() {
	logger := initLogger()
	version := getVersion()

	shutdownTracing := tracing.Init()
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("failed to shut down tracer provider", slog.Any("error", err))
		}
	}()

	components, err := setupServer(logger, version)
	if err != nil {
		logger.Error("server setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer components.Close()

	if err := runServer(logger, components, version); err != nil {
		logger.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

// initLogger builds the logger from LOG_LEVEL and LOG_FORMAT and makes it the
// default.
func initLogger() *slog.Logger {
	logger := logging.NewFromEnv()
	slog.SetDefault(logger)
	return logger
}

func getVersion() string {
	return config.GetEnvString("VERSION", "dev")
}

// ServerComponents holds what runServer needs beyond the handler.
type ServerComponents struct {
	Handler       http.Handler
	Limiter       *ratelimit.Limiter
	SweepSchedule string
	SweepTimeout  time.Duration

	closers []func() error
}

// Close releases external connections.
func (c *ServerComponents) Close() {
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			slog.Error("failed to close resource", slog.Any("error", err))
		}
	}
}

// rateLimitStore is the selected window store plus what /health reports
// about it.
type rateLimitStore struct {
	store   ratelimit.WindowStore
	backend hhttp.BackendReporter
	redis   hhttp.Pinger
	close   func() error
}

type staticBackend string

func (b staticBackend) Backend() string { return string(b) }

// buildStore returns a memory store, or Redis behind a breaker that degrades
// to a local memory store.
func buildStore(cfg *ratelimit.Config, metrics ratelimit.Metrics, reg prometheus.Registerer, logger *slog.Logger) rateLimitStore {
	memory := ratelimit.NewMemoryStore(ratelimit.MemoryStoreConfig{
		MaxKeys: cfg.MaxActiveKeys,
		Metrics: metrics,
	})
	if cfg.Backend != ratelimit.BackendRedis {
		return rateLimitStore{store: memory, backend: staticBackend("memory")}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	redisStore := windowstore.NewRedisStore(client, "")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisStore.Ping(ctx); err != nil {
		logger.Warn("redis unreachable at startup, serving from memory until it recovers",
			slog.String("addr", cfg.RedisAddr),
			slog.Any("error", err))
	}

	breakerCfg := windowstore.InstrumentBreaker(reg, circuitbreaker.RedisConfig())
	fallback := windowstore.NewFallbackStore(redisStore, memory,
		circuitbreaker.New(breakerCfg), logger)

	logger.Info("rate limit store: redis with memory fallback",
		slog.String("addr", cfg.RedisAddr))
	return rateLimitStore{
		store:   fallback,
		backend: fallback,
		redis:   redisStore,
		close:   client.Close,
	}
}

// loadRegistry loads APPS_CONFIG. Without it no key resolves, so every
// protected route fails closed.
func loadRegistry(defaultRPM int, logger *slog.Logger) (*appconfig.AppRegistry, error) {
	path := config.GetEnvString("APPS_CONFIG", "")
	if path == "" {
		logger.Warn("APPS_CONFIG not set, no application can call protected routes")
		return appconfig.ParseAppRegistry(nil, defaultRPM)
	}

	registry, err := appconfig.LoadAppRegistry(path, defaultRPM)
	if err != nil {
		return nil, err
	}
	logger.Info("app registry loaded",
		slog.String("path", path),
		slog.Int("apps", registry.Len()))
	return registry, nil
}

func buildEmailService(runner *resilience.Runner, logger *slog.Logger) *emailUC.Service {
	mailerCfg := config.LoadMailerConfig()

	var sender mailer.Sender
	if mailerCfg.Enabled {
		sender = mailer.NewHTTPSender(mailer.HTTPConfig{
			Endpoint:          mailerCfg.ProviderURL,
			APIKey:            mailerCfg.APIKey,
			From:              mailerCfg.From,
			Timeout:           mailerCfg.HTTPTimeout,
			RequestsPerSecond: mailerCfg.RPS,
			Burst:             mailerCfg.Burst,
		}, nil, logger)
		logger.Info("email delivery enabled",
			slog.Float64("rps", mailerCfg.RPS))
	} else {
		sender = mailer.NewNoopSender(logger)
		logger.Warn("email delivery is disabled, messages are logged only")
	}

	return emailUC.NewService(sender, runner, emailUC.Config{
		Resilience: config.LoadResilienceConfig(),
		From:       mailerCfg.From,
		Logger:     logger,
	})
}

func setupServer(logger *slog.Logger, version string) (*ServerComponents, error) {
	rateLimitCfg, err := config.LoadRateLimitConfig()
	if err != nil {
		return nil, err
	}

	rateLimitMetrics := ratelimit.NewPrometheusMetrics()
	store := buildStore(rateLimitCfg, rateLimitMetrics, rateLimitMetrics.Registry(), logger)

	limiter := ratelimit.NewLimiter(ratelimit.LimiterConfig{
		Store:   store.store,
		Window:  rateLimitCfg.Window,
		Metrics: rateLimitMetrics,
	})

	registry, err := loadRegistry(rateLimitCfg.DefaultRequestsPerMinute, logger)
	if err != nil {
		return nil, err
	}

	resilienceCfg := config.LoadResilienceConfig()
	metricsSink := resilience.NewMetricsSink()
	runner := resilience.NewRunner(resilience.Config{
		Circuits: circuitbreaker.CircuitConfig{
			FailureThreshold: resilienceCfg.FailureThreshold,
			RecoveryPeriod:   resilienceCfg.RecoveryPeriod,
		},
		Sink: resilience.MultiSink{resilience.NewLogSink(logger), metricsSink},
	})
	emailSvc := buildEmailService(runner, logger)

	httpRegistry := prometheus.NewRegistry()
	httpMetrics := hhttp.NewHTTPMetrics(httpRegistry,
		routeHealth, routeLive, routeMetrics, routeRLStatus,
		"/v1/emails", "/v1/emails/batch", "/v1/emails/password-reset")

	health := &hhttp.HealthHandler{
		Version:  version,
		Store:    limiter,
		Backend:  store.backend,
		Redis:    store.redis,
		Circuits: runner.Circuits(),
		Logger:   logger,
	}

	mux := http.NewServeMux()
	mux.Handle("GET "+routeHealth, health)
	mux.Handle("GET "+routeLive, &hhttp.LiveHandler{})
	mux.Handle("GET "+routeMetrics, hhttp.MetricsHandler(
		prometheus.DefaultGatherer,
		httpRegistry,
		rateLimitMetrics.Registry(),
		metricsSink.Registry(),
	))
	mux.Handle("GET "+routeRLStatus, hhttp.RateLimitStatusHandler{Limiter: limiter, Logger: logger})
	hemail.Register(mux, emailSvc)

	public := append([]string{routeHealth, routeLive, routeMetrics}, registry.PublicEndpoints()...)

	rateLimit := func(next http.Handler) http.Handler { return next }
	if rateLimitCfg.Enabled {
		appLimiter := middleware.NewAppRateLimiter(middleware.AppRateLimiterConfig{
			Limiter: limiter,
			Metrics: rateLimitMetrics,
			Logger:  logger,
		})
		rateLimit = middleware.SkipPaths(slices.Concat(public, []string{routeRLStatus}), appLimiter.Middleware())
	} else {
		logger.Warn("rate limiting is DISABLED - not recommended for production")
	}

	handler := hhttp.Chain(mux,
		requestid.Middleware,
		tracing.Middleware,
		hhttp.Recover(logger),
		middleware.SkipPaths(public, middleware.ResolveIdentity(registry)),
		hhttp.Logging(logger),
		hhttp.LimitRequestBody(maxBodyBytes),
		httpMetrics.Middleware,
		rateLimit,
	)

	logger.Info("rate limiting initialized",
		slog.Bool("enabled", rateLimitCfg.Enabled),
		slog.String("backend", string(rateLimitCfg.Backend)),
		slog.Duration("window", rateLimitCfg.Window),
		slog.Int("default_rpm", rateLimitCfg.DefaultRequestsPerMinute),
		slog.Int("apps", registry.Len()))

	components := &ServerComponents{
		Handler:       handler,
		Limiter:       limiter,
		SweepSchedule: rateLimitCfg.SweepSchedule,
		SweepTimeout:  config.SweepTimeout(),
	}
	if store.close != nil {
		components.closers = append(components.closers, store.close)
	}
	return components, nil
}

// runServer serves HTTP and runs the window sweeper until SIGINT or SIGTERM,
// then gives in-flight requests shutdownGrace to finish.
func runServer(logger *slog.Logger, components *ServerComponents, version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := config.GetEnvString("HTTP_ADDR", ":8080")
	srv := &http.Server{
		Addr:              addr,
		Handler:           components.Handler,
		ReadHeaderTimeout: 10 * time.Second, // Slowloris
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return hhttp.RunRateLimitSweeper(gctx, components.Limiter,
			components.SweepSchedule, components.SweepTimeout, logger)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("server stopped")
		return nil
	})

	return g.Wait()
}
