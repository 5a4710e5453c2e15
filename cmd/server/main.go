package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/portfolio/internal/config"
	"github.com/benvon/portfolio/internal/database"
	"github.com/benvon/portfolio/internal/gatekeeper"
	"github.com/benvon/portfolio/internal/handlers"
	"github.com/benvon/portfolio/internal/logger"
	"github.com/benvon/portfolio/internal/middleware"
	"github.com/benvon/portfolio/internal/models"
	"github.com/benvon/portfolio/internal/queue"
	"github.com/benvon/portfolio/internal/ratelimit"
	"github.com/benvon/portfolio/internal/telemetry"
	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.New(cfg.LogFormat, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("static_dir", cfg.StaticDir),
		zap.String("rate_limit_store", cfg.RateLimitStore),
		zap.String("page_rate_limit", cfg.PageRateLimit),
		zap.String("contact_rate_limit", cfg.ContactRateLimit),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Background loops (reloaders, sweepers) stop when this is cancelled.
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	tracingService := ""
	if tp := initTracing(cfg, zapLogger); tp != nil {
		tracingService = cfg.OTELServiceName
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
				zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
			}
		}()
	}

	checks := map[string]handlers.HealthCheckFunc{}

	// Rate limiters
	var pageLimiter, contactLimiter ratelimit.Limiter
	switch cfg.RateLimitStore {
	case config.StoreRedis:
		client, err := ratelimit.NewRedisClient(cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
		}
		defer func() {
			if err := client.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_redis")

		pageLimiter, contactLimiter, err = redisLimiters(client, cfg)
		if err != nil {
			zapLogger.Fatal("failed_to_create_rate_limiters", zap.Error(err))
		}
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	default:
		page := ratelimit.NewMemoryLimiter(cfg.PagePolicy(), nil)
		contact := ratelimit.NewMemoryLimiter(cfg.ContactPolicy(), nil)
		pageLimiter, contactLimiter = page, contact
		for _, l := range []*ratelimit.MemoryLimiter{page, contact} {
			sweeper := ratelimit.NewSweeper(l, cfg.SweepInterval, zapLogger)
			go func() {
				if err := sweeper.Start(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
					zapLogger.Error("rate_limit_sweeper_stopped_with_error", zap.Error(err))
				}
			}()
		}
	}

	// Optional operator configuration in Postgres
	var corsStore database.CorsConfigStore
	if cfg.DatabaseURL != "" {
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
			}
		}()
		if err := db.EnsureSchema(bgCtx); err != nil {
			zapLogger.Fatal("failed_to_ensure_database_schema", zap.Error(err))
		}
		zapLogger.Info("connected_to_database")
		checks["database"] = db.HealthCheck

		corsStore = database.NewCorsConfigRepository(db)
		policyReloader := middleware.NewPolicyReloader(
			database.NewRatelimitConfigRepository(db),
			zapLogger,
			cfg.ReloadInterval,
			middleware.PolicyTarget{Key: models.RatelimitKeyPage, Limiter: pageLimiter, Default: cfg.PagePolicy()},
			middleware.PolicyTarget{Key: models.RatelimitKeyContact, Limiter: contactLimiter, Default: cfg.ContactPolicy()},
		)
		// The first load happens before serving so stored policies apply from the start.
		policyReloader.Load(bgCtx)
		go policyReloader.Start(bgCtx)
	}

	corsReloader := middleware.NewCORSReloader(corsStore, cfg.FrontendURL, zapLogger, cfg.ReloadInterval)
	corsReloader.Load(bgCtx)
	go corsReloader.Start(bgCtx)

	relay := connectRelay(bgCtx, cfg, zapLogger)
	defer func() {
		if err := relay.Close(); err != nil {
			zapLogger.Warn("failed_to_close_relay", zap.Error(err))
		}
	}()
	checks["relay"] = relay.HealthCheck

	openAPIHandler, err := handlers.NewOpenAPIHandler(handlers.DefaultOpenAPIPath)
	if err != nil {
		zapLogger.Warn("openapi_document_unavailable", zap.Error(err))
	}

	var site http.Handler
	if siteHandler, err := handlers.NewSiteHandler(cfg.StaticDir); err != nil {
		zapLogger.Warn("static_site_unavailable", zap.String("static_dir", cfg.StaticDir), zap.Error(err))
	} else {
		site = siteHandler
	}

	handler := newHandler(routeDeps{
		Log: zapLogger,
		Headers: middleware.SecurityHeaderOptions{
			EnableHSTS:            cfg.EnableHSTS,
			ContentSecurityPolicy: cfg.ContentSecurityPolicy,
		},
		Gate:           gatekeeper.New(pageLimiter, zapLogger),
		CORS:           corsReloader,
		Contact:        handlers.NewContactHandler(contactLimiter, relay, cfg.ContactMessageTTL, zapLogger),
		OpenAPI:        openAPIHandler,
		Health:         handlers.NewHealthChecker(checks),
		Site:           site,
		RequestTimeout: middleware.DefaultRequestTimeout,
		TracingService: tracingService,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        handler,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   middleware.DefaultRequestTimeout + 5*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting",
			zap.String("port", cfg.ServerPort),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
		return
	}

	zapLogger.Info("server_exited")
}

// initTracing installs the OTLP tracer when enabled. Failures only disable tracing.
func initTracing(cfg *config.Config, zapLogger *zap.Logger) *sdktrace.TracerProvider {
	if !cfg.OTELEnabled {
		return nil
	}
	if cfg.OTELEndpoint == "" {
		zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		return nil
	}
	tp, err := telemetry.InitTracer(context.Background(), telemetry.Options{
		ServiceName:    cfg.OTELServiceName,
		ServiceVersion: handlers.Version,
		Endpoint:       cfg.OTELEndpoint,
	})
	if err != nil {
		zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		return nil
	}
	zapLogger.Info("otel_tracer_initialized",
		zap.String("endpoint", cfg.OTELEndpoint),
		zap.String("service_name", cfg.OTELServiceName),
	)
	return tp
}

// redisLimiters builds the page and contact limiters on one shared Redis client.
func redisLimiters(client *redis.Client, cfg *config.Config) (page, contact ratelimit.Limiter, err error) {
	p, err := ratelimit.NewRedisStoreLimiter(client, "gate:page", cfg.PagePolicy())
	if err != nil {
		return nil, nil, err
	}
	c, err := ratelimit.NewRedisStoreLimiter(client, "gate:contact", cfg.ContactPolicy())
	if err != nil {
		return nil, nil, err
	}
	return p, c, nil
}

// connectRelay returns the RabbitMQ relay when configured, else the log relay.
func connectRelay(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) queue.Relay {
	if cfg.RabbitMQURL == "" {
		zapLogger.Info("using_log_relay_for_contact_messages")
		return queue.NewLogRelay(zapLogger)
	}

	relay, err := queue.ConnectWithRetry(ctx, queue.DefaultBackoff, zapLogger, func() (*queue.RabbitMQRelay, error) {
		return queue.NewRabbitMQRelay(cfg.RabbitMQURL)
	})
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
			zap.Int("max_retries", queue.DefaultBackoff.MaxRetries),
			zap.Error(err),
		)
	}
	zapLogger.Info("connected_to_rabbitmq")
	return relay
}
