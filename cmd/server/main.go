package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	appinv "github.com/erp/manufacturing/internal/application/inventory"
	appmfg "github.com/erp/manufacturing/internal/application/manufacturing"
	"github.com/erp/manufacturing/internal/domain/inventory"
	"github.com/erp/manufacturing/internal/infrastructure/cache"
	"github.com/erp/manufacturing/internal/infrastructure/config"
	"github.com/erp/manufacturing/internal/infrastructure/event"
	"github.com/erp/manufacturing/internal/infrastructure/logger"
	"github.com/erp/manufacturing/internal/infrastructure/persistence"
	"github.com/erp/manufacturing/internal/infrastructure/telemetry"
	"github.com/erp/manufacturing/internal/interfaces/http/handler"
	"github.com/erp/manufacturing/internal/interfaces/http/middleware"
	"github.com/erp/manufacturing/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const activityStreamMaxLen = 100000

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config.toml (default: $ERP_CONFIG or ./config.toml)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.Profiling.Enabled,
		ServerAddress:   cfg.Telemetry.Profiling.ServerAddress,
		ApplicationName: serviceName,
		ProfileTypes:    cfg.Telemetry.Profiling.ProfileTypes,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && cfg.Telemetry.Profiling.SpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}

	log.Info("Starting manufacturing server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabase(cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.DefaultDBTracingConfig()
		dbTracing.Enabled = true
		dbTracing.LogFullSQL = cfg.App.Env == "development"
		if err := telemetry.RegisterDBTracing(db.DB, dbTracing, log); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err), zap.String("addr", cfg.Redis.Addr()))
		}
		defer func() { _ = redisClient.Close() }()
	}
	references := cache.NewReferenceGenerator(cfg.Manufacturing.ReferenceBackend, redisClient, log)

	meter := meterProvider.Meter(serviceName)

	// Domain events feed the activity trail and the movement metrics
	bus := event.NewInMemoryEventBus(log)
	sinks := event.FanoutSink{event.NewZapActivitySink(log)}
	if redisClient != nil {
		sinks = append(sinks, event.NewRedisStreamSink(redisClient, cfg.Redis.Stream, activityStreamMaxLen))
	}
	activity := event.NewAsyncActivitySink(sinks, cfg.Manufacturing.ActivityBuffer, log)
	bus.Subscribe(event.NewActivityHandler(activity))
	eventMetrics, err := telemetry.NewEventMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create event metrics", zap.Error(err))
	}
	bus.Subscribe(eventMetrics)
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	settings := appmfg.Settings{
		OverproductionTolerance: decimal.NewFromFloat(cfg.Manufacturing.OverproductionTolerance),
		Retry: appinv.RetryPolicy{
			MaxAttempts: cfg.Manufacturing.MaxRetries,
			Backoff:     cfg.Manufacturing.RetryBackoff,
		},
		BatchSelection: cfg.Manufacturing.BatchSelection,
	}
	deps := appmfg.Dependencies{
		Scope:      persistence.NewGormManufacturingScope(db.DB),
		References: references,
		Publisher:  bus,
		Settings:   settings,
		Logger:     log,
	}

	ledger := appinv.NewStockLedgerService(
		persistence.NewGormTransactionScope(db.DB),
		inventory.SelectorByName(settings.BatchSelection),
		settings.Retry,
		log,
	)
	ledger.SetEventPublisher(bus)

	engineOpts := router.Options{
		ServiceName:    serviceName,
		Logger:         log,
		CORS:           middleware.DefaultCORSConfig(),
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Meter:          meter,
		Profiling:      profiler.IsEnabled(),
		Health: map[string]router.HealthCheck{
			"database": db.Ping,
		},
	}
	engineOpts.CORS.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if cfg.HTTP.RateLimitEnabled {
		engineOpts.RateLimit = &middleware.RateLimitConfig{
			Requests: cfg.HTTP.RateLimitRequests,
			Window:   cfg.HTTP.RateLimitWindow,
			Redis:    redisClient,
		}
	}
	if redisClient != nil {
		engineOpts.Health["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	engine, err := router.NewEngine(engineOpts)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}
	router.NewRouter(engine).Register(
		handler.NewStockHandler(ledger),
		handler.NewBOMHandler(appmfg.NewBOMService(deps)),
		handler.NewProductionOrderHandler(appmfg.NewProductionOrderService(deps)),
		handler.NewRequisitionHandler(appmfg.NewRequisitionService(deps)),
		handler.NewScheduleHandler(appmfg.NewScheduleService(deps)),
	).Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error("Server failed", zap.Error(err))
		}
	}
	log.Info("Shutting down server...")

	timeout := cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Warn("Event bus stop failed", zap.Error(err))
	}
	if err := activity.Close(shutdownCtx); err != nil {
		log.Warn("Activity sink did not drain", zap.Error(err), zap.Int64("dropped", activity.Dropped()))
	}
	for name, shutdown := range map[string]func(context.Context) error{
		"tracer": tracerProvider.Shutdown,
		"meter":  meterProvider.Shutdown,
		"logs":   loggerProvider.Shutdown,
	} {
		if err := shutdown(shutdownCtx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.String("provider", name), zap.Error(err))
		}
	}

	if err := profiler.Stop(); err != nil {
		log.Warn("Profiler stop failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
