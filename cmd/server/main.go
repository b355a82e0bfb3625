package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/rentledger/internal/application/ledger"
	"github.com/erp/rentledger/internal/domain/identity"
	"github.com/erp/rentledger/internal/infrastructure/auth"
	"github.com/erp/rentledger/internal/infrastructure/cache"
	"github.com/erp/rentledger/internal/infrastructure/config"
	"github.com/erp/rentledger/internal/infrastructure/event"
	"github.com/erp/rentledger/internal/infrastructure/logger"
	"github.com/erp/rentledger/internal/infrastructure/persistence"
	"github.com/erp/rentledger/internal/infrastructure/storage"
	"github.com/erp/rentledger/internal/infrastructure/telemetry"
	"github.com/erp/rentledger/internal/interfaces/http/handler"
	"github.com/erp/rentledger/internal/interfaces/http/middleware"
	"github.com/erp/rentledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx := context.Background()
	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}

	// Bootstrap logger used until the OTEL log bridge is up
	bootLog := logger.New(logCfg)

	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}

	var extraCores []zapcore.Core
	if cfg.Telemetry.LogsEnabled {
		extraCores = append(extraCores, telemetry.NewZapOTELCore(
			cfg.Telemetry.ServiceName, logProvider, logger.ParseLevel(cfg.Telemetry.LogsLevel)))
	}
	log := logger.New(logCfg, extraCores...)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Rent Ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Profiler must start before the tracer when span profiles are linked
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServerAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
		ProfileMemory:   true,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		SpanProfiles:      cfg.Telemetry.SpanProfiles && cfg.Telemetry.ProfilingEnabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	meter := meterProvider.Meter("rentledger")

	// Database
	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Database.SlowThreshold))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Redis is optional
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	penaltyRepo := persistence.NewGormPenaltyConfigRepository(db.DB)
	var (
		penaltyLookup      ledger.PenaltyConfigLookup = ledger.NewRepositoryPenaltyLookup(penaltyRepo)
		penaltyInvalidator ledger.PenaltyConfigInvalidator
	)
	if redisClient != nil {
		penaltyCache := cache.NewPenaltyConfigCache(redisClient, penaltyLookup, cfg.Ledger.PenaltyCacheTTL, log)
		penaltyLookup = penaltyCache
		penaltyInvalidator = penaltyCache
	}
	idempotency := cache.NewIdempotencyStore(redisClient, log)

	// Receipt storage
	var receipts ledger.ReceiptStorage
	if cfg.Storage.Enabled {
		s3Store, err := storage.NewS3ReceiptStorage(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize receipt storage", zap.Error(err))
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			log.Fatal("Receipt bucket unavailable", zap.Error(err), zap.String("bucket", s3Store.Bucket()))
		}
		receipts = s3Store
	} else {
		log.Warn("Receipt storage disabled, receipts are kept in memory")
		receipts = storage.NewMemoryReceiptStorage()
	}

	// Domain events
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditHandler(log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	ledgerMetrics, err := telemetry.NewLedgerMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}

	// Application services
	deps := ledger.Deps{
		Scope:     persistence.NewGormTransactionScope(db.DB),
		Repos:     persistence.NewRepositories(db.DB),
		Penalties: penaltyLookup,
		Events:    eventBus,
		Metrics:   ledgerMetrics,
		Logger:    log,
		Settings: ledger.Settings{
			AnomalyThreshold: cfg.Ledger.AnomalyThreshold,
			PenaltyDueDays:   cfg.Ledger.PenaltyDueDays,
			UtilityDueDays:   cfg.Ledger.UtilityDueDays,
			IdempotencyTTL:   cfg.Ledger.IdempotencyTTL,
			ReceiptURLTTL:    cfg.Ledger.ReceiptURLTTL,
		},
	}
	scheduleService := ledger.NewScheduleService(deps)
	billingService := ledger.NewBillingService(deps)
	paymentService := ledger.NewPaymentService(deps,
		ledger.WithIdempotencyStore(idempotency),
		ledger.WithReceiptStorage(receipts),
	)
	readingService := ledger.NewReadingService(deps)
	utilityService := ledger.NewUtilityBillingService(deps)
	reportService := ledger.NewReportService(deps)
	penaltyConfigService := ledger.NewPenaltyConfigService(deps, penaltyRepo, penaltyInvalidator)

	capabilities, err := cfg.CapabilityTable()
	if err != nil {
		log.Fatal("Invalid role configuration", zap.Error(err))
	}
	jwtService := auth.NewJWTService(cfg.JWT)

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}
	skipPaths := []string{"/health"}
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
			SkipPaths:   skipPaths,
		}),
		logger.GinMiddleware(log),
		httpMetrics,
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	engine.GET("/health", handler.NewHealthHandler(db).Health)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(
		middleware.Authenticate(jwtService, log),
		middleware.SpanEnricher(),
		middleware.Profiling(middleware.ProfilingConfig{
			Enabled:   cfg.Telemetry.ProfilingEnabled,
			SkipPaths: skipPaths,
		}),
	)

	guard := func(caps ...identity.Capability) gin.HandlerFunc {
		return middleware.RequireCapability(capabilities, caps...)
	}
	r.Register(router.LedgerGroups(router.LedgerHandlers{
		Leases:         handler.NewLeaseHandler(scheduleService, billingService),
		Billings:       handler.NewBillingHandler(billingService),
		Payments:       handler.NewPaymentHandler(paymentService, cfg.HTTP.MaxReceiptSize, cfg.Ledger.ReceiptURLTTL),
		Metering:       handler.NewMeteringHandler(readingService, utilityService),
		Reports:        handler.NewReportHandler(reportService),
		PenaltyConfigs: handler.NewPenaltyConfigHandler(penaltyConfigService),
	}, guard)...)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing redis", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	_ = logProvider.Shutdown(shutdownCtx)
}
