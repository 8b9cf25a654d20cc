package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ledgerapp "github.com/finbooks/backend/internal/application/ledger"
	"github.com/finbooks/backend/internal/application/reporting"
	taxapp "github.com/finbooks/backend/internal/application/tax"
	"github.com/finbooks/backend/internal/infrastructure/cache"
	"github.com/finbooks/backend/internal/infrastructure/config"
	"github.com/finbooks/backend/internal/infrastructure/event"
	"github.com/finbooks/backend/internal/infrastructure/logger"
	"github.com/finbooks/backend/internal/infrastructure/persistence"
	"github.com/finbooks/backend/internal/infrastructure/telemetry"
	"github.com/finbooks/backend/internal/interfaces/http/handler"
	"github.com/finbooks/backend/internal/interfaces/http/middleware"
	"github.com/finbooks/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting FinBooks Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize OpenTelemetry tracing and metrics
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Database query tracing (otelgorm) and pool metrics
	if cfg.Telemetry.Enabled {
		dbTracingConfig := telemetry.DefaultDBTracingConfig()
		dbTracingConfig.Enabled = cfg.Telemetry.DBTraceEnabled
		dbTracingConfig.LogFullSQL = cfg.Telemetry.DBLogFullSQL
		if cfg.Telemetry.DBSlowQueryThresh > 0 {
			dbTracingConfig.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
		}
		dbTracingPlugin := telemetry.NewDBTracingPlugin(dbTracingConfig, log)
		if err := dbTracingPlugin.RegisterOtelGorm(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}

		dbMetricsConfig := telemetry.DefaultDBMetricsConfig()
		if cfg.Telemetry.DBSlowQueryThresh > 0 {
			dbMetricsConfig.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
		}
		if _, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, dbMetricsConfig, log); err != nil {
			log.Fatal("Failed to register database metrics", zap.Error(err))
		}
	}

	// Initialize repositories
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	entryRepo := persistence.NewGormJournalEntryRepository(db.DB)
	ledgerRepo := persistence.NewGormGeneralLedgerRepository(db.DB)
	periodRepo := persistence.NewGormAccountingPeriodRepository(db.DB)
	taxConfigRepo := persistence.NewGormTaxConfigurationRepository(db.DB)
	taxPeriodRepo := persistence.NewGormTaxPeriodRepository(db.DB)
	taxLiabilityRepo := persistence.NewGormTaxLiabilityRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Initialize event serializer and register all event types
	// Versioned serializer so old outbox payloads upgrade transparently when
	// an event schema evolves
	eventSerializer := event.NewVersionedSerializer(log)
	event.RegisterAllEvents(eventSerializer)

	// Create outbox publisher for transactional event saving.
	// Posting events are written to the outbox table in the same transaction
	// as the entry state change, so delivery survives a crash between commit
	// and in-process publish.
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)
	entryRepo.SetOutboxEventSaver(outboxPublisher)

	// Posting scope: one database transaction per posting, with the outbox
	// saver handed to the entry repository of every transaction
	postingScope := persistence.NewGormPostingScope(db.DB)
	postingScope.SetOutboxEventSaver(outboxPublisher)

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Initialize and start outbox processor for guaranteed event delivery
	outboxProcessorConfig := event.DefaultOutboxProcessorConfig()
	outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, outboxProcessorConfig, log)
	if err := outboxProcessor.Start(context.Background()); err != nil {
		log.Fatal("Failed to start outbox processor", zap.Error(err))
	}
	defer func() {
		if err := outboxProcessor.Stop(context.Background()); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}()
	log.Info("Outbox processor started",
		zap.Int("batch_size", outboxProcessorConfig.BatchSize),
		zap.Duration("poll_interval", outboxProcessorConfig.PollInterval),
	)

	// Balance cache: Redis with optional in-memory fallback
	cacheFactory := cache.NewBalanceCacheFactory(
		cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.Cache.AllowInMemoryFallback),
	)
	balanceCache, err := cacheFactory.CreateCache()
	if err != nil {
		log.Fatal("Failed to create balance cache", zap.Error(err))
	}

	// Idempotency store dedups the direct-publish/outbox double delivery
	// for side-effecting event subscribers
	idempotencyStore, err := cacheFactory.CreateIdempotencyStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Initialize application services
	accountService := ledgerapp.NewAccountService(accountRepo, entryRepo, ledgerRepo, periodRepo, balanceCache)
	journalService := ledgerapp.NewJournalService(postingScope, eventBus, balanceCache, log)
	periodService := ledgerapp.NewPeriodService(postingScope, eventBus, balanceCache, log)

	vatCodes := taxapp.DefaultVATAccountCodes()
	if cfg.Accounting.VATOutputAccountCode != "" {
		vatCodes.Output = cfg.Accounting.VATOutputAccountCode
	}
	if cfg.Accounting.VATInputAccountCode != "" {
		vatCodes.Input = cfg.Accounting.VATInputAccountCode
	}
	accrualService := taxapp.NewAccrualService(
		taxConfigRepo, taxPeriodRepo, taxLiabilityRepo, accountRepo,
		journalService, eventBus, vatCodes, log,
	)
	returnService := taxapp.NewReturnService(taxConfigRepo, taxPeriodRepo, taxLiabilityRepo, eventBus, log)
	statementService := reporting.NewStatementService(accountRepo, entryRepo, taxConfigRepo, log)

	// Tax accrual is driven off posted journal entries: sale and purchase
	// postings reach the accrual service through the event bus, deduped so the
	// direct publish and the outbox redelivery accrue once
	entryPostedHandler := taxapp.NewEntryPostedHandler(accrualService, log)
	eventBus.Subscribe(event.NewIdempotentHandler(entryPostedHandler, idempotencyStore, log))

	// Accounting metrics: counters fed from domain events plus periodic tax
	// health gauges collected per tenant
	if cfg.Telemetry.Enabled {
		accountingMetrics, err := telemetry.NewAccountingMetrics(telemetry.AccountingMetricsConfig{
			Meter:       meterProvider.Meter("finbooks/accounting"),
			Logger:      log,
			TaxProvider: telemetry.NewGormTaxMetricsProvider(db.DB),
		})
		if err != nil {
			log.Fatal("Failed to create accounting metrics", zap.Error(err))
		}

		metricsHandler := telemetry.NewMetricsEventHandler(accountingMetrics, log)
		eventBus.Subscribe(event.NewIdempotentHandler(metricsHandler, idempotencyStore, log))

		tenantProvider := telemetry.NewGormTenantProvider(db.DB)
		accountingMetrics.StartPeriodicCollection(context.Background(), tenantProvider, 5*time.Minute)
		defer accountingMetrics.Stop()
	}

	// Initialize HTTP handlers
	systemHandler := handler.NewSystemHandler()
	accountHandler := handler.NewAccountHandler(accountService)
	journalHandler := handler.NewJournalHandler(journalService)
	periodHandler := handler.NewPeriodHandler(periodService)
	taxHandler := handler.NewTaxHandler(accrualService, returnService)
	reportHandler := handler.NewReportHandler(statementService, returnService)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing - Record request spans (if telemetry enabled)
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing())
		engine.Use(middleware.SpanErrorMarker())
		engine.Use(middleware.HTTPMetricsWithMeter(meterProvider.Meter("finbooks/http"), true))
	}
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes. Tenant resolution happens in the router's tenant
	// middleware; authentication is handled upstream at the gateway.
	router.New(engine, router.Handlers{
		System:  systemHandler,
		Account: accountHandler,
		Journal: journalHandler,
		Period:  periodHandler,
		Tax:     taxHandler,
		Report:  reportHandler,
	}).Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
