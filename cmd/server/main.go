package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbanking "github.com/hanainplan/backend/internal/application/banking"
	"github.com/hanainplan/backend/internal/infrastructure/bankgateway"
	"github.com/hanainplan/backend/internal/infrastructure/cache"
	"github.com/hanainplan/backend/internal/infrastructure/config"
	"github.com/hanainplan/backend/internal/infrastructure/logger"
	"github.com/hanainplan/backend/internal/infrastructure/persistence"
	"github.com/hanainplan/backend/internal/infrastructure/scheduler"
	"github.com/hanainplan/backend/internal/infrastructure/telemetry"
	"github.com/hanainplan/backend/internal/interfaces/http/handler"
	"github.com/hanainplan/backend/internal/interfaces/http/middleware"
	"github.com/hanainplan/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

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

	log.Info("Starting HANAinPLAN Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Initialize database connection with zap-backed GORM logging
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
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

	if cfg.Telemetry.Enabled {
		if err := db.EnableTracing(cfg.Database.DBName); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}
	}

	// Initialize repositories
	accountRepo := persistence.NewAccountRepository(db)
	ledgerRepo := persistence.NewLedgerRepository(db)
	autoTransferRepo := persistence.NewAutoTransferRepository(db)
	txManager := persistence.NewGormTransactionManager(db)

	// Partner bank gateways, validated against the routing table
	registry, err := bankgateway.BuildRegistry(cfg.Gateway)
	if err != nil {
		log.Fatal("Failed to build gateway registry", zap.Error(err))
	}
	log.Info("Partner bank gateways registered",
		zap.String("hana", cfg.Gateway.HanaBaseURL),
		zap.String("kookmin", cfg.Gateway.KookminBaseURL),
		zap.String("shinhan", cfg.Gateway.ShinhanBaseURL),
	)

	// Verification cache: Redis when reachable, in-process fallback so
	// verification still works without it
	var verificationCache appbanking.VerificationCache
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, using in-memory verification cache", zap.Error(err))
		verificationCache = cache.NewInMemoryVerificationCache(cfg.Cache.VerificationTTL)
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing redis client", zap.Error(err))
			}
		}()
		verificationCache = cache.NewRedisVerificationCache(redisClient, cfg.Cache.VerificationTTL)
		log.Info("Redis verification cache connected", zap.String("addr", cfg.Redis.Addr()))
	}

	// Initialize application services
	limitService := appbanking.NewContributionLimitService(ledgerRepo)
	verificationService := appbanking.NewAccountVerificationService(accountRepo, registry, verificationCache)
	transferService := appbanking.NewTransferService(
		accountRepo,
		ledgerRepo,
		txManager,
		registry,
		limitService,
		verificationService,
		cfg.Gateway.RequestTimeout,
	)
	syncService := appbanking.NewLedgerSyncService(ledgerRepo, registry)
	autoTransferService := appbanking.NewAutoTransferService(autoTransferRepo, transferService)

	// Standing-order scheduler (if enabled)
	if cfg.Scheduler.Enabled {
		autoTransferScheduler := scheduler.NewAutoTransferScheduler(cfg.Scheduler, autoTransferService, log)
		if err := autoTransferScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start auto-transfer scheduler", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := autoTransferScheduler.Stop(ctx); err != nil {
				log.Error("Error stopping auto-transfer scheduler", zap.Error(err))
			}
		}()
		log.Info("Auto-transfer scheduler started",
			zap.Int("run_hour", cfg.Scheduler.RunHour),
			zap.Duration("check_interval", cfg.Scheduler.CheckInterval),
		)
	}

	// Initialize HTTP handlers
	bankingHandler := handler.NewBankingHandler(
		transferService,
		verificationService,
		limitService,
		syncService,
		autoTransferService,
	)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack: request ID first so every later stage can log it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName))
		engine.Use(middleware.SpanEnricher())
	}
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS())

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// Setup API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(bankingHandler).
		Register(systemHandler)
	r.Setup()

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
func healthHandler(db *persistence.Database) gin.HandlerFunc {
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
