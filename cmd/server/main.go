package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"spark.backend/internal/config"
	"spark.backend/internal/infrastructure/cache"
	"spark.backend/internal/infrastructure/jobs"
	"spark.backend/internal/infrastructure/metrics"
	"spark.backend/internal/infrastructure/models"
	"spark.backend/internal/infrastructure/payments"
	"spark.backend/internal/infrastructure/repositories"
	"spark.backend/internal/interfaces/http/handlers"
	"spark.backend/internal/interfaces/http/middleware"
	"spark.backend/internal/usecases"
	"spark.backend/pkg/crypto"
	"spark.backend/pkg/jwt"
	"spark.backend/pkg/logger"
	"spark.backend/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = func(cfg config.DatabaseConfig) (*gorm.DB, error) {
		if cfg.Driver == "sqlite" {
			return gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{})
		}
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  cfg.URL(),
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	}
	runServer = func(r *gin.Engine, port string) error { return r.Run(":" + port) }
	getStdDB  = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	// Load .env file
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	defer logger.Sync()
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))

	if err := initRedis(cfg.Redis.URL, cfg.Redis.Password); err != nil {
		logger.Error(context.Background(), "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer redis.Close()
	logger.Info(context.Background(), "Redis initialized")

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Server.BcryptCost > 0 {
		crypto.SetCost(cfg.Server.BcryptCost)
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()
	if cfg.Database.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}

	if err := sqlDB.Ping(); err != nil {
		logger.Warn(context.Background(), "Database not available, endpoints will return errors", zap.Error(err))
	} else {
		logger.Info(context.Background(), "Connected to database", zap.String("driver", cfg.Database.Driver))
	}

	// Postgres schema is owned by cmd/migrate
	if cfg.Database.Driver == "sqlite" {
		if err := models.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector, err := metrics.NewPrometheusCollector(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	jwtService := jwt.NewJWTService(
		cfg.JWT.Secret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	walletRepo := repositories.NewWalletRepository(db)
	txRepo := repositories.NewWalletTransactionRepository(db)
	giftRepo := repositories.NewGiftRepository(db)
	uow := repositories.NewUnitOfWork(db)

	balanceCache := cache.NewRedisBalanceCache(cfg.Redis.BalanceCacheTTL, collector)
	gateway := payments.NewStripeGateway(cfg.Recharge.StripeSecretKey, cfg.Recharge.StripeWebhookSecret)

	// Initialize usecases
	ledgerUsecase := usecases.NewLedgerUsecase(uow, walletRepo, txRepo, userRepo, balanceCache, collector, usecases.ConversionRates{
		VexToGem: cfg.Ledger.VexToGemRate,
		GemToVex: cfg.Ledger.GemToVexRate,
	})
	giftUsecase := usecases.NewGiftUsecase(ledgerUsecase, giftRepo, cfg.Ledger.GiftVexShare)
	rechargeUsecase := usecases.NewRechargeUsecase(ledgerUsecase, gateway, usecases.RechargeSettings{
		UnitPriceCents:  cfg.Recharge.UnitPriceCents,
		FiatCurrency:    cfg.Recharge.FiatCurrency,
		MaxGemsPerOrder: cfg.Recharge.MaxGemsPerOrder,
	})
	withdrawalUsecase := usecases.NewWithdrawalUsecase(ledgerUsecase, cfg.Ledger.MinWithdrawal)
	authUsecase := usecases.NewAuthUsecase(uow, userRepo, walletRepo, txRepo, balanceCache, jwtService)

	// Initialize handlers
	deps := routeDeps{
		authHandler:           handlers.NewAuthHandler(authUsecase),
		walletHandler:         handlers.NewWalletHandler(ledgerUsecase, rechargeUsecase, withdrawalUsecase),
		giftHandler:           handlers.NewGiftHandler(giftUsecase),
		adminHandler:          handlers.NewAdminHandler(ledgerUsecase, withdrawalUsecase),
		webhookHandler:        handlers.NewWebhookHandler(rechargeUsecase),
		authMiddleware:        middleware.AuthMiddleware(jwtService),
		adminMiddleware:       middleware.RequireAdmin(),
		idempotencyMiddleware: middleware.IdempotencyMiddleware(),
	}
	if cfg.RateLimit.Enabled {
		deps.rateLimitMiddleware = middleware.RateLimitMiddleware(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	// Start background jobs
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expiryJob := jobs.NewPendingTransactionExpiryJob(txRepo, collector, cfg.Ledger.PendingTTL, cfg.Ledger.PendingSweepInterval)
	go expiryJob.Start(ctx)

	// Initialize router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.MetricsMiddleware(collector))

	applyCORSMiddleware(r, cfg.Server.AllowedOrigins)
	registerHealthRoute(r)
	registerMetricsRoute(r, registry)
	registerAPIV1Routes(r, deps)

	logger.Info(context.Background(), "Routes registered", zap.Int("count", len(r.Routes())))

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("🛑 Shutting down server...")
		expiryJob.Stop()
		cancel()
	}()

	log.Printf("🚀 Spark Backend starting on port %s", cfg.Server.Port)
	log.Printf("📚 API: http://localhost:%s/api/v1", cfg.Server.Port)
	log.Printf("❤️ Health: http://localhost:%s/health", cfg.Server.Port)

	if err := runServer(r, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
