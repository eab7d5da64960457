package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/eventic-admission/internal/di"
	"github.com/prohmpiriya/eventic-admission/internal/repository"
	"github.com/prohmpiriya/eventic-admission/internal/service"
	"github.com/prohmpiriya/eventic-admission/pkg/config"
	"github.com/prohmpiriya/eventic-admission/pkg/database"
	"github.com/prohmpiriya/eventic-admission/pkg/logger"
	"github.com/prohmpiriya/eventic-admission/pkg/middleware"
	pkgredis "github.com/prohmpiriya/eventic-admission/pkg/redis"
	"github.com/prohmpiriya/eventic-admission/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: "admission-service",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Admission Service...", zap.String("store", cfg.Admission.Store))

	ctx := context.Background()

	// Initialize tracing
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn("Tracing disabled", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	// Initialize database connection
	var db *database.PostgresDB
	if cfg.Admission.Store == "postgres" {
		db, err = database.NewPostgres(ctx, di.PostgresConfig(cfg))
		if err != nil {
			appLog.Fatal("Database connection failed", zap.Error(err))
		}
		defer db.Close()
		appLog.Info("Database connected")
	}

	// Initialize Redis connection
	var redis *pkgredis.Client
	if cfg.Redis.Enabled {
		redis, err = pkgredis.NewClient(ctx, di.RedisConfig(cfg))
		if err != nil {
			if cfg.Admission.Store == "postgres" {
				appLog.Fatal("Redis connection failed", zap.Error(err))
			}
			appLog.Warn("Redis connection failed, idempotency disabled", zap.Error(err))
		} else {
			defer redis.Close()
			appLog.Info("Redis connected")
		}
	}

	// Select repositories
	var stores *di.Stores
	if cfg.Admission.Store == "postgres" {
		stores, err = di.NewPostgresStores(ctx, db, redis, cfg)
		if err != nil {
			appLog.Fatal("Failed to build stores", zap.Error(err))
		}
	} else {
		stores = di.NewMemoryStores(cfg.Outbox.Topic)
		appLog.Warn("Using in-memory store; state is lost on restart")
	}

	if cfg.Admission.SeedFile != "" {
		seed, err := repository.LoadSeed(ctx, cfg.Admission.SeedFile, stores.EventCreator, stores.TicketCreator)
		if err != nil {
			appLog.Fatal("Failed to load seed file", zap.Error(err))
		}
		appLog.Info("Seed loaded",
			zap.String("file", cfg.Admission.SeedFile),
			zap.Int("events", len(seed.Events)),
			zap.Int("tickets", len(seed.Tickets)),
		)
	}

	engine, err := di.NewEngine(&cfg.Admission)
	if err != nil {
		appLog.Fatal("Failed to build effect engine", zap.Error(err))
	}

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:               db,
		Redis:            redis,
		TicketRepo:       stores.TicketRepo,
		EventRepo:        stores.EventRepo,
		CredentialRepo:   stores.CredentialRepo,
		Engine:           engine,
		LocationBroker:   service.NewLocationBroker(cfg.Admission.LocationTimeout),
		CredentialConfig: di.CredentialConfig(&cfg.Admission),
		AdmissionConfig:  di.AdmissionConfig(&cfg.Admission),
	})

	// Setup Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	routerCfg := &di.RouterConfig{
		JWT:            &middleware.JWTConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Version:        cfg.App.Version,
		Log:            appLog,
	}
	if redis != nil {
		idem := middleware.DefaultIdempotencyConfig(redis)
		idem.TTL = cfg.Admission.IdempotentTTL
		routerCfg.Idempotency = idem
	}
	router := container.NewRouter(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		appLog.Info("Admission Service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	// Location requests can hold a request open for LocationTimeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Admission.LocationTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}
