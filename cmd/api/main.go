package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/jeovahfialho/trade-ledger/internal/api"
	"github.com/jeovahfialho/trade-ledger/internal/config"
	"github.com/jeovahfialho/trade-ledger/internal/domain"
	"github.com/jeovahfialho/trade-ledger/internal/events"
	"github.com/jeovahfialho/trade-ledger/internal/ledger"
	"github.com/jeovahfialho/trade-ledger/internal/service"
	"github.com/jeovahfialho/trade-ledger/internal/storage/cache"
	"github.com/jeovahfialho/trade-ledger/internal/storage/postgres"
	pkglogger "github.com/jeovahfialho/trade-ledger/pkg/logger"
)

// @title Trade Settlement Ledger API
// @version 1.0
// @description Append-only, owner-writable registry of settled trades.

// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
func main() {
	cfg := config.Load()

	if err := pkglogger.Init(cfg.LogLevel, cfg.LogFormat, cfg.Environment == "development"); err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer pkglogger.Close()

	owner, err := domain.ParsePartyID(cfg.OwnerID)
	if err != nil {
		pkglogger.Fatal("LEDGER_OWNER_ID must be a valid UUID", zap.Error(err))
	}

	db, err := connectPostgres(cfg)
	if err != nil {
		pkglogger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()

	cacheService := connectRedis(cfg)
	if cacheService != nil {
		defer cacheService.Close()
	}

	var publisher *events.Publisher
	if cfg.KafkaEnabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		events.EnsureTopic(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		cancel()

		publisher = events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		pkglogger.Info("kafka publisher enabled", zap.String("topic", cfg.KafkaTopic))
	}

	// Ledger bootstrap: replay the journal, then start the event pump.
	led := ledger.New(owner)
	journal := postgres.NewJournal(db.Pool())
	ledgerService := service.NewLedgerService(led, journal, cacheService, publisher, cfg.EventChannel)

	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := ledgerService.Bootstrap(ctx); err != nil {
			pkglogger.Fatal("failed to bootstrap ledger", zap.Error(err))
		}
	}
	ledgerService.Start()
	defer ledgerService.Stop()

	pkglogger.Info("ledger ready",
		zap.String("owner", owner.String()),
		zap.Int("trades", ledgerService.Count()))

	handler := api.NewHandler(db, cacheService, ledgerService, journal)

	app := fiber.New(fiber.Config{
		Prefork:                 false,
		ServerHeader:            "Trade-Ledger",
		DisableStartupMessage:   false,
		AppName:                 "Trade Settlement Ledger v1.0.0",
		ReadTimeout:             cfg.APIReadTimeout,
		WriteTimeout:            cfg.APIWriteTimeout,
		IdleTimeout:             120 * time.Second,
		ReadBufferSize:          8192,
		WriteBufferSize:         8192,
		CompressedFileSuffix:    ".gz",
		ProxyHeader:             "X-Forwarded-For",
		EnableTrustedProxyCheck: true,
		BodyLimit:               1 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Caller-ID,X-Owner-Key",
	}))

	api.SetupRoutes(app, handler, cfg)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		pkglogger.Info("shutting down server")
		if err := app.Shutdown(); err != nil {
			pkglogger.Error("server shutdown error", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	pkglogger.Info("starting server", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		pkglogger.Fatal("server error", zap.Error(err))
	}
}

func connectPostgres(cfg *config.Config) (*postgres.DB, error) {
	db, err := postgres.NewDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("testing connection: %w", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	pkglogger.Info("connected to PostgreSQL")
	return db, nil
}

func connectRedis(cfg *config.Config) *cache.RedisCache {
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		pkglogger.Warn("redis unavailable, continuing without cache", zap.Error(err))
		return nil
	}

	pkglogger.Info("connected to Redis")
	return redisCache
}
