package api

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeovahfialho/trade-ledger/internal/config"
)

func SetupRoutes(app *fiber.App, handler *Handler, cfg *config.Config) {
	// Global middlewares
	app.Use(RequestID())

	// Health checks (no rate limiting)
	app.Get("/health", handler.HealthCheck)
	app.Get("/ready", handler.ReadinessCheck)

	// Prometheus metrics (no rate limiting)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Swagger documentation (no rate limiting)
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 - rate limited and instrumented
	v1 := app.Group("/api/v1")
	v1.Use(RateLimiter())
	v1.Use(PrometheusMiddleware())

	// Ledger routes. /trades/count registers before /trades/:id so the
	// literal segment wins.
	v1.Post("/trades", OwnerKeyAuth(cfg.OwnerKey), handler.RecordTrade)
	v1.Get("/trades", handler.ListTradeIDs)
	v1.Get("/trades/count", handler.TradeCount)
	v1.Get("/trades/:id", handler.GetTrade)
	v1.Get("/trades/:id/verify", handler.VerifyTrade)
	v1.Get("/owner", handler.GetOwner)
	v1.Get("/status", handler.GetStatus)

	// Admin routes
	admin := v1.Group("/admin")
	admin.Use(BasicAuth(cfg.AdminUser, cfg.AdminPass))
	admin.Delete("/cache/:pattern", handler.InvalidateCache)
	admin.Get("/stats", handler.GetSystemStats)
	admin.Post("/export", handler.ExportJournal)
}
