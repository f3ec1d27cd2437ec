package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/dicdwatch/dicdwatch/internal/config"
	"github.com/dicdwatch/dicdwatch/internal/handlers"
	"github.com/dicdwatch/dicdwatch/internal/logging"
	"github.com/dicdwatch/dicdwatch/internal/middleware"
	"github.com/dicdwatch/dicdwatch/internal/services"
)

// AppName is reported by Fiber and in the startup log
const AppName = "DICD Watch"

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, analysisService *services.AnalysisService,
	cacheService *services.CacheService, cfg config.Config,
) *handlers.Handler {
	h := handlers.New(logger, analysisService, cacheService, cfg)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger))

	// Health check (no auth required)
	app.Get("/health", h.Health)

	authMiddleware := middleware.APIKeyAuth(logger, cfg.Auth.APIKeys, cfg.Auth.Enabled)
	v1 := app.Group("/v1", authMiddleware)

	// Per-entity report from the measurement store
	v1.Get("/entities/:entity_id/spc", h.EntitySPC)

	// Inline analysis over caller-supplied data
	v1.Post("/analysis/spc", h.AnalyzeSPC)
	v1.Post("/analysis/distribution", h.Distribution)
	v1.Post("/analysis/patterns", h.Patterns)
	v1.Get("/analysis/quantile", h.Quantile)
	v1.Get("/capability/classify", h.ClassifyCapability)

	// Cache administration
	v1.Post("/cache/invalidate", h.InvalidateCache)
	v1.Get("/cache/stats", h.CacheStats)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, analysisService *services.AnalysisService,
	cacheService *services.CacheService, cfg config.Config,
) *fiber.App {
	fiberCfg := fiber.Config{
		AppName:               AppName,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	}
	if cfg.Server.BodyLimit > 0 {
		fiberCfg.BodyLimit = cfg.Server.BodyLimit
	}

	app := fiber.New(fiberCfg)
	Setup(app, logger, analysisService, cacheService, cfg)

	return app
}
