package router

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/soltixdb/insight/internal/config"
	"github.com/soltixdb/insight/internal/handlers"
	"github.com/soltixdb/insight/internal/logging"
	"github.com/soltixdb/insight/internal/metrics"
	"github.com/soltixdb/insight/internal/middleware"
	"github.com/soltixdb/insight/internal/services"
	"github.com/soltixdb/insight/internal/utils"
)

// Setup configures all routes and middlewares. submitter may be nil when
// the worker is disabled.
func Setup(app *fiber.App, logger *logging.Logger, analysis *services.AnalysisService,
	submitter handlers.JobSubmitter, m *metrics.Metrics, cfg config.Config,
) *handlers.Handler {
	h := handlers.New(logger, analysis, submitter)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddlewareWithConfig(logger, logging.DefaultMiddlewareConfig()))
	app.Use(requestDeadline(utils.DefaultRequestTimeout))

	// Health check and metrics (no auth required)
	app.Get("/health", h.Health)
	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	authMiddleware := middleware.APIKeyAuth(logger, cfg.Auth)

	// API v1 routes (protected by API key)
	v1 := app.Group("/v1", authMiddleware)

	v1.Post("/plan", h.Plan)
	v1.Post("/analyze", h.Analyze)
	v1.Post("/detect", h.Detect)
	v1.Post("/statistics", h.Statistics)
	v1.Post("/compare", h.Compare)

	// Asynchronous analysis through the worker queue
	v1.Post("/jobs", h.SubmitJob)
	v1.Post("/jobs/batch", h.SubmitJobs)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, analysis *services.AnalysisService,
	submitter handlers.JobSubmitter, m *metrics.Metrics, cfg config.Config,
) *fiber.App {
	fiberCfg := fiber.Config{
		AppName:               "Soltix Insight",
		DisableStartupMessage: !cfg.IsDevelopment(),
		EnablePrintRoutes:     cfg.IsDevelopment(),
		ErrorHandler:          middleware.ErrorHandler(logger),
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
	}
	if cfg.Server.BodyLimit > 0 {
		fiberCfg.BodyLimit = cfg.Server.BodyLimit
	}
	app := fiber.New(fiberCfg)

	Setup(app, logger, analysis, submitter, m, cfg)

	return app
}

// requestDeadline bounds the user context handed to the analysis service;
// an expired deadline surfaces as a CANCELLED error
func requestDeadline(d time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), d)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}
