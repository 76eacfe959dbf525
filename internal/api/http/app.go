package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/i474232898/weatherpulse/internal/weather"
)

const appName = "weatherpulse"

// NewApp builds the Fiber app with middleware, health check and API routes.
func NewApp(service *weather.Service, log *zap.Logger) *fiber.App {
	if log == nil {
		log = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          errorHandler(log),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,HEAD,OPTIONS",
	}))
	app.Use(logger.New(logger.Config{
		Format:     "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: time.RFC3339,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	RegisterRoutes(app, service, log)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "endpoint not found")
	})

	return app
}

// errorHandler renders every error as {"error": true, "message": ...}.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("HTTP error",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", code),
				zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{
			"error":   true,
			"message": err.Error(),
		})
	}
}
