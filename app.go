package main

import (
	"fmt"
	"log/slog"
	"time"

	"easyshop/internal/config"
	"easyshop/internal/handlers"
	"easyshop/internal/middleware"
	"easyshop/internal/repositories"
	"easyshop/internal/services"
	"easyshop/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// App bundles the HTTP server with the resources it owns.
type App struct {
	Fiber       *fiber.App
	Store       *repositories.CatalogStore
	AuthService *services.AuthService
	mqClient    *rabbitmq.Client
	logger      *slog.Logger
}

// NewApp opens the catalog store, connects to RabbitMQ when configured and
// wires services, handlers and routes.
func NewApp(cfg *config.Config, l *slog.Logger) (*App, error) {
	store, err := repositories.OpenCatalogStore(repositories.StoreConfig{
		Driver:     cfg.DatabaseDriver,
		DSN:        cfg.DatabaseDSN,
		BcryptCost: cfg.BcryptCost,
		Logger:     l,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog store: %w", err)
	}

	a := &App{Store: store, logger: l}

	// Catalog events are optional; the app runs without a broker.
	var events services.EventPublisher
	if cfg.RabbitMQURL != "" {
		a.mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Logger: l})
		if err != nil {
			l.Warn("catalog events disabled", slog.Any("error", err))
		} else {
			events = a.mqClient
		}
	}

	a.AuthService = services.NewAuthService(store, cfg.JWTSecret, cfg.SessionTTL, l)
	productService := services.NewProductService(store, events, l)

	authHandler := handlers.NewAuthHandler(a.AuthService)
	productHandler := handlers.NewProductHandler(productService)

	app := fiber.New(fiber.Config{AppName: "easyshop"})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(middleware.RequestLogger(l))

	app.Get("/health", a.handleHealth)

	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.SessionRequired(a.AuthService))
	authHandler.RegisterSessionRoutes(protected)
	productHandler.RegisterRoutes(protected)

	a.Fiber = app
	return a, nil
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	status, code := "healthy", fiber.StatusOK
	database := "ok"
	if err := a.Store.Ping(); err != nil {
		status, code, database = "unhealthy", fiber.StatusServiceUnavailable, "unavailable"
	}
	events := "disabled"
	if a.mqClient != nil {
		events = "enabled"
	}
	return c.Status(code).JSON(fiber.Map{
		"status":   status,
		"database": database,
		"events":   events,
		"time":     time.Now().Format(time.RFC3339),
	})
}

// StartEventLog consumes catalog events and logs them. It is a no-op without a broker.
func (a *App) StartEventLog() error {
	if a.mqClient == nil {
		return nil
	}
	return a.mqClient.ConsumeCatalogEvents(func(event rabbitmq.CatalogEvent) error {
		a.logger.Info("catalog event received",
			slog.String("id", event.ID),
			slog.String("type", event.Type),
			slog.Int64("product_id", event.ProductID))
		return nil
	})
}

// Close releases the broker connection and the catalog store.
func (a *App) Close() error {
	if a.mqClient != nil {
		if err := a.mqClient.Close(); err != nil {
			a.logger.Warn("error closing RabbitMQ client", slog.Any("error", err))
		}
	}
	return a.Store.Close()
}
