package main

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"easyshop/internal/config"
	"easyshop/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logging.New(cfg.LogLevel)
	slog.SetDefault(l)

	app, err := NewApp(cfg, l)
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			l.Error("error closing app", slog.Any("error", err))
		}
	}()

	if err := app.StartEventLog(); err != nil {
		l.Warn("failed to start catalog event consumer", slog.Any("error", err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		l.Info("starting server", slog.String("port", cfg.AppPort))
		if err := app.Fiber.Listen(cfg.AppPort); err != nil {
			l.Error("server stopped", slog.Any("error", err))
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	l.Info("shutting down server")

	if err := app.Fiber.Shutdown(); err != nil {
		l.Error("error during Fiber shutdown", slog.Any("error", err))
	}
	l.Info("server gracefully stopped")
}
