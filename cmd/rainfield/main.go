package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	httpapi "github.com/i474232898/rainfield/internal/api/http"
	"github.com/i474232898/rainfield/internal/app"
	"github.com/i474232898/rainfield/internal/archive"
	"github.com/i474232898/rainfield/internal/config"
	"github.com/i474232898/rainfield/internal/metrics"
	"github.com/i474232898/rainfield/internal/rainfield"
	"github.com/i474232898/rainfield/internal/scheduler"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Err(err).Msg("no .env file found; using environment")
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	lg := app.NewLogger(cfg.LogLevel)

	comps, err := app.Build(cfg, lg)
	if err != nil {
		lg.Fatal().Err(err).Msg("failed to build rain field pipeline")
	}

	// Scheduler that keeps the default field warm.
	sched := scheduler.New([]rainfield.FieldParams{cfg.Field}, cfg.RefreshInterval, comps.Service, lg)
	if err := sched.Start(); err != nil {
		lg.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	// Building a field at default resolution takes (N / workers) x sample latency,
	// so writes get a generous timeout.
	srv := fiber.New(fiber.Config{
		AppName:               "rainfield",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          5 * time.Minute,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	srv.Use(logger.New())
	srv.Use(recover.New())
	srv.Use(metrics.Middleware())

	srv.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "rainfield",
		})
	})
	srv.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// API routes.
	httpapi.RegisterRoutes(srv, comps.Service, archive.New(cfg.ArchiveDir), cfg.Field)

	go func() {
		lg.Info().Str("port", cfg.Port).Msg("listening")
		if err := srv.Listen(":" + cfg.Port); err != nil {
			lg.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.ShutdownWithContext(shutdownCtx); err != nil {
		lg.Error().Err(err).Msg("error during shutdown")
	}
}
