package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estate-portal/internal/common/config"
	"estate-portal/internal/common/health"
	"estate-portal/internal/common/logger"
	"estate-portal/internal/common/middleware"
	"estate-portal/internal/gateway"
	"estate-portal/internal/gateway/proxy"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"go.uber.org/zap"
)

// ============================================================
// API Gateway
// ============================================================

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.ForService(cfg, "gateway")
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "API Gateway",
		ErrorHandler: middleware.ErrorHandler,
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.CORS())
	app.Use(middleware.Logger(log))

	// ============================================================
	// Health Check Routes
	// ============================================================

	p := proxy.New("/api/v1", time.Duration(cfg.WriteTimeout)*time.Second, log)
	health.New(log,
		health.Check{Name: "catalog", Probe: p.Live(cfg.Services.CatalogURL)},
		health.Check{Name: "auth", Probe: p.Live(cfg.Services.AuthURL)},
	).Register(app)

	// ============================================================
	// API Routes
	// ============================================================

	gateway.Register(app, p, cfg.Services)

	// ============================================================
	// Server Start
	// ============================================================

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Info("starting api gateway",
		zap.String("addr", addr),
		zap.String("catalog", cfg.Services.CatalogURL),
		zap.String("auth", cfg.Services.AuthURL),
	)

	if err := app.Listen(addr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
