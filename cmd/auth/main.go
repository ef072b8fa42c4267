package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estate-portal/internal/auth/handlers"
	"estate-portal/internal/auth/repository"
	"estate-portal/internal/auth/service"
	"estate-portal/internal/common/config"
	"estate-portal/internal/common/database"
	"estate-portal/internal/common/health"
	"estate-portal/internal/common/logger"
	"estate-portal/internal/common/middleware"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"go.uber.org/zap"
)

// ============================================================
// Auth Service
// ============================================================

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if os.Getenv("PORT") == "" {
		cfg.Port = "3002"
	}
	if os.Getenv("DB_PATH") == "" {
		cfg.Database.Path = "data/db/auth.db"
	}

	log := logger.ForService(cfg, "auth")
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.OpenSQLite(cfg.Database.Path)
	if err != nil {
		log.Fatal("open db", zap.Error(err))
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init(ctx, cfg.Auth.AdminLogin, cfg.Auth.AdminPassword); err != nil {
		log.Fatal("init db", zap.Error(err))
	}

	sessions, err := service.NewSessionStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("session store", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Auth Service",
		ErrorHandler: middleware.ErrorHandler,
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger(log))

	// ============================================================
	// Health Check Routes
	// ============================================================

	health.New(log, health.Check{Name: "sqlite", Probe: repo.Ping}).Register(app)

	// ============================================================
	// Auth Routes
	// ============================================================

	handlers.NewAuthHandler(repo, sessions, log).Register(app)

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
	log.Info("starting auth service", zap.String("addr", addr), zap.String("sessions", cfg.Session.Backend))

	if err := app.Listen(addr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
