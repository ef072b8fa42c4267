package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estate-portal/internal/catalog/handlers"
	"estate-portal/internal/catalog/media"
	"estate-portal/internal/catalog/promo"
	"estate-portal/internal/catalog/repository"
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
// Catalog Service
// ============================================================

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if os.Getenv("PORT") == "" {
		cfg.Port = "3001"
	}

	log := logger.ForService(cfg, "catalog")
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.OpenSQLite(cfg.Database.Path)
	if err != nil {
		log.Fatal("open db", zap.Error(err))
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init(ctx); err != nil {
		log.Fatal("init db", zap.Error(err))
	}

	if cfg.Database.SeedPath != "" {
		fixture, err := repository.LoadFixture(cfg.Database.SeedPath)
		if err != nil {
			log.Fatal("load seed", zap.Error(err))
		}
		if err := repo.Seed(ctx, fixture); err != nil {
			log.Fatal("seed db", zap.Error(err))
		}
		log.Info("catalog seeded", zap.String("path", cfg.Database.SeedPath), zap.Int("complexes", len(fixture.Complexes)))
	}

	signer, err := media.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("media signer", zap.Error(err))
	}

	expirer := promo.NewExpirer(promo.Config{
		Repo:     repo,
		Interval: cfg.Promo.SweepInterval,
		Log:      log.Named("promo"),
	})
	expirer.Start()
	defer expirer.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Catalog Service",
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
	// Catalog Routes
	// ============================================================

	handlers.NewCatalogHandler(repo, signer, log).Register(app)

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
	log.Info("starting catalog service", zap.String("addr", addr), zap.Bool("s3", cfg.StorageEnabled()))

	if err := app.Listen(addr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
