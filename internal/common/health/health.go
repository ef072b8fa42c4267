package health

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// ============================================================
// Health Check Handlers
// ============================================================

// Check описывает зависимость, без которой сервис не готов принимать запросы.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

type Probes struct {
	checks  []Check
	timeout time.Duration
	log     *zap.Logger
}

func New(log *zap.Logger, checks ...Check) *Probes {
	return &Probes{checks: checks, timeout: 2 * time.Second, log: log}
}

// Register вешает /health/live, /health/ready и /health/startup.
func (p *Probes) Register(r fiber.Router) {
	r.Get("/health/live", p.Liveness)
	r.Get("/health/ready", p.Readiness)
	r.Get("/health/startup", p.Startup)
}

// Liveness проверяет, что приложение работает
func (p *Probes) Liveness(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "alive"})
}

// Readiness опрашивает все зависимости; первая упавшая даёт 503.
func (p *Probes) Readiness(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), p.timeout)
	defer cancel()

	for _, check := range p.checks {
		if err := check.Probe(ctx); err != nil {
			p.log.Warn("readiness check failed", zap.String("check", check.Name), zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not ready",
				"check":  check.Name,
			})
		}
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

// Startup проверяет, что приложение успешно запустилось
func (p *Probes) Startup(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "started"})
}
