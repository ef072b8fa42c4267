package gateway

import (
	"estate-portal/internal/common/config"
	"estate-portal/internal/gateway/handlers"
	"estate-portal/internal/gateway/proxy"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Service Routes
// ============================================================

var (
	catalogPrefixes = []string{"/complexes", "/buildings", "/panoramas", "/promotions", "/payment-info"}
	authPrefixes    = []string{"/login", "/logout", "/me", "/users"}
)

// Register вешает /docs и /api/v1 с проксированием в catalog и auth.
func Register(app *fiber.App, p *proxy.Proxy, services config.ServicesConfig) {
	app.Get("/docs", handlers.SwaggerUI)
	app.Get("/docs/openapi.yaml", handlers.SwaggerSpec)

	api := app.Group("/api/v1")
	api.Get("/", handlers.Index)

	for _, prefix := range catalogPrefixes {
		p.Mount(api, prefix, services.CatalogURL)
	}
	for _, prefix := range authPrefixes {
		p.Mount(api, prefix, services.AuthURL)
	}
}
