package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// ============================================================
// Proxy Handler
// ============================================================

// forwardedHeaders копируются из входящего запроса в upstream.
var forwardedHeaders = []string{"Content-Type", "Authorization", "Accept", "Accept-Language", "X-Request-ID"}

// hopHeaders не переносятся из ответа upstream.
var hopHeaders = map[string]bool{
	"Connection":        true,
	"Content-Length":    true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
}

type Proxy struct {
	client *http.Client
	strip  string
	log    *zap.Logger
}

// New создает прокси; strip отрезается от пути перед отправкой upstream ("/api/v1").
func New(strip string, timeout time.Duration, log *zap.Logger) *Proxy {
	return &Proxy{
		client: &http.Client{Timeout: timeout},
		strip:  strings.TrimRight(strip, "/"),
		log:    log.Named("proxy"),
	}
}

// Mount направляет prefix и всё под ним на сервис baseURL.
func (p *Proxy) Mount(r fiber.Router, prefix, baseURL string) {
	h := p.To(baseURL)
	r.All(prefix, h)
	r.All(prefix+"/*", h)
}

// To проксирует запрос с тем же методом, путём (без strip), query и телом.
func (p *Proxy) To(baseURL string) fiber.Handler {
	base := strings.TrimRight(baseURL, "/")
	return func(c fiber.Ctx) error {
		return p.forward(c, base+p.upstreamURI(c))
	}
}

func (p *Proxy) upstreamURI(c fiber.Ctx) string {
	uri := strings.TrimPrefix(c.OriginalURL(), p.strip)
	if uri == "" || uri[0] == '?' {
		uri = "/" + uri
	}
	return uri
}

func (p *Proxy) forward(c fiber.Ctx, targetURL string) error {
	var body io.Reader
	if len(c.Body()) > 0 {
		body = bytes.NewReader(c.Body())
	}

	req, err := http.NewRequestWithContext(c.Context(), c.Method(), targetURL, body)
	if err != nil {
		p.log.Error("build request", zap.String("target", targetURL), zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "proxy failed"})
	}
	for _, name := range forwardedHeaders {
		if v := c.Get(name); v != "" {
			req.Header.Set(name, v)
		}
	}
	req.Header.Set("X-Forwarded-For", c.IP())

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warn("upstream unreachable", zap.String("method", c.Method()), zap.String("target", targetURL), zap.Error(err))
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "failed to reach upstream service"})
	}
	defer resp.Body.Close()

	p.log.Debug("forwarded",
		zap.String("method", c.Method()),
		zap.String("target", targetURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return copyResponse(c, resp)
}

func copyResponse(c fiber.Ctx, resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "invalid upstream response"})
	}

	header := &c.Response().Header
	for key, values := range resp.Header {
		if hopHeaders[key] {
			continue
		}
		header.Del(key)
		for _, v := range values {
			header.Add(key, v)
		}
	}

	c.Status(resp.StatusCode)
	return c.Send(data)
}

// ============================================================
// Upstream Health
// ============================================================

// Live опрашивает /health/live сервиса; подходит как health.Check.
func (p *Proxy) Live(baseURL string) func(ctx context.Context) error {
	target := strings.TrimRight(baseURL, "/") + "/health/live"
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s: status %d", target, resp.StatusCode)
		}
		return nil
	}
}
