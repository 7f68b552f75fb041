package handlers

import (
	"context"
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	applog "wleci/internal/log"
	"wleci/internal/repos"
)

// SEOHandler serves the crawler files and the health probes.
type SEOHandler struct {
	BaseURL string
	Env     string
	Version string
	Started time.Time
	DB      *gorm.DB
}

var publicPages = []struct {
	Path     string
	Priority string
	Freq     string
}{
	{"/", "1.0", "weekly"},
	{"/auth/login", "0.5", "monthly"},
	{"/auth/register", "0.5", "monthly"},
}

func (h *SEOHandler) base() string { return strings.TrimRight(h.BaseURL, "/") }

func cacheFor(c *fiber.Ctx, d time.Duration) {
	c.Set(fiber.HeaderCacheControl, fmt.Sprintf("public, max-age=%d", int(d.Seconds())))
}

// GET /robots.txt
func (h *SEOHandler) Robots(c *fiber.Ctx) error {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /dashboard\n")
	b.WriteString("Disallow: /api\n")
	fmt.Fprintf(&b, "\nSitemap: %s/sitemap.xml\n", h.base())
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	cacheFor(c, 24*time.Hour)
	return c.SendString(b.String())
}

// GET /sitemap.xml
func (h *SEOHandler) Sitemap(c *fiber.Ctx) error {
	lastmod := h.Started.UTC().Format("2006-01-02")
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	for _, p := range publicPages {
		fmt.Fprintf(&b, "  <url><loc>%s%s</loc><lastmod>%s</lastmod><changefreq>%s</changefreq><priority>%s</priority></url>\n",
			h.base(), p.Path, lastmod, p.Freq, p.Priority)
	}
	b.WriteString("</urlset>\n")
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationXMLCharsetUTF8)
	cacheFor(c, time.Hour)
	return c.SendString(b.String())
}

// GET /security.txt and /.well-known/security.txt
func (h *SEOHandler) SecurityTxt(c *fiber.Ctx) error {
	host := "localhost"
	if u, err := url.Parse(h.base()); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Contact: mailto:security@%s\n", host)
	fmt.Fprintf(&b, "Expires: %s\n", time.Now().UTC().AddDate(1, 0, 0).Format(time.RFC3339))
	b.WriteString("Preferred-Languages: en, pl\n")
	fmt.Fprintf(&b, "Canonical: %s/.well-known/security.txt\n", h.base())
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	cacheFor(c, 24*time.Hour)
	return c.SendString(b.String())
}

func (h *SEOHandler) dbStatus(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := repos.Ping(ctx, h.DB); err != nil {
		return "error"
	}
	return "ok"
}

// GET /health
func (h *SEOHandler) Health(c *fiber.Ctx) error {
	db := h.dbStatus(c.UserContext())
	status, code := "healthy", fiber.StatusOK
	if db != "ok" {
		status, code = "unhealthy", fiber.StatusServiceUnavailable
		applog.Error(c, "health.db.fail", nil, nil)
	}
	return c.Status(code).JSON(fiber.Map{
		"status":      status,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"uptime":      time.Since(h.Started).Seconds(),
		"environment": h.Env,
		"version":     h.Version,
		"database":    db,
	})
}

// POST /health reports runtime details on top of the basic probe.
func (h *SEOHandler) HealthDetailed(c *fiber.Ctx) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"uptime":      time.Since(h.Started).Seconds(),
		"environment": h.Env,
		"version":     h.Version,
		"database":    h.dbStatus(c.UserContext()),
		"memory": fiber.Map{
			"alloc":      m.Alloc,
			"heapInUse":  m.HeapInuse,
			"sys":        m.Sys,
			"numGC":      m.NumGC,
			"goroutines": runtime.NumGoroutine(),
		},
		"go": runtime.Version(),
	})
}

// GET /healthz is the bare liveness probe.
func Healthz(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) }
