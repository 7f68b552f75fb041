package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"wleci/internal/config"
	applog "wleci/internal/log"
	"wleci/web"
)

// NewEngine loads the embedded page templates.
func NewEngine() *html.Engine {
	engine := html.NewFileSystem(http.FS(web.Templates()), ".html")
	engine.AddFunc("deref", func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	})
	return engine
}

// NewApp wires middleware and routes. main and the HTTP tests share it.
func NewApp(cfg config.Config, d *Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "wleci",
		Views:        NewEngine(),
		ErrorHandler: ErrorHandler,
		BodyLimit:    1 << 20, // 1 MiB

		// RouteGate matches prefixes byte for byte; routing must agree
		CaseSensitive: true,
	})

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	if cfg.CORSOrigin != "" {
		app.Use("/api", cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigin,
			AllowCredentials: cfg.CORSOrigin != "*",
		}))
	}
	app.Use(d.Guard.LoadSession)
	app.Use(RouteGate)

	csrfMW := csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     cfg.CSRFCookieName(),
		CookieSameSite: "Lax",
		CookieSecure:   cfg.CookieSecure(),
		CookieHTTPOnly: true,
		ContextKey:     "csrf",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"err": err.Error()})
			return fiber.NewError(fiber.StatusForbidden, "Security check failed. Please refresh and try again.")
		},
	})
	loginLimit := throttle(cfg, "login")
	registerLimit := throttle(cfg, "register")

	// ---------- Public ----------
	app.Get("/", d.Pages.Landing)
	app.Get("/robots.txt", d.SEO.Robots)
	app.Get("/sitemap.xml", d.SEO.Sitemap)
	app.Get("/security.txt", d.SEO.SecurityTxt)
	app.Get("/.well-known/security.txt", d.SEO.SecurityTxt)
	app.Get("/health", d.SEO.Health)
	app.Post("/health", d.SEO.HealthDetailed)
	app.Get("/healthz", Healthz)

	// ---------- API ----------
	api := app.Group("/api")
	api.Post("/auth/register", registerLimit, d.Auth.Register)
	api.Post("/auth/login", loginLimit, d.Auth.Login)
	api.Post("/auth/logout", d.Auth.Logout)
	api.Get("/auth/session", d.Auth.Session)

	api.Get("/users", RequireAdmin, d.Users.List)
	api.Post("/users", RequireAdmin, d.Users.Create)
	api.Get("/users/:id", RequireUser, d.Users.Get)
	api.Put("/users/:id", RequireUser, d.Users.Update)
	api.Delete("/users/:id", RequireUser, d.Users.Delete)

	api.Get("/profile", RequireUser, d.Profile.Get)
	api.Put("/profile", RequireUser, d.Profile.Update)
	api.Put("/profile/password", RequireUser, d.Profile.ChangePassword)

	api.Post("/admin/revoke-session", RequireAdmin, d.Admin.RevokeSession)

	// ---------- Pages ----------
	// RouteGate already bounced anonymous visitors off /dashboard and
	// signed-in ones off /auth.
	auth := app.Group("/auth", csrfMW)
	auth.Get("/login", d.Auth.LoginForm)
	auth.Post("/login", loginLimit, d.Auth.LoginSubmit)
	auth.Get("/register", d.Auth.RegisterForm)
	auth.Post("/register", registerLimit, d.Auth.RegisterSubmit)

	dash := app.Group("/dashboard", csrfMW)
	dash.Get("/", d.Pages.Dashboard)
	dash.Get("/settings", d.Pages.Settings)
	dash.Get("/users", RequireAdminPage, d.Admin.UsersPage)
	dash.Get("/analytics", RequireAdminPage, d.Admin.AnalyticsPage)
	dash.Post("/logout", d.Auth.LogoutPage)

	app.Use(NotFound)
	return app
}

// throttle limits credential endpoints per client IP. The API and form
// routes for the same action share one budget.
func throttle(cfg config.Config, name string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        cfg.LoginRateMax,
		Expiration: 10 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|" + name
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate."+name+".hit", nil)
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many attempts. Please try again later.")
		},
	})
}
