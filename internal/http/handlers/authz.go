package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	applog "wleci/internal/log"
	"wleci/internal/services"
)

const sessionKey = "session"

const (
	loginPath     = "/auth/login"
	dashboardPath = "/dashboard"
)

type sessionCookie struct {
	Name   string
	Secure bool
}

func (sc sessionCookie) set(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     sc.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   sc.Secure,
	})
}

func (sc sessionCookie) clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     sc.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-1 * time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   sc.Secure,
	})
}

// Guard decodes the session cookie and gates handlers on it.
type Guard struct {
	Sessions *services.SessionIssuer
	cookie   sessionCookie
}

func NewGuard(sessions *services.SessionIssuer, cookieName string, secure bool) *Guard {
	return &Guard{Sessions: sessions, cookie: sessionCookie{Name: cookieName, Secure: secure}}
}

// LoadSession attaches a valid session to the request, re-issues the cookie
// once half its lifetime has passed and drops cookies that no longer verify.
// When the revocation lookup itself fails, API calls get the error and pages
// are served as anonymous with the cookie left in place.
func (g *Guard) LoadSession(c *fiber.Ctx) error {
	raw := c.Cookies(g.cookie.Name)
	if raw == "" {
		return c.Next()
	}
	sess, err := g.Sessions.Parse(c.UserContext(), raw)
	if err != nil {
		if !errors.Is(err, services.ErrNotAuthenticated) {
			if isAPI(c.Path()) {
				return err
			}
			applog.Error(c, "session.lookup.fail", err, nil)
			return c.Next()
		}
		applog.Security(c, "session.invalid", map[string]any{"reason": services.Reason(err)})
		g.cookie.clear(c)
		return c.Next()
	}

	c.Locals(sessionKey, sess)
	c.Locals(applog.UserIDKey, sess.UserID)
	if g.Sessions.NeedsRefresh(sess) {
		if tok, exp, err := g.Sessions.Refresh(sess); err == nil {
			g.cookie.set(c, tok, exp)
		} else {
			applog.Error(c, "session.refresh.fail", err, nil)
		}
	}
	return c.Next()
}

// CurrentSession returns the request's session or an ErrNotAuthenticated
// error for callers that branch on it.
func CurrentSession(c *fiber.Ctx) (*services.Session, error) {
	if sess, ok := c.Locals(sessionKey).(*services.Session); ok && sess != nil {
		return sess, nil
	}
	return nil, services.Fail(services.ErrNotAuthenticated, "Unauthorized")
}

func sessionOrNil(c *fiber.Ctx) *services.Session {
	sess, _ := CurrentSession(c)
	return sess
}

// RequireUser answers 401 for API calls without a session.
func RequireUser(c *fiber.Ctx) error {
	if sessionOrNil(c) == nil {
		applog.Security(c, "access.denied.anonymous", nil)
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - Please log in")
	}
	return c.Next()
}

// RequireAdmin answers 401 without a session and 403 for non-admins.
func RequireAdmin(c *fiber.Ctx) error {
	sess := sessionOrNil(c)
	if sess == nil {
		applog.Security(c, "access.denied.anonymous", nil)
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - Please log in")
	}
	if !sess.IsAdmin() {
		applog.Security(c, "access.denied.admin", nil)
		return fiber.NewError(fiber.StatusForbidden, "Forbidden - Admin access required")
	}
	return c.Next()
}

// RequireAdminPage is the dashboard flavour: the route gate has already
// handled anonymous visitors.
func RequireAdminPage(c *fiber.Ctx) error {
	if !sessionOrNil(c).IsAdmin() {
		applog.Security(c, "access.denied.admin", nil)
		return render(c.Status(fiber.StatusForbidden), "error", fiber.Map{"Message": "Access denied", "Code": fiber.StatusForbidden})
	}
	return c.Next()
}

// RouteDecision returns where a request for path must be redirected, or ""
// to let it through.
func RouteDecision(path string, authenticated bool) string {
	switch {
	case authenticated && underPrefix(path, "/auth"):
		return dashboardPath
	case !authenticated && underPrefix(path, dashboardPath):
		return loginPath
	}
	return ""
}

func underPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// RouteGate applies RouteDecision before any page handler runs.
func RouteGate(c *fiber.Ctx) error {
	if to := RouteDecision(c.Path(), sessionOrNil(c) != nil); to != "" {
		return c.Redirect(to)
	}
	return c.Next()
}
