package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "wleci/internal/log"
	"wleci/internal/repos"
	"wleci/internal/services"
)

type PageHandler struct {
	Users  *services.UserService
	Posts  *repos.PostRepo
	cookie sessionCookie
}

// GET /
func (h *PageHandler) Landing(c *fiber.Ctx) error {
	posts, err := h.Posts.ListPublished(c.UserContext(), 6)
	if err != nil {
		// the landing page still renders without posts
		applog.Error(c, "landing.posts.fail", err, nil)
	}
	return render(c, "index", fiber.Map{"Posts": posts})
}

// profile loads the signed-in account for a dashboard page. A session whose
// account is gone is dropped and sent back to the login page.
func (h *PageHandler) profile(c *fiber.Ctx, tmpl string) error {
	u, err := h.Users.Profile(c.UserContext(), sessionOrNil(c))
	if errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrNotAuthenticated) {
		h.cookie.clear(c)
		return c.Redirect(loginPath)
	}
	if err != nil {
		return err
	}
	return render(c, tmpl, fiber.Map{"Profile": u})
}

// GET /dashboard
func (h *PageHandler) Dashboard(c *fiber.Ctx) error { return h.profile(c, "dashboard") }

// GET /dashboard/settings
func (h *PageHandler) Settings(c *fiber.Ctx) error { return h.profile(c, "settings") }
