package handlers

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "wleci/internal/log"
	"wleci/internal/repos"
	"wleci/internal/services"
)

type AdminHandler struct {
	Users *services.UserService
	Posts *repos.PostRepo
}

// flexID accepts a user id sent either as a JSON number or a numeric string.
// Anything else decodes to 0.
type flexID uint

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(bytes.Trim(b, `"`)))
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexID(n)
	return nil
}

// POST /api/admin/revoke-session
func (h *AdminHandler) RevokeSession(c *fiber.Ctx) error {
	var in struct {
		UserID flexID `json:"userId"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badJSON()
	}
	u, err := h.Users.RevokeSessions(c.UserContext(), sessionOrNil(c), uint(in.UserID))
	if err != nil {
		return apiError(c, "admin.sessions.revoke", err, "Failed to revoke session")
	}
	applog.Audit(c, "admin.sessions.revoke", map[string]any{"target": u.ID, "email": u.Email})
	return c.JSON(fiber.Map{
		"message": "Sessions revoked for user " + u.Email,
		"user":    u.Identity(),
	})
}

// GET /dashboard/users
func (h *AdminHandler) UsersPage(c *fiber.Ctx) error {
	users, err := h.Users.List(c.UserContext(), sessionOrNil(c))
	if err != nil {
		applog.Error(c, "admin.users.list.fail", err, nil)
		return render(c.Status(fiber.StatusInternalServerError), "error", fiber.Map{"Message": "Could not load users"})
	}
	return render(c, "users", fiber.Map{"Users": users})
}

// GET /dashboard/analytics
func (h *AdminHandler) AnalyticsPage(c *fiber.Ctx) error {
	stats, err := h.Posts.Stats(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.analytics.fail", err, nil)
		return render(c.Status(fiber.StatusInternalServerError), "error", fiber.Map{"Message": "Could not load analytics"})
	}
	return render(c, "analytics", fiber.Map{"Stats": stats})
}
