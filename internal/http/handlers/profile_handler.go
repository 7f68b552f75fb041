package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "wleci/internal/log"
	"wleci/internal/services"
)

type ProfileHandler struct {
	Users *services.UserService
}

// GET /api/profile
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	u, err := h.Users.Profile(c.UserContext(), sessionOrNil(c))
	if err != nil {
		return apiError(c, "profile.get", err, "Failed to fetch profile")
	}
	return c.JSON(u)
}

// PUT /api/profile
func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	var in struct {
		Name *string `json:"name"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badJSON()
	}
	u, err := h.Users.UpdateProfile(c.UserContext(), sessionOrNil(c), in.Name)
	if err != nil {
		return apiError(c, "profile.update", err, "Failed to update profile")
	}
	return c.JSON(u)
}

// PUT /api/profile/password
func (h *ProfileHandler) ChangePassword(c *fiber.Ctx) error {
	var in struct {
		Current string `json:"currentPassword"`
		New     string `json:"newPassword"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badJSON()
	}
	if err := h.Users.ChangePassword(c.UserContext(), sessionOrNil(c), in.Current, in.New); err != nil {
		applog.Security(c, "profile.password.fail", map[string]any{"reason": err.Error()})
		return apiError(c, "profile.password", err, "Failed to update password")
	}
	applog.Audit(c, "profile.password.change", nil)
	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}
