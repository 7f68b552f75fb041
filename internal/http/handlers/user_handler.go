package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "wleci/internal/log"
	"wleci/internal/services"
	"wleci/internal/validate"
)

type UserHandler struct {
	Users *services.UserService
}

func userID(c *fiber.Ctx) (uint, error) {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid user ID")
	}
	return id, nil
}

// GET /api/users
func (h *UserHandler) List(c *fiber.Ctx) error {
	users, err := h.Users.List(c.UserContext(), sessionOrNil(c))
	if err != nil {
		return apiError(c, "users.list", err, "Failed to fetch users")
	}
	return c.JSON(users)
}

// POST /api/users
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var in struct {
		Email    string  `json:"email"`
		Name     *string `json:"name"`
		Password string  `json:"password"`
		Role     string  `json:"role"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badJSON()
	}
	u, err := h.Users.Create(c.UserContext(), sessionOrNil(c), services.CreateInput{
		Email: in.Email, Name: in.Name, Password: in.Password, Role: in.Role,
	})
	if err != nil {
		return apiError(c, "users.create", err, "Failed to create user")
	}
	applog.Audit(c, "users.create", map[string]any{"target": u.ID, "role": u.Role})
	return c.Status(fiber.StatusCreated).JSON(u)
}

// GET /api/users/:id
func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	u, err := h.Users.Get(c.UserContext(), sessionOrNil(c), id)
	if err != nil {
		return apiError(c, "users.get", err, "Failed to fetch user")
	}
	return c.JSON(u)
}

// PUT /api/users/:id
func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var in struct {
		Name     *string `json:"name"`
		Email    *string `json:"email"`
		Role     *string `json:"role"`
		Password *string `json:"password"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badJSON()
	}
	u, err := h.Users.Update(c.UserContext(), sessionOrNil(c), id, services.UpdateInput{
		Name: in.Name, Email: in.Email, Role: in.Role, Password: in.Password,
	})
	if err != nil {
		return apiError(c, "users.update", err, "Failed to update user")
	}
	applog.Audit(c, "users.update", map[string]any{
		"target":       id,
		"role_changed": in.Role != nil,
		"password_set": in.Password != nil,
	})
	return c.JSON(u)
}

// DELETE /api/users/:id
//
// The id is checked by the service after authorization, so a non-admin gets
// 403 whatever the path says.
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, _ := validate.ID(c.Params("id"))
	u, err := h.Users.Delete(c.UserContext(), sessionOrNil(c), id)
	if err != nil {
		return apiError(c, "users.delete", err, "Failed to delete user")
	}
	applog.Audit(c, "users.delete", map[string]any{"target": u.ID, "email": u.Email})
	return c.JSON(fiber.Map{
		"message":     "User deleted successfully",
		"deletedUser": u.Identity(),
	})
}
