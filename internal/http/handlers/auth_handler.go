package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"wleci/internal/domain"
	applog "wleci/internal/log"
	"wleci/internal/services"
)

type AuthHandler struct {
	Auth     *services.Authenticator
	Users    *services.UserService
	Sessions *services.SessionIssuer
	cookie   sessionCookie
}

type credentials struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type registration struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// login verifies the credentials and sets the session cookie. Every failure
// is reported to the caller the same way; the cause is only logged.
func (h *AuthHandler) login(c *fiber.Ctx, in credentials) (domain.Identity, error) {
	id, err := h.Auth.Authenticate(c.UserContext(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, services.ErrBadCreds) {
			applog.Security(c, "auth.login.fail", map[string]any{"email": in.Email, "reason": services.Reason(err)})
		}
		return id, err
	}
	tok, exp, err := h.Sessions.Issue(id)
	if err != nil {
		return id, err
	}
	h.cookie.set(c, tok, exp)
	c.Locals(applog.UserIDKey, id.ID)
	applog.Audit(c, "auth.login.success", map[string]any{"email": id.Email})
	return id, nil
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in credentials
	if err := c.BodyParser(&in); err != nil {
		return badJSON()
	}
	id, err := h.login(c, in)
	if err != nil {
		return apiError(c, "auth.login", err, "Login failed")
	}
	return c.JSON(fiber.Map{"user": id})
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in registration
	if err := c.BodyParser(&in); err != nil {
		return badJSON()
	}
	u, err := h.Users.Register(c.UserContext(), services.RegisterInput{Name: in.Name, Email: in.Email, Password: in.Password})
	if err != nil {
		applog.Info(c, "auth.register.fail", map[string]any{"email": in.Email, "reason": err.Error()})
		return apiError(c, "auth.register", err, "Internal server error")
	}
	applog.Audit(c, "auth.register", map[string]any{"user": u.ID, "email": u.Email})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully",
		"user":    u,
	})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.cookie.clear(c)
	applog.Audit(c, "auth.logout", nil)
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// GET /api/auth/session
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	sess := sessionOrNil(c)
	if sess == nil {
		return c.JSON(fiber.Map{"user": nil})
	}
	u, err := h.Users.Profile(c.UserContext(), sess)
	if errors.Is(err, services.ErrNotFound) {
		// token outlived its account
		h.cookie.clear(c)
		return c.JSON(fiber.Map{"user": nil})
	}
	if err != nil {
		return apiError(c, "auth.session", err, "Failed to load session")
	}
	return c.JSON(fiber.Map{"user": u.Identity(), "expires": sess.ExpiresAt})
}

// GET /auth/login
func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return render(c, "login", fiber.Map{"Err": "", "Email": "", "Registered": c.Query("registered") == "1"})
}

// POST /auth/login
func (h *AuthHandler) LoginSubmit(c *fiber.Ctx) error {
	var in credentials
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form")
	}
	if _, err := h.login(c, in); err != nil {
		if !errors.Is(err, services.ErrBadCreds) {
			return err
		}
		return render(c.Status(fiber.StatusUnauthorized), "login", fiber.Map{"Err": "Invalid email or password", "Email": in.Email})
	}
	return c.Redirect(dashboardPath)
}

// GET /auth/register
func (h *AuthHandler) RegisterForm(c *fiber.Ctx) error {
	return render(c, "register", fiber.Map{"Err": "", "Name": "", "Email": ""})
}

// POST /auth/register
func (h *AuthHandler) RegisterSubmit(c *fiber.Ctx) error {
	var in registration
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form")
	}
	u, err := h.Users.Register(c.UserContext(), services.RegisterInput{Name: in.Name, Email: in.Email, Password: in.Password})
	if err != nil {
		status, msg := statusOf(err)
		if status >= fiber.StatusInternalServerError {
			return err
		}
		return render(c.Status(status), "register", fiber.Map{"Err": msg, "Name": in.Name, "Email": in.Email})
	}
	applog.Audit(c, "auth.register", map[string]any{"user": u.ID, "email": u.Email})
	return c.Redirect(loginPath + "?registered=1")
}

// POST /dashboard/logout
func (h *AuthHandler) LogoutPage(c *fiber.Ctx) error {
	h.cookie.clear(c)
	applog.Audit(c, "auth.logout", nil)
	return c.Redirect("/")
}
