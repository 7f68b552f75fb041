package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "wleci/internal/log"
	"wleci/internal/services"
)

// statusOf maps a service error kind to its HTTP status and public message.
func statusOf(err error) (int, string) {
	msg := err.Error()
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrSelfDelete):
		return fiber.StatusBadRequest, msg
	case errors.Is(err, services.ErrBadCreds), errors.Is(err, services.ErrNotAuthenticated):
		return fiber.StatusUnauthorized, msg
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden, msg
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, msg
	case errors.Is(err, services.ErrConflict):
		return fiber.StatusConflict, msg
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}
	return fiber.StatusInternalServerError, "Internal server error"
}

// apiError turns err into a *fiber.Error. Unexpected errors are logged under
// action and replaced with fallback so internals never reach the client.
func apiError(c *fiber.Ctx, action string, err error, fallback string) error {
	status, msg := statusOf(err)
	switch {
	case status >= fiber.StatusInternalServerError:
		applog.Error(c, action, err, nil)
		return fiber.NewError(status, fallback)
	case status == fiber.StatusUnauthorized || status == fiber.StatusForbidden:
		applog.Security(c, action+".denied", map[string]any{"reason": reasonOf(err)})
	}
	return fiber.NewError(status, msg)
}

func reasonOf(err error) string {
	if r := services.Reason(err); r != "" {
		return r
	}
	return err.Error()
}

func isAPI(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// ErrorHandler is the app-wide fallback: JSON {"error": ...} on the API,
// an HTML page elsewhere. Causes of 5xx responses are only logged.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, msg := statusOf(err)
	if status >= fiber.StatusInternalServerError {
		var fe *fiber.Error
		if !errors.As(err, &fe) {
			applog.Error(c, "server.error", err, nil)
			msg = "Internal server error"
		}
	}

	if isAPI(c.Path()) {
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}
	if status >= fiber.StatusInternalServerError {
		msg = "Something went wrong. Please try again."
	}
	if rerr := render(c.Status(status), "error", fiber.Map{"Message": msg, "Code": status}); rerr != nil {
		return c.Status(status).SendString(msg)
	}
	return nil
}

// NotFound terminates the middleware chain for unmatched routes.
func NotFound(c *fiber.Ctx) error {
	if isAPI(c.Path()) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	}
	return render(c.Status(fiber.StatusNotFound), "error", fiber.Map{"Message": "Page not found", "Code": fiber.StatusNotFound})
}

func badJSON() error {
	return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body")
}
