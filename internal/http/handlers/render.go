package handlers

import "github.com/gofiber/fiber/v2"

const layout = "layouts/main"

// messages holds the UI strings per locale; the lang cookie picks one.
var messages = map[string]map[string]string{
	"en": {
		"tagline":   "Build, ship and manage your users in one place.",
		"login":     "Sign in",
		"register":  "Create account",
		"logout":    "Sign out",
		"dashboard": "Dashboard",
		"users":     "Users",
		"settings":  "Settings",
		"analytics": "Analytics",
		"email":     "Email",
		"password":  "Password",
		"name":      "Name",
		"role":      "Role",
		"latest":    "Latest posts",
	},
	"pl": {
		"tagline":   "Twórz, wdrażaj i zarządzaj użytkownikami w jednym miejscu.",
		"login":     "Zaloguj się",
		"register":  "Załóż konto",
		"logout":    "Wyloguj",
		"dashboard": "Panel",
		"users":     "Użytkownicy",
		"settings":  "Ustawienia",
		"analytics": "Statystyki",
		"email":     "E-mail",
		"password":  "Hasło",
		"name":      "Imię",
		"role":      "Rola",
		"latest":    "Najnowsze wpisy",
	},
}

func locale(c *fiber.Ctx) string {
	if lang := c.Cookies("lang"); lang != "" {
		if _, ok := messages[lang]; ok {
			return lang
		}
	}
	return "en"
}

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if sess := sessionOrNil(c); sess != nil {
		data["Session"] = sess
	}
	// token put into Locals by the CSRF middleware on guarded routes
	if tok, ok := c.Locals("csrf").(string); ok && tok != "" {
		data["CSRFToken"] = tok
	}
	lang := locale(c)
	data["Lang"] = lang
	data["T"] = messages[lang]
	return c.Render(tmpl, data, layout)
}
