package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/dhaka-pay/dhaka_pay/internal/account"
)

// sessionCookie is the cookie name the dashboard stores the token under.
const sessionCookie = "auth_token"

// SessionAuth validates the opaque session token on every protected request.
// Cookie presence alone is never trusted; the token must resolve to a live
// session in the store (or its cache).
func SessionAuth(svc *account.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		plaintext := bearerToken(c)
		if plaintext == "" {
			plaintext = c.Cookies(sessionCookie)
		}
		if plaintext == "" {
			return unauthenticated(c)
		}

		u, err := svc.Authenticate(c.UserContext(), plaintext)
		if err != nil {
			return unauthenticated(c)
		}

		account.SetCurrentUser(c, u)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	authz := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[len("Bearer "):])
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": "Unauthenticated.",
	})
}
