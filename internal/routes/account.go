package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dhaka-pay/dhaka_pay/internal/account"
)

// RegisterAccountRoutes wires the registration and authentication endpoints.
// Register and login are public; everything else requires a live session.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler, sessionAuth fiber.Handler) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)

	protected := r.Group("", sessionAuth)
	protected.Post("/logout", h.Logout)
	protected.Get("/me", h.Me)
}
