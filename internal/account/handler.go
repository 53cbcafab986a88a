package account

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/dhaka-pay/dhaka_pay/internal/user"
)

const genericFailure = "Something went wrong."

// Handler exposes the registration and authentication endpoints. Responses
// follow the dashboard contract: {success, message, ...} envelopes with 201
// on register, 422 on validation failure, 401 on bad credentials, and an
// opaque 500 for internal faults.
type Handler struct {
	validator *Validator
	service   *Service
	logger    *slog.Logger
}

// NewHandler builds the account HTTP handler.
func NewHandler(validator *Validator, service *Service, logger *slog.Logger) *Handler {
	return &Handler{validator: validator, service: service, logger: logger}
}

// Register validates the form and provisions a user with its wallet.
func (h *Handler) Register(c *fiber.Ctx) error {
	var in RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body.")
	}

	if err := h.validator.ValidateRegister(c.UserContext(), in); err != nil {
		return h.reject(c, err, "register validation")
	}

	u, w, err := h.service.Register(c.UserContext(), in)
	if err != nil {
		// A concurrent registration can win the unique constraint between
		// validation and insert; report it like any other taken field.
		if errors.Is(err, ErrEmailTaken) {
			return fail(c, http.StatusUnprocessableEntity, "The email has already been taken.")
		}
		if errors.Is(err, ErrPhoneTaken) {
			return fail(c, http.StatusUnprocessableEntity, "The phone has already been taken.")
		}
		h.logger.Error("registration failed", "email", in.Email, "error", err)
		return fail(c, http.StatusInternalServerError, genericFailure)
	}

	h.logger.Info("user registered", "user_id", u.ID, "role", u.Role.Label(), "wallet_id", w.ID)

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User registered successfully",
		"user":    u.Sanitize(),
		"wallet":  w.Sanitize(),
	})
}

// Login verifies credentials and returns a fresh session token together with
// the user and wallet.
func (h *Handler) Login(c *fiber.Ctx) error {
	var in LoginInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body.")
	}

	if err := h.validator.ValidateLogin(c.UserContext(), in); err != nil {
		return h.reject(c, err, "login validation")
	}

	tok, u, w, err := h.service.Login(c.UserContext(), in)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			// Unknown email and wrong password produce the same response.
			return fail(c, http.StatusUnauthorized, "Invalid credentials.")
		}
		h.logger.Error("login failed", "email", in.Email, "error", err)
		return fail(c, http.StatusInternalServerError, genericFailure)
	}

	h.logger.Info("user logged in", "user_id", u.ID)

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"data": fiber.Map{
			"token":  tok,
			"user":   u.Sanitize(),
			"wallet": w.Sanitize(),
		},
	})
}

// Logout revokes every session token of the authenticated user.
func (h *Handler) Logout(c *fiber.Ctx) error {
	u, ok := CurrentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "Unauthenticated.")
	}
	if err := h.service.Logout(c.UserContext(), u.ID); err != nil {
		h.logger.Error("logout failed", "user_id", u.ID, "error", err)
		return fail(c, http.StatusInternalServerError, genericFailure)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Logged out",
	})
}

// Me returns the authenticated user's profile and wallet for the dashboard.
func (h *Handler) Me(c *fiber.Ctx) error {
	u, ok := CurrentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "Unauthenticated.")
	}
	w, err := h.service.Wallet(c.UserContext(), u.ID)
	if err != nil {
		h.logger.Error("wallet lookup failed", "user_id", u.ID, "error", err)
		return fail(c, http.StatusInternalServerError, genericFailure)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"user":   u.Sanitize(),
			"wallet": w.Sanitize(),
		},
	})
}

// reject maps validation outcomes: rule violations become 422 with the first
// violated rule's message, anything else is an internal fault.
func (h *Handler) reject(c *fiber.Ctx, err error, op string) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return fail(c, http.StatusUnprocessableEntity, verr.Message)
	}
	h.logger.Error(op+" errored", "error", err)
	return fail(c, http.StatusInternalServerError, genericFailure)
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

const currentUserKey = "current_user"

// SetCurrentUser stores the authenticated user on the request context.
// The session middleware is the only writer.
func SetCurrentUser(c *fiber.Ctx, u user.User) {
	c.Locals(currentUserKey, u)
}

// CurrentUser retrieves the user placed by the session middleware.
func CurrentUser(c *fiber.Ctx) (user.User, bool) {
	u, ok := c.Locals(currentUserKey).(user.User)
	return u, ok
}
