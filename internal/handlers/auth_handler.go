package handlers

import (
	"strings"
	"time"

	"easyshop/internal/middleware"
	"easyshop/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for signup, login and the current session.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the public authentication routes.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/signup", h.HandleSignUp)
	authRoutes.Post("/login", h.HandleLogin)
}

// RegisterSessionRoutes registers the routes that need a session.
func (h *AuthHandler) RegisterSessionRoutes(router fiber.Router) {
	router.Get("/auth/me", h.HandleMe)
}

// SignUpRequest represents the request body for signup.
type SignUpRequest struct {
	Username        string `json:"username" validate:"required"`
	Email           string `json:"email" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// HandleSignUp registers a new account.
func (h *AuthHandler) HandleSignUp(c *fiber.Ctx) error {
	var req SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return respondValidation(c, err)
	}

	account, err := h.authService.SignUp(req.Username, req.Email, req.Password)
	if err != nil {
		return respondError(c, err, "Registration failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Sign Up Successful",
		"user":    account,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin checks credentials and issues a session token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Password = strings.TrimSpace(req.Password)

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Please enter email and password",
		})
	}

	session, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		return respondError(c, err, "Login failed")
	}

	return c.JSON(fiber.Map{
		"message":    "Login successful",
		"token":      session.Token,
		"username":   session.Username,
		"expires_in": int64(time.Until(session.ExpiresAt).Seconds()),
	})
}

// HandleMe returns the username of the logged-in account.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	email, _ := c.Locals(middleware.LocalEmail).(string)

	username, err := h.authService.Username(email)
	if err != nil {
		return respondError(c, err, "Could not load profile")
	}

	return c.JSON(fiber.Map{
		"email":    email,
		"username": username,
	})
}
