package handlers

import (
	"errors"
	"log"

	"intranet/internal/middleware"
	"intranet/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles portal login and account management
type AuthHandler struct {
	users *services.UserService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /api/auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// CreateUserRequest is the body of POST /api/admin/users
type CreateUserRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
}

// Login checks credentials and issues a token pair
// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email and password are required"})
	}

	pair, user, err := h.users.Login(c.UserContext(), req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	}
	if errors.Is(err, services.ErrAuthDisabled) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Authentication service unavailable"})
	}
	if err != nil {
		log.Printf("❌ [AUTH] Login failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Login failed"})
	}

	return c.JSON(fiber.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.ExpiresAt,
		"user":          user,
	})
}

// Refresh exchanges a refresh token for a new pair
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "refresh_token is required"})
	}

	pair, err := h.users.Refresh(c.UserContext(), req.RefreshToken)
	if errors.Is(err, services.ErrAuthDisabled) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Authentication service unavailable"})
	}
	if err != nil {
		log.Printf("⚠️  [AUTH] Refresh rejected: %v", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired refresh token"})
	}
	return c.JSON(pair)
}

// Me returns the caller with the resolved role
// GET /api/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	caller := middleware.CurrentIdentity(c)
	if caller == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication required"})
	}
	return c.JSON(h.users.Me(c.UserContext(), caller))
}

// CreateUser adds an account (admin)
// POST /api/admin/users
func (h *AuthHandler) CreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user, err := h.users.Create(c.UserContext(), req.Email, req.Password, req.Role, req.DisplayName)
	switch {
	case errors.Is(err, services.ErrUserExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		return writeError(c, err, "create user")
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}
