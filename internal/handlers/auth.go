package handlers

import (
	"crypto/subtle"
	"os"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

// HandleAdminLogin exchanges the dashboard password for a bearer token.
func HandleAdminLogin(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	expected := os.Getenv("ADMIN_PASSWORD")
	if expected == "" || subtle.ConstantTimeCompare([]byte(req.Password), []byte(expected)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	token, err := middleware.IssueAdminToken()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Server configuration error",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
	})
}
