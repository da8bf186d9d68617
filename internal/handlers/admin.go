package handlers

import (
	"log"
	"time"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/bot"
	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

// AdminHandler serves the supervisor dashboard API. Every route behind it
// requires a valid admin JWT.
type AdminHandler struct {
	bot *bot.Bot
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(b *bot.Bot) *AdminHandler {
	return &AdminHandler{bot: b}
}

// GetStats returns a live platform overview.
func (h *AdminHandler) GetStats(c *fiber.Ctx) error {
	stock, err := h.bot.Store().StockSnapshot()
	if err != nil {
		log.Printf("⚠️  Stock snapshot failed: %v", err)
		stock = nil
	}
	losses, _ := h.bot.Store().ListLostSales()

	return c.JSON(fiber.Map{
		"success":        true,
		"activeSessions": h.bot.Sessions().Count(),
		"pendingProofs":  len(h.bot.Sessions().ListPending()),
		"lostSales":      len(losses),
		"stock":          stock,
		"timestamp":      time.Now(),
	})
}

// GetPendingVerifications lists every order awaiting supervisor approval.
func (h *AdminHandler) GetPendingVerifications(c *fiber.Ctx) error {
	pending := h.bot.Sessions().ListPending()
	return c.JSON(fiber.Map{
		"success":       true,
		"verifications": pending,
		"count":         len(pending),
	})
}

// UpdateVerification approves or rejects a pending verification.
func (h *AdminHandler) UpdateVerification(c *fiber.Ctx) error {
	phone := c.Params("phone")

	var req struct {
		Status string `json:"status"` // "approved" or "rejected"
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var summary string
	var err error
	switch req.Status {
	case "approved":
		summary, err = h.bot.ApproveVerification(phone)
	case "rejected":
		summary, err = h.bot.RejectVerification(phone)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Status must be 'approved' or 'rejected'",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"summary": summary,
	})
}

// GetStock returns available slot counts per platform and account type.
func (h *AdminHandler) GetStock(c *fiber.Ctx) error {
	stock, err := h.bot.Store().StockSnapshot()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read stock",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"stock":   stock,
	})
}

// CreateProfile adds one inventory row.
func (h *AdminHandler) CreateProfile(c *fiber.Ctx) error {
	var profile models.Profile
	if err := c.BodyParser(&profile); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid profile payload",
		})
	}
	if profile.Platform == "" || profile.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "platform and email are required",
		})
	}

	if err := h.bot.Store().CreateProfile(&profile); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create profile",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"profile": profile,
	})
}

// GetLostSales lists the lost-sale ledger.
func (h *AdminHandler) GetLostSales(c *fiber.Ctx) error {
	losses, err := h.bot.Store().ListLostSales()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch lost sales",
		})
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"lostSales": losses,
		"count":     len(losses),
	})
}

// RecoverLostSale sends a win-back message for one lost sale.
func (h *AdminHandler) RecoverLostSale(c *fiber.Ctx) error {
	saleID := c.Params("saleID")

	var req struct {
		Message string `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	summary, err := h.bot.RecoverLostSale(saleID, req.Message)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"summary": summary,
	})
}

// Broadcast sends one message to a list of numbers.
func (h *AdminHandler) Broadcast(c *fiber.Ctx) error {
	var req struct {
		Phones  []string `json:"phones"`
		Message string   `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if len(req.Phones) == 0 || req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "phones and message are required",
		})
	}

	sent := h.bot.Broadcast(req.Phones, req.Message)
	return c.JSON(fiber.Map{
		"success": true,
		"sent":    sent,
		"total":   len(req.Phones),
	})
}
