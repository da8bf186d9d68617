package handlers

import (
	"github.com/dariomilagre8-bot/vendazap-backend/internal/bot"
	"github.com/gofiber/fiber/v2"
)

// CheckoutHandler serves the public web checkout: customers who cannot send
// a PDF over WhatsApp land here to review the order and upload the proof.
type CheckoutHandler struct {
	bot *bot.Bot
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(b *bot.Bot) *CheckoutHandler {
	return &CheckoutHandler{bot: b}
}

// GetOrder returns the live cart for phone so the checkout page can render it.
func (h *CheckoutHandler) GetOrder(c *fiber.Ctx) error {
	phone := c.Params("phone")

	sess := h.bot.Sessions().Get(phone)
	if sess == nil || len(sess.Cart) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No order found for this number",
		})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"clientName": sess.ClientName,
		"cart":       sess.Cart,
		"total":      sess.TotalValue,
		"step":       sess.Step.String(),
	})
}

// SubmitProof attaches an uploaded payment proof to the order for phone.
func (h *CheckoutHandler) SubmitProof(c *fiber.Ctx) error {
	phone := c.Params("phone")

	var req struct {
		ProofURL string `json:"proof_url"`
	}
	if err := c.BodyParser(&req); err != nil || req.ProofURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "proof_url is required",
		})
	}

	if err := h.bot.SubmitProof(phone, req.ProofURL); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"status":  "under_review",
	})
}
