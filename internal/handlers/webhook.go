package handlers

import (
	"log"
	"strings"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/bot"
	"github.com/gofiber/fiber/v2"
)

// WhatsAppHandler receives WhatsApp webhook requests and feeds them to the bot.
type WhatsAppHandler struct {
	bot *bot.Bot
}

// NewWhatsAppHandler creates a new WhatsApp webhook handler.
func NewWhatsAppHandler(b *bot.Bot) *WhatsAppHandler {
	return &WhatsAppHandler{bot: b}
}

// TwilioWebhookPayload represents an incoming WhatsApp message from Twilio.
type TwilioWebhookPayload struct {
	MessageSid        string `form:"MessageSid"`
	AccountSid        string `form:"AccountSid"`
	From              string `form:"From"` // whatsapp:+244900000000
	To                string `form:"To"`
	Body              string `form:"Body"`
	NumMedia          string `form:"NumMedia"`
	MediaUrl0         string `form:"MediaUrl0"`
	MediaContentType0 string `form:"MediaContentType0"`
}

// HandleWebhook processes incoming WhatsApp messages. It always returns
// 200: a non-2xx makes Twilio retry the same message, and a crashed
// handler must never loop a customer message back at us.
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload

	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		return c.SendStatus(fiber.StatusOK)
	}

	from := strings.TrimPrefix(payload.From, "whatsapp:")
	if from == "" || (payload.Body == "" && payload.NumMedia == "0") {
		// Status callback or empty event, nothing to do.
		return c.SendStatus(fiber.StatusOK)
	}

	log.Printf("📱 WhatsApp message from %s: %s", from, payload.Body)

	msg := bot.IncomingMessage{
		From: from,
		Text: payload.Body,
	}
	if payload.NumMedia != "" && payload.NumMedia != "0" {
		msg.MediaURL = payload.MediaUrl0
		msg.MediaType = payload.MediaContentType0
	}

	h.bot.HandleIncoming(c.Context(), msg)

	return c.SendStatus(fiber.StatusOK)
}

// TestWebhookPayload is the JSON shape accepted in development, where no
// Twilio signature is present. It can also carry a quoted message, which
// the form webhook cannot.
type TestWebhookPayload struct {
	From       string `json:"from"`
	Message    string `json:"message"`
	MediaURL   string `json:"media_url,omitempty"`
	MediaType  string `json:"media_type,omitempty"`
	QuotedText string `json:"quoted_text,omitempty"`
}

// HandleTestWebhook processes test WhatsApp messages (for development).
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload

	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	log.Printf("🧪 Test webhook from %s: %s", payload.From, payload.Message)

	h.bot.HandleIncoming(c.Context(), bot.IncomingMessage{
		From:       payload.From,
		Text:       payload.Message,
		MediaURL:   payload.MediaURL,
		MediaType:  payload.MediaType,
		QuotedText: payload.QuotedText,
	})

	return c.JSON(fiber.Map{"status": "processed"})
}
