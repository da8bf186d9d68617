package routes

import (
	"os"
	"time"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/bot"
	"github.com/dariomilagre8-bot/vendazap-backend/internal/handlers"
	"github.com/dariomilagre8-bot/vendazap-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all API routes.
func SetupRoutes(app *fiber.App, b *bot.Bot) {
	whatsappHandler := handlers.NewWhatsAppHandler(b)
	adminHandler := handlers.NewAdminHandler(b)
	checkoutHandler := handlers.NewCheckoutHandler(b)

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "VendaZap Backend",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"health":        "/health",
				"webhook":       "/webhook/whatsapp",
				"test_whatsapp": "/test/whatsapp",
				"checkout":      "/checkout/:phone",
				"admin":         "/admin",
			},
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":          "healthy",
			"version":         "1.0.0",
			"active_sessions": b.Sessions().Count(),
			"timestamp":       time.Now(),
		})
	})

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")

	// WhatsApp webhook, environment-aware validation
	if os.Getenv("ENVIRONMENT") == "development" || os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true" {
		webhooks.Post("/whatsapp", whatsappHandler.HandleWebhook)
		if os.Getenv("ENVIRONMENT") == "development" {
			println("⚠️  WhatsApp webhook validation DISABLED for development")
		}
	} else {
		webhooks.Post("/whatsapp", middleware.ValidateTwilioSignature(), whatsappHandler.HandleWebhook)
	}

	// ========== TEST ROUTES (Development Only) ==========
	if os.Getenv("ENVIRONMENT") == "development" {
		app.Post("/test/whatsapp", whatsappHandler.HandleTestWebhook)
	}

	// ========== PUBLIC CHECKOUT ==========
	checkout := app.Group("/checkout")
	checkout.Get("/:phone", checkoutHandler.GetOrder)
	checkout.Post("/:phone/proof", checkoutHandler.SubmitProof)

	// ========== ADMIN ROUTES ==========
	app.Post("/admin/login", handlers.HandleAdminLogin)

	admin := app.Group("/admin", middleware.RequireAdmin())
	admin.Get("/stats", adminHandler.GetStats)
	admin.Get("/verifications", adminHandler.GetPendingVerifications)
	admin.Post("/verify/:phone", adminHandler.UpdateVerification)
	admin.Get("/stock", adminHandler.GetStock)
	admin.Post("/stock", adminHandler.CreateProfile)
	admin.Get("/lost-sales", adminHandler.GetLostSales)
	admin.Post("/lost-sales/:saleID/recover", adminHandler.RecoverLostSale)
	admin.Post("/broadcast", adminHandler.Broadcast)
}
