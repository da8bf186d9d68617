package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/dariomilagre8-bot/vendazap-backend/database"
	"github.com/dariomilagre8-bot/vendazap-backend/internal/bot"
	"github.com/dariomilagre8-bot/vendazap-backend/internal/jobs"
	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
	"github.com/dariomilagre8-bot/vendazap-backend/internal/routes"
	"github.com/dariomilagre8-bot/vendazap-backend/internal/services"
	"github.com/dariomilagre8-bot/vendazap-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		err := godotenv.Load(".env")
		if err != nil {
			err = godotenv.Load("environments/.env.development")
			if err != nil {
				log.Println("⚠️  No .env file found - checking environment variables")
			}
		}
	}

	// Initialize storage
	var store storage.Store

	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.SessionRecord{},
			&models.Customer{},
			&models.Profile{},
			&models.LostSale{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL database storage")
	}

	// Optional sales mirror (secondary database)
	var mirror storage.Mirror
	if mirrorDB := database.ConnectMirror(); mirrorDB != nil {
		if err := mirrorDB.AutoMigrate(&models.Sale{}, &models.Customer{}); err != nil {
			log.Printf("⚠️  Mirror migration failed, continuing without mirror: %v", err)
		} else {
			mirror = storage.NewDatabaseStore(mirrorDB)
			log.Println("✅ Sales mirror connected")
		}
	}

	// Messaging gateway
	var gateway services.Gateway
	var err error
	switch os.Getenv("GATEWAY_DRIVER") {
	case "whatsmeow":
		gateway, err = services.NewMeowGateway()
		if err != nil {
			log.Fatal("Failed to initialize whatsmeow gateway:", err)
		}
		log.Println("✅ WhatsApp Web gateway initialized")
	default:
		gateway, err = services.NewTwilioGateway()
		if err != nil {
			log.Fatal("Failed to initialize Twilio gateway:", err)
		}
		log.Println("✅ Twilio gateway initialized")
	}
	if err := gateway.Connect(); err != nil {
		log.Fatal("Gateway connection failed:", err)
	}

	// Optional collaborators: the bot degrades without them
	var llm bot.Generator
	if llmService, err := services.NewLLMService(); err != nil {
		log.Printf("⚠️  LLM disabled: %v", err)
	} else {
		llm = llmService
		log.Println("✅ LLM service initialized")
	}

	var mailer bot.CredentialMailer
	if emailService, err := services.NewEmailService(); err != nil {
		log.Printf("⚠️  Email fallback disabled: %v", err)
	} else {
		mailer = emailService
		log.Println("✅ Email service initialized")
	}

	operators := strings.Split(os.Getenv("OPERATOR_NUMBERS"), ",")
	if len(operators) == 1 && operators[0] == "" {
		log.Println("⚠️  OPERATOR_NUMBERS not set - supervisor commands disabled")
		operators = nil
	}

	salesBot := bot.New(bot.Config{
		Store:     store,
		Mirror:    mirror,
		Gateway:   gateway,
		LLM:       llm,
		Mailer:    mailer,
		Operators: operators,
	})

	// Restore persisted sessions and start the batch flush loop
	if err := salesBot.Sessions().Restore(time.Now()); err != nil {
		log.Printf("⚠️  Session restore failed, starting empty: %v", err)
	}
	salesBot.Sessions().StartFlushLoop()

	// Start the maintenance sweeps
	sweepJob := jobs.NewSweepJob(salesBot)
	sweepJob.Start()

	log.Println("✅ All services initialized and scheduled jobs started")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "VendaZap Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	routes.SetupRoutes(app, salesBot)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		log.Println("⏹️  Stopping sweep jobs...")
		sweepJob.Stop()
		log.Println("⏹️  Flushing sessions...")
		salesBot.Sessions().Stop()
		salesBot.Sessions().FlushNow()
		log.Println("⏹️  Closing gateway...")
		gateway.Close()
		log.Println("⏹️  Shutting down server...")
		_ = app.Shutdown()
	}()

	log.Println("========================================")
	log.Printf("🚀 VendaZap Backend starting on port %s", port)
	log.Printf("📊 Storage: %s", storageType())
	log.Printf("📱 Gateway: %s", gatewayType())
	log.Printf("🌍 Environment: %s", environment())
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

func environment() string {
	if os.Getenv("INSTANCE_CONNECTION_NAME") != "" {
		return "Production (Cloud Run)"
	}
	return "Development (Local)"
}

func storageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}

func gatewayType() string {
	if os.Getenv("GATEWAY_DRIVER") == "whatsmeow" {
		return "WhatsApp Web (whatsmeow)"
	}
	return "Twilio"
}
