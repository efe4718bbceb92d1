package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"acmportal/config"
	"acmportal/database"
	"acmportal/handlers"
	"acmportal/middleware"
	"acmportal/notify"
	"acmportal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	if cfg.IsProduction() && cfg.CORSOrigins == "http://localhost:3000" {
		log.Println("WARNING: CORS_ORIGINS not properly configured for production")
	}

	// Initialize database
	logLevel := gormlogger.Info
	if cfg.IsProduction() {
		logLevel = gormlogger.Warn
	}
	db, err := database.Connect(cfg.Database, logLevel)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	svc, err := services.New(db, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Outbox delivery and payment reconciliation
	dispatcher := services.NewDispatcher(svc.Queue, notify.LogSender{}, svc.Ledger, cfg.NotificationPollInterval, cfg.ReconcileInterval)
	dispatcher.Start()
	defer dispatcher.Stop()

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    4 * 1024 * 1024, // 4MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))
	app.Use(middleware.RateLimit(300, time.Minute))

	auth := middleware.NewAuth(db, cfg.JWTSecret)
	handlers.New(svc.Catalog, svc.Teams, svc.Registrations, svc.Ledger, auth, cfg).Register(app)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("🛑 Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("❌ Server shutdown failed: %v", err)
		}
	}()

	log.Printf("🚀 HTTP server starting on port %s", cfg.Port)
	log.Printf("📊 Environment: %s", cfg.AppEnv)
	log.Printf("💳 Payment gateway: %s", cfg.Payment.Gateway)
	log.Printf("📧 Notification poll interval: %s", cfg.NotificationPollInterval)

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start HTTP server:", err)
	}
	log.Println("✅ Server stopped")
}
