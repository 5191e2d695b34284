package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"

	"github.com/aliattia10/paseo-backend/internal/config"
	"github.com/aliattia10/paseo-backend/internal/database"
	"github.com/aliattia10/paseo-backend/internal/jobs"
	"github.com/aliattia10/paseo-backend/internal/routes"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := database.ConnectDB(cfg.DBUrl); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB()

	app := fiber.New(fiber.Config{
		AppName: "Paseo API",
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	paymentService := routes.RegisterRoutes(app, cfg, database.DB)

	scheduler := cron.New()
	if _, err := scheduler.AddJob("@hourly", jobs.NewAutoReleaseJob(paymentService)); err != nil {
		log.Fatalf("Failed to schedule auto release job: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Printf("Starting server on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
