package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/fanforge/creatorpay/internal/pkg/database"
	"github.com/fanforge/creatorpay/internal/pkg/env"
	"github.com/fanforge/creatorpay/internal/pkg/payments"
	"github.com/fanforge/creatorpay/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4100")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()

	// Fail closed before accepting any traffic: a production deployment
	// without a webhook secret must not come up at all.
	cfg, err := payments.LoadConfig()
	if err != nil {
		log.Fatalf("payments config: %v", err)
	}
	payments.SetConfig(cfg)

	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20, // processor payloads are small; 1 MiB is generous
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
