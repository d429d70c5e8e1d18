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

	cfg, err := payments.LoadConfig()
	if err != nil {
		log.Fatalf("payments config: %v", err)
	}
	payments.SetConfig(cfg)

	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20,
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
