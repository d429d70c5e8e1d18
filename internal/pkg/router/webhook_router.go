package router

import (
	"github.com/fanforge/creatorpay/app/controllers"
	"github.com/gofiber/fiber/v2"
)

type WebhookRouter struct {
}

// InstallRouter mounts the processor notification endpoint. No rate limiter
// here: the sender owns retry scheduling and throttling it would surface as
// spurious delivery failures on its side.
func (h WebhookRouter) InstallRouter(app *fiber.App) {
	app.Post("/webhooks/payments", controllers.HandlePaymentWebhook)
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}
