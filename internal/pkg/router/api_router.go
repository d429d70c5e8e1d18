package router

import (
	"github.com/fanforge/creatorpay/app/controllers"
	"github.com/fanforge/creatorpay/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
}

// InstallRouter mounts the operational JSON API used by reconciliation
// tooling: failed-transfer triage and ledger lookups.
func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(), middleware.OpsTokenMiddleware())

	v1 := api.Group("/v1")
	v1.Get("/payouts/failed", controllers.HandleListFailedTransfers)
	v1.Post("/payouts/failed/:id/retry", controllers.HandleRetryFailedTransfer)
	v1.Get("/ledger/:invoiceID", controllers.HandleGetLedgerEntry)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
