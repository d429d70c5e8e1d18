package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fanforge/creatorpay/internal/pkg/database"
	"github.com/fanforge/creatorpay/internal/pkg/payments"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HandleListFailedTransfers returns unresolved failed transfers, oldest first,
// for operational alerting and manual reconciliation.
func HandleListFailedTransfers(c *fiber.Ctx) error {
	svc := newPaymentsService()
	ctx, cancel := opsContext()
	defer cancel()

	transfers, err := svc.ListFailedTransfers(ctx, c.QueryInt("limit", 100))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed_transfer_lookup_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"failed_transfers": transfers, "count": len(transfers)})
}

// HandleRetryFailedTransfer re-attempts a single failed transfer.
func HandleRetryFailedTransfer(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_failed_transfer_id"})
	}

	svc := newPaymentsService()
	ctx, cancel := opsContext()
	defer cancel()

	ft, err := svc.RetryFailedTransfer(ctx, uint(id))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "failed_transfer_not_found"})
		case errors.Is(err, payments.ErrTransferResolved):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already_resolved", "failed_transfer": ft})
		default:
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "transfer_retry_failed", "detail": err.Error(), "failed_transfer": ft})
		}
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "failed_transfer": ft})
}

// HandleGetLedgerEntry looks a ledger entry up by processor invoice id.
func HandleGetLedgerEntry(c *fiber.Ctx) error {
	invoiceID := strings.TrimSpace(c.Params("invoiceID"))
	if invoiceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_invoice_id"})
	}

	svc := newPaymentsService()
	ctx, cancel := opsContext()
	defer cancel()

	entry, err := svc.GetLedgerEntryByInvoiceID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "ledger_entry_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "ledger_lookup_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ledger_entry": entry})
}

// newPaymentsService is a package variable so tests can substitute an
// in-memory store behind the handlers.
var newPaymentsService = func() *payments.Service {
	return payments.NewServiceFromDB(database.GetDB(), payments.GetConfig())
}

func opsContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 15*time.Second)
}
