package controllers

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/fanforge/creatorpay/app/models"
	"github.com/fanforge/creatorpay/internal/pkg/payments"
	"github.com/gofiber/fiber/v2"
)

const paymentSignatureHeader = "X-Payment-Signature"

// HandlePaymentWebhook is the single inbound endpoint for processor
// notifications. Response codes drive the sender's retry scheduling: 400 for
// signature/parse failures (the sender will not redeliver tampered requests),
// 500 for validated events that failed before their durable commit, 200 for
// everything that committed - including replays and post-commit transfer
// failures, which are recorded out-of-band.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	cfg := payments.GetConfig()

	signatureValid := false
	if cfg.VerificationDisabled {
		log.Print("payments: accepting UNVERIFIED webhook event - verification is disabled")
	} else {
		signatureValid = payments.VerifyWebhookSignature(rawBody, c.Get(paymentSignatureHeader), cfg.WebhookSecret, cfg.SignatureTolerance, time.Now())
		if !signatureValid {
			// Rejected before any store mutation; which check failed stays internal.
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
		}
	}

	var envelope payments.Envelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	svc := newPaymentsService()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, stored, err := svc.RecordWebhookEvent(ctx, payments.WebhookEventInput{
		Provider:        models.PaymentProviderFanPay,
		ProviderEventID: envelope.ID,
		EventType:       envelope.Type,
		PayloadJSON:     string(rawBody),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created && stored.Processed() {
		// Transport-level replay of an event that already completed.
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}

	// First delivery, or a redelivery of an event that previously failed -
	// reprocessing the latter is safe because every revenue effect sits
	// behind the invoice-id idempotency key.
	dispatchErr := svc.Dispatch(ctx, &envelope)
	if markErr := svc.MarkWebhookProcessed(ctx, stored.ID, dispatchErr); markErr != nil {
		log.Printf("payments: marking webhook event %d processed failed: %v", stored.ID, markErr)
	}
	if dispatchErr != nil {
		log.Printf("payments: event %s (%s) failed: %v", envelope.ID, envelope.Type, dispatchErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event_processing_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
