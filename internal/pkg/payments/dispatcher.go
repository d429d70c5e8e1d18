package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// Dispatch decodes the verified envelope and routes it to exactly one handler.
// A nil return means the event may be acknowledged; a non-nil return signals
// the sender to redeliver. Handlers must therefore only fail before their
// durable commit - effects that fail after it (payout transfers, accrual) are
// recorded out-of-band and the event still acknowledges, because redelivery
// safety rests entirely on the ledger's invoice-id idempotency key.
func (s *Service) Dispatch(ctx context.Context, env *Envelope) error {
	kind, ok := ParseEventKind(env.Type)
	if !ok {
		// Forward compatibility: new processor event kinds are acknowledged untouched.
		log.Printf("payments: ignoring unknown event kind %q (event %s)", env.Type, env.ID)
		return nil
	}

	switch kind {
	case EventCheckoutCompleted:
		var p CheckoutCompletedPayload
		if err := decodePayload(env.Data, &p); err != nil {
			return err
		}
		return s.handleCheckoutCompleted(ctx, env, &p)

	case EventSubscriptionRenewed, EventSubscriptionUpdated:
		var p SubscriptionUpdatedPayload
		if err := decodePayload(env.Data, &p); err != nil {
			return err
		}
		return s.handleSubscriptionUpdated(ctx, &p)

	case EventSubscriptionCancelled:
		var p SubscriptionCancelledPayload
		if err := decodePayload(env.Data, &p); err != nil {
			return err
		}
		return s.handleSubscriptionCancelled(ctx, &p)

	case EventInvoicePaymentSucceeded:
		var p InvoicePaymentSucceededPayload
		if err := decodePayload(env.Data, &p); err != nil {
			return err
		}
		return s.HandleInvoicePaid(ctx, &p)

	case EventInvoicePaymentFailed:
		var p InvoicePaymentFailedPayload
		if err := decodePayload(env.Data, &p); err != nil {
			return err
		}
		return s.handleInvoicePaymentFailed(ctx, &p)

	case EventPayoutAccountUpdated:
		var p PayoutAccountUpdatedPayload
		if err := decodePayload(env.Data, &p); err != nil {
			return err
		}
		return s.handlePayoutAccountUpdated(ctx, &p)
	}

	// Unreachable: ParseEventKind only returns kinds matched above.
	return fmt.Errorf("payments: no handler for event kind %q", kind)
}

// decodePayload unmarshals and validates a kind-specific payload. A recognized
// kind with a malformed payload is a retryable failure, unlike unknown kinds.
func decodePayload(raw json.RawMessage, dst interface{}) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrPayloadValidation, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrPayloadValidation, err)
	}
	return nil
}
