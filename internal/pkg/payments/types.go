package payments

import "encoding/json"

// EventKind is the closed set of processor notification kinds this service
// understands. Dispatch switches over it exhaustively so that adding a kind is
// a compile-time decision; kinds outside the set are acknowledged and skipped.
type EventKind string

const (
	EventCheckoutCompleted       EventKind = "checkout_completed"
	EventSubscriptionRenewed     EventKind = "subscription_renewed"
	EventSubscriptionUpdated     EventKind = "subscription_updated"
	EventSubscriptionCancelled   EventKind = "subscription_cancelled"
	EventInvoicePaymentSucceeded EventKind = "invoice_payment_succeeded"
	EventInvoicePaymentFailed    EventKind = "invoice_payment_failed"
	EventPayoutAccountUpdated    EventKind = "payout_account_updated"
)

// ParseEventKind maps a raw event type string to a known kind.
func ParseEventKind(raw string) (EventKind, bool) {
	switch EventKind(raw) {
	case EventCheckoutCompleted, EventSubscriptionRenewed, EventSubscriptionUpdated,
		EventSubscriptionCancelled, EventInvoicePaymentSucceeded,
		EventInvoicePaymentFailed, EventPayoutAccountUpdated:
		return EventKind(raw), true
	default:
		return "", false
	}
}

// Envelope is the outer shape of every processor notification. Data stays raw
// until the kind-specific payload is decoded by the dispatcher.
type Envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    json.RawMessage `json:"data"`
}

// CheckoutCompletedPayload carries the data needed to create a subscription.
// Subscriber and creator ids are written into the checkout session metadata by
// the (out-of-scope) checkout flow and echoed back by the processor.
type CheckoutCompletedPayload struct {
	ProcessorSubscriptionID string `json:"subscription_id" validate:"required"`
	SubscriberID            uint   `json:"subscriber_id" validate:"required"`
	CreatorID               uint   `json:"creator_id" validate:"required"`
	Mode                    string `json:"mode"`
	CurrentPeriodEnd        int64  `json:"current_period_end" validate:"gte=0"`
}

// SubscriptionUpdatedPayload covers both renewal and update notifications.
type SubscriptionUpdatedPayload struct {
	ProcessorSubscriptionID string `json:"subscription_id" validate:"required"`
	Status                  string `json:"status" validate:"required,oneof=active past_due cancelled incomplete"`
	CurrentPeriodEnd        int64  `json:"current_period_end" validate:"gte=0"`
}

type SubscriptionCancelledPayload struct {
	ProcessorSubscriptionID string `json:"subscription_id" validate:"required"`
}

// InvoicePaymentSucceededPayload describes a captured invoice. The processor
// reports its own deducted fee directly; the split never re-derives it from
// rates to avoid drift against the processor's books.
type InvoicePaymentSucceededPayload struct {
	ProcessorInvoiceID      string `json:"invoice_id" validate:"required"`
	ProcessorSubscriptionID string `json:"subscription_id" validate:"required"`
	GrossAmountCents        int64  `json:"gross_amount_cents" validate:"required,gt=0"`
	ProcessorFeeCents       int64  `json:"processor_fee_cents" validate:"gte=0"`
	Currency                string `json:"currency" validate:"required,len=3"`
}

type InvoicePaymentFailedPayload struct {
	ProcessorSubscriptionID string `json:"subscription_id" validate:"required"`
}

// PayoutAccountUpdatedPayload syncs connected-account state onto the creator
// row. A bare field copy; eligibility is evaluated at transfer time.
type PayoutAccountUpdatedPayload struct {
	CreatorID       uint   `json:"creator_id" validate:"required"`
	PayoutAccountID string `json:"payout_account_id"`
	PayoutsEnabled  bool   `json:"payouts_enabled"`
}
