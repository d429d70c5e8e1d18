package payments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/fanforge/creatorpay/app/models"
	"gorm.io/gorm"
)

// handleCheckoutCompleted creates the subscription row in active state. The
// insert is keyed on the processor subscription id and carries the subscriber
// count increment in its transaction, so a redelivered checkout event neither
// duplicates the row nor double-increments the count.
func (s *Service) handleCheckoutCompleted(ctx context.Context, env *Envelope, p *CheckoutCompletedPayload) error {
	_ = ctx
	if p.Mode != "" && p.Mode != "subscription" {
		// One-time payments (tips etc.) carry no subscription to track.
		log.Printf("payments: checkout %s is not subscription mode, skipping", p.ProcessorSubscriptionID)
		return nil
	}

	sub := &models.Subscription{
		SubscriberID:            p.SubscriberID,
		CreatorID:               p.CreatorID,
		ProcessorSubscriptionID: p.ProcessorSubscriptionID,
		Status:                  models.SubscriptionStatusActive,
		CurrentPeriodEnd:        unixToTimePtr(p.CurrentPeriodEnd),
		RawPayloadJSON:          string(env.Data),
	}
	created, _, err := s.repo.CreateSubscriptionIfNotExists(sub)
	if err != nil {
		return fmt.Errorf("create subscription %s: %w", p.ProcessorSubscriptionID, err)
	}
	if !created {
		log.Printf("payments: subscription %s already exists, checkout replay ignored", p.ProcessorSubscriptionID)
	}
	return nil
}

// handleSubscriptionUpdated copies the processor-reported status verbatim and
// refreshes the billing period. When the local row is missing (e.g. the
// checkout event was lost) the subscription is resolved from the processor
// before giving up; only then is the event a referential failure.
func (s *Service) handleSubscriptionUpdated(ctx context.Context, p *SubscriptionUpdatedPayload) error {
	sub, err := s.repo.GetSubscriptionByProcessorID(p.ProcessorSubscriptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sub, err = s.resolveSubscriptionFromProcessor(ctx, p.ProcessorSubscriptionID)
	}
	if err != nil {
		return err
	}

	if sub.Status == models.SubscriptionStatusCancelled {
		// Cancelled is terminal; a new processor subscription gets a new row.
		log.Printf("payments: subscription %s is cancelled, ignoring status update to %q", p.ProcessorSubscriptionID, p.Status)
		return nil
	}

	if err := s.repo.UpdateSubscriptionStatus(sub.ID, p.Status, unixToTimePtr(p.CurrentPeriodEnd)); err != nil {
		return fmt.Errorf("update subscription %s: %w", p.ProcessorSubscriptionID, err)
	}
	return nil
}

// handleInvoicePaymentFailed moves an active subscription to past_due. The
// subscriber stays counted until an explicit cancellation arrives.
func (s *Service) handleInvoicePaymentFailed(ctx context.Context, p *InvoicePaymentFailedPayload) error {
	_ = ctx
	sub, err := s.repo.GetSubscriptionByProcessorID(p.ProcessorSubscriptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: subscription %s", ErrReferentialIntegrity, p.ProcessorSubscriptionID)
	}
	if err != nil {
		return err
	}

	if sub.Status != models.SubscriptionStatusActive {
		return nil
	}
	if err := s.repo.UpdateSubscriptionStatus(sub.ID, models.SubscriptionStatusPastDue, nil); err != nil {
		return fmt.Errorf("mark subscription %s past_due: %w", p.ProcessorSubscriptionID, err)
	}
	return nil
}

// handleSubscriptionCancelled transitions to the terminal state and decrements
// the subscriber count exactly once, in the same transaction; the conditional
// cancel in the store absorbs duplicate deliveries.
func (s *Service) handleSubscriptionCancelled(ctx context.Context, p *SubscriptionCancelledPayload) error {
	_ = ctx
	sub, err := s.repo.GetSubscriptionByProcessorID(p.ProcessorSubscriptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: subscription %s", ErrReferentialIntegrity, p.ProcessorSubscriptionID)
	}
	if err != nil {
		return err
	}

	transitioned, err := s.repo.CancelSubscription(sub.ID, sub.CreatorID)
	if err != nil {
		return fmt.Errorf("cancel subscription %s: %w", p.ProcessorSubscriptionID, err)
	}
	if !transitioned {
		log.Printf("payments: subscription %s already cancelled, duplicate delivery ignored", p.ProcessorSubscriptionID)
	}
	return nil
}

// handlePayoutAccountUpdated syncs connected-account state onto the creator
// row. A plain field copy; nothing here gates or triggers transfers directly.
func (s *Service) handlePayoutAccountUpdated(ctx context.Context, p *PayoutAccountUpdatedPayload) error {
	_ = ctx
	if _, err := s.repo.GetCreatorByID(p.CreatorID); errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: creator %d", ErrReferentialIntegrity, p.CreatorID)
	} else if err != nil {
		return err
	}
	return s.repo.UpdateCreatorPayoutAccount(p.CreatorID, p.PayoutAccountID, p.PayoutsEnabled)
}

// resolveSubscriptionFromProcessor recreates a subscription row from the
// processor's view of it. The checkout metadata carries the internal ids; if
// they are absent the local store has genuinely fallen behind and the event is
// surfaced as a referential failure for manual reconciliation.
func (s *Service) resolveSubscriptionFromProcessor(ctx context.Context, processorSubscriptionID string) (*models.Subscription, error) {
	remote, err := s.processor.GetSubscription(ctx, processorSubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("%w: subscription %s (processor lookup failed: %v)", ErrReferentialIntegrity, processorSubscriptionID, err)
	}

	subscriberID := parseMetadataID(remote.Metadata, "subscriber_id")
	creatorID := parseMetadataID(remote.Metadata, "creator_id")
	if subscriberID == 0 || creatorID == 0 {
		return nil, fmt.Errorf("%w: subscription %s (processor metadata missing internal ids)", ErrReferentialIntegrity, processorSubscriptionID)
	}

	status := remote.Status
	if !models.IsKnownSubscriptionStatus(status) {
		status = models.SubscriptionStatusIncomplete
	}
	sub := &models.Subscription{
		SubscriberID:            subscriberID,
		CreatorID:               creatorID,
		ProcessorSubscriptionID: processorSubscriptionID,
		Status:                  status,
		CurrentPeriodEnd:        unixToTimePtr(remote.CurrentPeriodEnd),
	}
	created, stored, err := s.repo.CreateSubscriptionIfNotExists(sub)
	if err != nil {
		return nil, err
	}
	if created {
		log.Printf("payments: recovered subscription %s from processor state", processorSubscriptionID)
	}
	return stored, nil
}

func parseMetadataID(metadata map[string]string, key string) uint {
	v, err := strconv.ParseUint(metadata[key], 10, 32)
	if err != nil {
		return 0
	}
	return uint(v)
}

func unixToTimePtr(unix int64) *time.Time {
	if unix <= 0 {
		return nil
	}
	t := time.Unix(unix, 0).UTC()
	return &t
}
