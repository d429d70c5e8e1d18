package payments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/fanforge/creatorpay/app/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SplitAmount divides the post-processor-fee amount between platform
// commission and creator earning. The rate is carried in basis points so the
// whole split stays in integer arithmetic; the commission is rounded half-up
// once and the earning is the exact remainder, so the two always sum to
// netOfFee. Note the commission base is the amount AFTER the processor's own
// fee, not the invoice total.
func SplitAmount(netOfFeeCents int64, rateBasisPoints int64) (commissionCents, earningCents int64) {
	commissionCents = (netOfFeeCents*rateBasisPoints + 5000) / 10000
	earningCents = netOfFeeCents - commissionCents
	return commissionCents, earningCents
}

// HandleInvoicePaid runs the revenue pipeline for one captured invoice:
// resolve the subscription, split the settled amount, write the ledger entry,
// then (first delivery only) initiate the payout transfer and accrue earnings.
// The ledger insert is the sole idempotency boundary - a replayed invoice
// event converges to a no-op at that insert and never re-triggers the
// downstream effects.
func (s *Service) HandleInvoicePaid(ctx context.Context, p *InvoicePaymentSucceededPayload) error {
	if p.ProcessorFeeCents > p.GrossAmountCents {
		return fmt.Errorf("%w: processor fee %d exceeds gross %d for invoice %s",
			ErrPayloadValidation, p.ProcessorFeeCents, p.GrossAmountCents, p.ProcessorInvoiceID)
	}

	sub, err := s.repo.GetSubscriptionByProcessorID(p.ProcessorSubscriptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Fabricating a ledger entry for an unknown subscription would hide
		// that the local store fell behind the processor. Surface it instead.
		return fmt.Errorf("%w: subscription %s for invoice %s", ErrReferentialIntegrity, p.ProcessorSubscriptionID, p.ProcessorInvoiceID)
	}
	if err != nil {
		return err
	}

	netOfFee := p.GrossAmountCents - p.ProcessorFeeCents
	commission, earning := SplitAmount(netOfFee, s.cfg.CommissionRateBPS)

	entry := &models.RevenueLedgerEntry{
		EntryRef:                uuid.NewString(),
		SubscriptionID:          sub.ID,
		CreatorID:               sub.CreatorID,
		ProcessorInvoiceID:      p.ProcessorInvoiceID,
		ProcessorSubscriptionID: p.ProcessorSubscriptionID,
		GrossAmountCents:        p.GrossAmountCents,
		ProcessorFeeCents:       p.ProcessorFeeCents,
		PlatformCommissionCents: commission,
		CreatorEarningCents:     earning,
		Currency:                strings.ToLower(p.Currency),
	}
	created, stored, err := s.repo.CreateLedgerEntryIfNotExists(entry)
	if err != nil {
		return fmt.Errorf("write ledger entry for invoice %s: %w", p.ProcessorInvoiceID, err)
	}
	if !created {
		log.Printf("payments: ledger entry for invoice %s already exists, replay ignored", p.ProcessorInvoiceID)
		return nil
	}

	// From here on the revenue is durably recognized. Transfer and accrual
	// failures are recorded for out-of-band handling, never propagated: a
	// retry response would make the sender redeliver an already-booked invoice.
	s.initiatePayout(ctx, stored)

	if err := s.repo.AddLifetimeEarnings(stored.CreatorID, stored.CreatorEarningCents); err != nil {
		log.Printf("payments: ERROR accruing %d %s to creator %d lifetime earnings (entry %s): %v",
			stored.CreatorEarningCents, stored.Currency, stored.CreatorID, stored.EntryRef, err)
	}
	return nil
}
