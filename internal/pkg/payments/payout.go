package payments

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/fanforge/creatorpay/app/models"
	"github.com/google/uuid"
)

// ErrTransferResolved is returned when an ops retry targets a failed transfer
// that already went through.
var ErrTransferResolved = errors.New("failed transfer is already resolved")

// initiatePayout moves the creator earning of a freshly written ledger entry
// to the creator's connected payout account. It runs strictly after the ledger
// commit and must not fail the webhook: every outcome here is either a logged
// skip or a durable FailedTransfer record.
func (s *Service) initiatePayout(ctx context.Context, entry *models.RevenueLedgerEntry) {
	if entry.CreatorEarningCents <= 0 {
		// Fee-only invoices or a full commission rate leave nothing to move.
		log.Printf("payments: payout skipped for entry %s, creator earning is zero", entry.EntryRef)
		return
	}

	creator, err := s.repo.GetCreatorByID(entry.CreatorID)
	if err != nil {
		s.recordFailedTransfer(entry, "", fmt.Sprintf("creator lookup failed: %v", err))
		return
	}

	if !creator.PayoutReady() {
		// Expected for creators still onboarding. The ledger entry and the
		// earnings accrual stand; reconciliation picks the balance up once
		// the payout account is ready.
		log.Printf("payments: payout skipped for creator %d, account not ready (entry %s, %d %s withheld)",
			creator.ID, entry.EntryRef, entry.CreatorEarningCents, entry.Currency)
		return
	}

	req := transferRequestForEntry(entry, creator.PayoutAccountID)
	if _, err := s.processor.CreateTransfer(ctx, req); err != nil {
		log.Printf("payments: transfer failed for creator %d (entry %s): %v", creator.ID, entry.EntryRef, err)
		s.recordFailedTransfer(entry, creator.PayoutAccountID, err.Error())
		return
	}
}

// RetryFailedTransfer re-attempts one failed transfer from the ops API.
// Success resolves the record; another failure bumps its retry counter.
func (s *Service) RetryFailedTransfer(ctx context.Context, failedTransferID uint) (*models.FailedTransfer, error) {
	ft, err := s.repo.GetFailedTransferByID(failedTransferID)
	if err != nil {
		return nil, err
	}
	if ft.ResolvedAt != nil {
		return ft, ErrTransferResolved
	}

	creator, err := s.repo.GetCreatorByID(ft.CreatorID)
	if err != nil {
		return ft, err
	}
	if !creator.PayoutReady() {
		return ft, fmt.Errorf("creator %d payout account is not ready", creator.ID)
	}

	req := TransferRequest{
		AmountCents:          ft.AmountCents,
		Currency:             ft.Currency,
		DestinationAccountID: creator.PayoutAccountID,
		TransferGroup:        ft.ProcessorSubscriptionID,
		Description:          "Subscription revenue for invoice " + ft.ProcessorInvoiceID,
		Metadata: map[string]string{
			"creator_id":      fmt.Sprintf("%d", ft.CreatorID),
			"invoice_id":      ft.ProcessorInvoiceID,
			"subscription_id": ft.ProcessorSubscriptionID,
			"transfer_ref":    ft.TransferRef,
		},
	}
	if _, err := s.processor.CreateTransfer(ctx, req); err != nil {
		if markErr := s.repo.MarkFailedTransferRetried(ft.ID, err.Error()); markErr != nil {
			log.Printf("payments: ERROR updating failed transfer %s after retry: %v", ft.TransferRef, markErr)
		}
		return ft, err
	}

	if err := s.repo.ResolveFailedTransfer(ft.ID); err != nil {
		return ft, err
	}
	return s.repo.GetFailedTransferByID(ft.ID)
}

// ListFailedTransfers returns unresolved failed transfers for the ops surface.
func (s *Service) ListFailedTransfers(ctx context.Context, limit int) ([]models.FailedTransfer, error) {
	_ = ctx
	return s.repo.ListFailedTransfers(limit)
}

// GetLedgerEntryByInvoiceID exposes ledger lookups to the ops surface.
func (s *Service) GetLedgerEntryByInvoiceID(ctx context.Context, processorInvoiceID string) (*models.RevenueLedgerEntry, error) {
	_ = ctx
	return s.repo.GetLedgerEntryByInvoiceID(processorInvoiceID)
}

func (s *Service) recordFailedTransfer(entry *models.RevenueLedgerEntry, destination, errorDetail string) {
	ft := &models.FailedTransfer{
		TransferRef:             uuid.NewString(),
		CreatorID:               entry.CreatorID,
		ProcessorInvoiceID:      entry.ProcessorInvoiceID,
		ProcessorSubscriptionID: entry.ProcessorSubscriptionID,
		DestinationAccountID:    destination,
		AmountCents:             entry.CreatorEarningCents,
		Currency:                entry.Currency,
		ErrorDetail:             errorDetail,
		RetryCount:              0,
	}
	if err := s.repo.CreateFailedTransfer(ft); err != nil {
		// Worst case: the failure is only in the logs. Alerting keys on this line.
		log.Printf("payments: ERROR persisting failed transfer for entry %s (%d %s to creator %d): %v",
			entry.EntryRef, entry.CreatorEarningCents, entry.Currency, entry.CreatorID, err)
	}
}

func transferRequestForEntry(entry *models.RevenueLedgerEntry, destination string) TransferRequest {
	return TransferRequest{
		AmountCents:          entry.CreatorEarningCents,
		Currency:             entry.Currency,
		DestinationAccountID: destination,
		TransferGroup:        entry.ProcessorSubscriptionID,
		Description:          "Subscription revenue for invoice " + entry.ProcessorInvoiceID,
		Metadata: map[string]string{
			"creator_id":      fmt.Sprintf("%d", entry.CreatorID),
			"invoice_id":      entry.ProcessorInvoiceID,
			"subscription_id": entry.ProcessorSubscriptionID,
			"entry_ref":       entry.EntryRef,
		},
	}
}
