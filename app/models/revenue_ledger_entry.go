package models

import "time"

// RevenueLedgerEntry records the split of one captured invoice into processor
// fee, platform commission and creator earning, all in minor currency units.
// The unique index on ProcessorInvoiceID is the business-level idempotency
// boundary for all revenue effects. Entries are immutable once written;
// corrections are new entries (e.g. negative refund entries), never edits.
type RevenueLedgerEntry struct {
	ID                      uint      `gorm:"primaryKey" json:"id"`
	EntryRef                string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"entry_ref"`
	SubscriptionID          uint      `gorm:"not null;index" json:"subscription_id"`
	CreatorID               uint      `gorm:"not null;index" json:"creator_id"`
	ProcessorInvoiceID      string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_revenue_ledger_invoice_id" json:"processor_invoice_id"`
	ProcessorSubscriptionID string    `gorm:"type:varchar(191);not null;index" json:"processor_subscription_id"`
	GrossAmountCents        int64     `gorm:"not null" json:"gross_amount_cents"`
	ProcessorFeeCents       int64     `gorm:"not null" json:"processor_fee_cents"`
	PlatformCommissionCents int64     `gorm:"not null" json:"platform_commission_cents"`
	CreatorEarningCents     int64     `gorm:"not null" json:"creator_earning_cents"`
	Currency                string    `gorm:"type:varchar(3);not null" json:"currency"`
	CreatedAt               time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
