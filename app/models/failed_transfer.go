package models

import "time"

// FailedTransfer is an append-only record of a payout transfer the processor
// rejected or timed out. The ledger entry it belongs to stays valid; the
// transfer is retried out-of-band through the ops API.
type FailedTransfer struct {
	ID                      uint       `gorm:"primaryKey" json:"id"`
	TransferRef             string     `gorm:"type:varchar(36);not null;uniqueIndex" json:"transfer_ref"`
	CreatorID               uint       `gorm:"not null;index" json:"creator_id"`
	ProcessorInvoiceID      string     `gorm:"type:varchar(191);not null;index" json:"processor_invoice_id"`
	ProcessorSubscriptionID string     `gorm:"type:varchar(191);not null" json:"processor_subscription_id"`
	DestinationAccountID    string     `gorm:"type:varchar(191);not null" json:"destination_account_id"`
	AmountCents             int64      `gorm:"not null" json:"amount_cents"`
	Currency                string     `gorm:"type:varchar(3);not null" json:"currency"`
	ErrorDetail             string     `gorm:"type:text" json:"error_detail"`
	RetryCount              int        `gorm:"not null;default:0" json:"retry_count"`
	ResolvedAt              *time.Time `gorm:"type:timestamp;default:null" json:"resolved_at,omitempty"`
	CreatedAt               time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt               time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
