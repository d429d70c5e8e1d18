package models

import "time"

const (
	SubscriptionStatusActive     = "active"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusCancelled  = "cancelled"
	SubscriptionStatusIncomplete = "incomplete"
)

// Subscription mirrors a processor subscription between a subscriber and a
// creator. Exactly one row exists per processor subscription id; a cancelled
// row never returns to active, a new processor subscription creates a new row.
// Rows are soft-retained for billing history and never hard-deleted.
type Subscription struct {
	ID                      uint       `gorm:"primaryKey" json:"id"`
	SubscriberID            uint       `gorm:"not null;index" json:"subscriber_id"`
	CreatorID               uint       `gorm:"not null;index" json:"creator_id"`
	ProcessorSubscriptionID string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_subscriptions_processor_sub_id" json:"processor_subscription_id"`
	Status                  string     `gorm:"type:varchar(32);not null;default:'incomplete';index" json:"status"`
	CurrentPeriodEnd        *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	RawPayloadJSON          string     `gorm:"type:longtext" json:"raw_payload_json"`
	CreatedAt               time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsKnownSubscriptionStatus guards verbatim status copies from event payloads.
func IsKnownSubscriptionStatus(status string) bool {
	switch status {
	case SubscriptionStatusActive, SubscriptionStatusPastDue,
		SubscriptionStatusCancelled, SubscriptionStatusIncomplete:
		return true
	default:
		return false
	}
}
